package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// APIKeyHeader identifies authenticated callers for rate limiting purposes.
const APIKeyHeader = "X-API-Key"

// ClientKey resolves the identity a request is limited under: the hashed API
// key when one is present, else the first X-Forwarded-For hop, else the host
// part of the remote address. Anonymous traffic from one address shares a
// single window.
func ClientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader)); apiKey != "" {
		sum := sha256.Sum256([]byte(apiKey))
		return hex.EncodeToString(sum[:])[:16]
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
