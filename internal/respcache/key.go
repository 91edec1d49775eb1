package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
)

// apiKeyPrefixLen bounds how much of the caller's API key participates in the
// cache key. Enough to keep per-key response variants apart without storing
// the credential itself.
const apiKeyPrefixLen = 8

// Key derives a deterministic, collision-resistant cache key from the logical
// request content. Two requests that differ only in query parameter ordering
// or incidental whitespace produce the same key.
func Key(method, requestPath string, query url.Values, body []byte, apiKey string) string {
	h := sha256.New()

	write := func(s string) {
		io.WriteString(h, s)
		h.Write([]byte{0})
	}

	write(strings.ToUpper(strings.TrimSpace(method)))
	write(normalizePath(requestPath))
	write(canonicalQuery(query))

	if len(body) > 0 {
		sum := sha256.Sum256(body)
		h.Write(sum[:])
	}
	h.Write([]byte{0})

	apiKey = strings.TrimSpace(apiKey)
	if len(apiKey) > apiKeyPrefixLen {
		apiKey = apiKey[:apiKeyPrefixLen]
	}
	write(apiKey)

	return hex.EncodeToString(h.Sum(nil))
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimPrefix(p, "/"))
}

// canonicalQuery serializes query parameters with sorted keys and sorted
// values per key, so parameter order never changes the derived key.
func canonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		values := append([]string(nil), query[k]...)
		sort.Strings(values)
		for _, v := range values {
			b.WriteString(url.QueryEscape(strings.TrimSpace(k)))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(strings.TrimSpace(v)))
			b.WriteByte('&')
		}
	}
	return b.String()
}
