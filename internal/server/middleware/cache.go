package middleware

import (
	"bytes"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/astrofront/astrofront/internal/metrics"
	"github.com/astrofront/astrofront/internal/observability"
	"github.com/astrofront/astrofront/internal/ratelimit"
	"github.com/astrofront/astrofront/internal/respcache"
)

// CacheHeader reports whether the response was served from the cache.
const CacheHeader = "X-Cache"

// cacheWriter buffers a response so a successful body can be stored after
// the handler returns. Headers and status pass through to the client
// unchanged.
type cacheWriter struct {
	http.ResponseWriter
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
}

func (cw *cacheWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	cw.statusCode = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cacheWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	cw.body.Write(b)
	return cw.ResponseWriter.Write(b)
}

// Cache serves eligible repeat requests from the response cache. Only the
// configured methods are considered, excluded paths always miss through, and
// only 200 responses are stored. Every eligible response carries X-Cache.
func Cache(cache *respcache.Cache, methods []string, excluded map[string]struct{}) func(http.Handler) http.Handler {
	methodSet := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		methodSet[m] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := methodSet[r.Method]; !ok {
				next.ServeHTTP(w, r)
				return
			}
			if _, skip := excluded[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			var body []byte
			if r.Body != nil && r.Body != http.NoBody {
				var err error
				body, err = io.ReadAll(r.Body)
				if err != nil {
					next.ServeHTTP(w, r)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			key := respcache.Key(r.Method, r.URL.Path, r.URL.Query(), body,
				r.Header.Get(ratelimit.APIKeyHeader))

			if entry, ok := cache.Lookup(key); ok {
				metrics.RecordCacheLookup(true)
				w.Header().Set(CacheHeader, "HIT")
				w.Header().Set("Content-Type", entry.ContentType)
				w.WriteHeader(entry.StatusCode)
				_, _ = w.Write(entry.Body)
				return
			}

			metrics.RecordCacheLookup(false)
			w.Header().Set(CacheHeader, "MISS")

			cw := &cacheWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.statusCode == http.StatusOK && cw.body.Len() > 0 {
				cache.Store(key, respcache.Entry{
					Body:        append([]byte(nil), cw.body.Bytes()...),
					ContentType: cw.Header().Get("Content-Type"),
					StatusCode:  cw.statusCode,
				})
				metrics.SetCacheEntries(int64(cache.Stats().Size))

				if observability.ServerLogger != nil {
					observability.ServerLogger.Debug("Response cached",
						zap.String("path", r.URL.Path),
						zap.Int("size", cw.body.Len()))
				}
			}
		})
	}
}
