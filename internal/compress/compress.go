// Package compress implements the adaptive response compressor: gzip for
// compressible content over a size threshold, pass-through for everything
// else.
package compress

import (
	"bytes"
	"compress/gzip"
	"strings"
)

// DefaultMinSize is the smallest body worth compressing; tiny payloads cost
// more in header overhead than they save.
const DefaultMinSize = 1024

// compressiblePrefixes covers text-like and structured content the pipeline
// serves. Binary and already-compressed types are deliberately absent.
var compressiblePrefixes = []string{
	"application/json",
	"text/",
	"application/javascript",
	"application/xml",
	"image/svg+xml",
}

// Compressor decides whether a response body is worth encoding and performs
// the encoding. Level trades CPU for ratio, gzip semantics.
type Compressor struct {
	MinSize int
	Level   int
}

// New creates a compressor. Out-of-range values fall back to the defaults
// (1 KiB threshold, gzip.DefaultCompression level 6 equivalent).
func New(minSize, level int) *Compressor {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		level = 6
	}
	return &Compressor{MinSize: minSize, Level: level}
}

// ShouldCompress reports whether a body of the given content type and size is
// worth encoding.
func (c *Compressor) ShouldCompress(contentType string, bodySize int) bool {
	if bodySize < c.MinSize {
		return false
	}

	mediaType := contentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return false
	}

	for _, prefix := range compressiblePrefixes {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	return false
}

// Encode gzips the body at the configured level. The logical content is
// untouched; only the wire representation changes.
func (c *Compressor) Encode(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, c.Level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
