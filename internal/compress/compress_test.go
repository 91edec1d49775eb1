package compress

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldCompressDecisionPolicy(t *testing.T) {
	c := New(1024, 6)

	tests := []struct {
		name        string
		contentType string
		size        int
		want        bool
	}{
		{"small plain text", "text/plain", 50, false},
		{"large json", "application/json", 5000, true},
		{"large binary", "application/octet-stream", 5000, false},
		{"large svg", "image/svg+xml", 4096, true},
		{"large png", "image/png", 4096, false},
		{"json with charset", "application/json; charset=utf-8", 2048, true},
		{"text html", "text/html", 2048, true},
		{"exactly at threshold", "text/plain", 1024, true},
		{"one below threshold", "text/plain", 1023, false},
		{"empty content type", "", 5000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, c.ShouldCompress(tt.contentType, tt.size))
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	c := New(1024, 6)
	body := []byte(strings.Repeat(`{"planet":"mars","sign":"aries"},`, 200))

	encoded, err := c.Encode(body)
	require.NoError(t, err)
	require.Less(t, len(encoded), len(body), "repetitive JSON should shrink")

	zr, err := gzip.NewReader(bytes.NewReader(encoded))
	require.NoError(t, err)
	decoded, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, body, decoded)
}

func TestNewClampsInvalidLevel(t *testing.T) {
	c := New(0, 99)
	require.Equal(t, DefaultMinSize, c.MinSize)
	require.Equal(t, 6, c.Level)

	body := []byte(strings.Repeat("a", 2048))
	_, err := c.Encode(body)
	require.NoError(t, err)
}
