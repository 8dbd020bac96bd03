package compressors

import (
	"bytes"
	"compress/gzip"
	"fmt"
)

// GzipCompressor compresses export payloads with stdlib gzip.
type GzipCompressor struct{}

// NewGzipCompressor returns a gzip Compressor.
func NewGzipCompressor() *GzipCompressor {
	return &GzipCompressor{}
}

// Compress gzips the payload. Levels outside 1-9 fall back to the
// stdlib default.
func (c *GzipCompressor) Compress(data []byte, level int) ([]byte, error) {
	if level < 1 || level > 9 {
		level = gzip.DefaultCompression
	}

	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Extension returns ".gz".
func (c *GzipCompressor) Extension() string {
	return ".gz"
}

// DefaultLevel returns 6, matching gzip.DefaultCompression.
func (c *GzipCompressor) DefaultLevel() int {
	return 6
}
