package compressors

import (
	"errors"
	"fmt"
)

// ErrUnsupportedCompression indicates a compression type GetCompressor
// does not recognize.
var ErrUnsupportedCompression = errors.New("unsupported compression type")

// Compressor turns a formatted export payload into its compressed form.
// Implementations are stateless; level semantics are per-algorithm.
type Compressor interface {
	// Compress compresses the payload at the given level.
	Compress(data []byte, level int) ([]byte, error)

	// Extension returns the filename suffix including the dot (".zst",
	// ".lz4", ".gz"), or "" when the payload is stored as-is.
	Extension() string

	// DefaultLevel returns the level used when none is configured.
	DefaultLevel() int
}

// GetCompressor maps a configured compression name to its implementation.
func GetCompressor(compression string) (Compressor, error) {
	switch compression {
	case "zstd":
		return NewZstdCompressor(), nil
	case "lz4":
		return NewLZ4Compressor(), nil
	case "gzip":
		return NewGzipCompressor(), nil
	case "none":
		return NewNoneCompressor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, compression)
	}
}
