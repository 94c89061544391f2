// Package entropy wraps the post-global-header region of an encoded
// message through a general-purpose deflate compressor. It is a
// pass-through facade, not a domain-specific coder. The codec treats a
// decompression failure as fatal to Decode; on a compression failure
// Encode writes the uncompressed form instead.
package entropy

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// ErrEntropy is returned when the underlying compressor or
// decompressor fails.
var ErrEntropy = errors.New("entropy: compressor failure")

// Compress deflates src at the given compression level (flate.DefaultCompression
// is a reasonable default) and returns the compressed bytes.
func Compress(src []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("entropy: opening writer: %w: %v", ErrEntropy, err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("entropy: writing: %w: %v", ErrEntropy, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("entropy: closing writer: %w: %v", ErrEntropy, err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates src, expecting exactly uncompressedSize bytes of
// output. It fails if the stream is malformed or yields a different
// length than expected, since the caller pre-allocates on that
// assumption.
func Decompress(src []byte, uncompressedSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	out := make([]byte, uncompressedSize)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("entropy: reading: %w: %v", ErrEntropy, err)
	}
	if n != uncompressedSize {
		return nil, fmt.Errorf("entropy: decompressed %d bytes, want %d: %w", n, uncompressedSize, ErrEntropy)
	}
	// A well-formed stream with no trailing garbage ends exactly here;
	// any further byte indicates uncompressedSize undersold the stream.
	var extra [1]byte
	if _, err := r.Read(extra[:]); err != io.EOF {
		return nil, fmt.Errorf("entropy: trailing data past declared size: %w", ErrEntropy)
	}
	return out, nil
}
