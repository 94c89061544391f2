// Package wire (de)serializes the fixed-layout headers and blacklist of
// an encoded message: GlobalHeader, GridHeader, and the blacklist cell
// index list. All multi-byte fields are little-endian.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/pcc-go/pcc/internal/model"
)

// ErrFormat is returned when header or blacklist bytes cannot be parsed
// as well-formed wire data.
var ErrFormat = errors.New("wire: malformed message")

// GlobalHeaderSize is the fixed, always-plaintext prefix of every
// message: 1 bool + 2 uint64.
const GlobalHeaderSize = 1 + 8 + 8

// GridHeaderSize is the fixed size of the grid header: 3 uint8 dims +
// 6 float32 bbox components + 1 uint32 blacklist count.
const GridHeaderSize = 3 + 6*4 + 4

// GlobalHeader is always plaintext, even when entropy coding is on.
type GlobalHeader struct {
	EntropyCoding    bool
	UncompressedSize uint64
	AppendixSize     uint64
}

// WriteGlobalHeader serializes h into buf[:GlobalHeaderSize].
func WriteGlobalHeader(buf []byte, h GlobalHeader) error {
	if len(buf) < GlobalHeaderSize {
		return fmt.Errorf("wire: writing global header: %w", ErrFormat)
	}
	if h.EntropyCoding {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	binary.LittleEndian.PutUint64(buf[1:9], h.UncompressedSize)
	binary.LittleEndian.PutUint64(buf[9:17], h.AppendixSize)
	return nil
}

// ReadGlobalHeader parses a GlobalHeader from buf[:GlobalHeaderSize].
func ReadGlobalHeader(buf []byte) (GlobalHeader, error) {
	if len(buf) < GlobalHeaderSize {
		return GlobalHeader{}, fmt.Errorf("wire: reading global header: %w", ErrFormat)
	}
	return GlobalHeader{
		EntropyCoding:    buf[0] != 0,
		UncompressedSize: binary.LittleEndian.Uint64(buf[1:9]),
		AppendixSize:     binary.LittleEndian.Uint64(buf[9:17]),
	}, nil
}

// GridHeader describes the grid geometry and the blacklist length that
// follows it on the wire.
type GridHeader struct {
	Dimensions   model.GridDimensions
	BoundingBox  model.BoundingBox
	NumBlacklist uint32
}

// WriteGridHeader serializes h into buf[:GridHeaderSize].
func WriteGridHeader(buf []byte, h GridHeader) error {
	if len(buf) < GridHeaderSize {
		return fmt.Errorf("wire: writing grid header: %w", ErrFormat)
	}
	buf[0] = h.Dimensions.Dx
	buf[1] = h.Dimensions.Dy
	buf[2] = h.Dimensions.Dz
	off := 3
	for _, f := range h.BoundingBox.Min {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
		off += 4
	}
	for _, f := range h.BoundingBox.Max {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], h.NumBlacklist)
	return nil
}

// ReadGridHeader parses a GridHeader from buf[:GridHeaderSize],
// rejecting zero dimensions.
func ReadGridHeader(buf []byte) (GridHeader, error) {
	if len(buf) < GridHeaderSize {
		return GridHeader{}, fmt.Errorf("wire: reading grid header: %w", ErrFormat)
	}
	h := GridHeader{
		Dimensions: model.GridDimensions{Dx: buf[0], Dy: buf[1], Dz: buf[2]},
	}
	off := 3
	for i := range h.BoundingBox.Min {
		h.BoundingBox.Min[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	for i := range h.BoundingBox.Max {
		h.BoundingBox.Max[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	h.NumBlacklist = binary.LittleEndian.Uint32(buf[off : off+4])
	if h.Dimensions.Dx == 0 || h.Dimensions.Dy == 0 || h.Dimensions.Dz == 0 {
		return GridHeader{}, fmt.Errorf("wire: grid dimensions must be non-zero: %w", ErrFormat)
	}
	return h, nil
}

// WriteBlacklist serializes the ascending indices in bl as consecutive
// little-endian uint32 values into buf[:4*len(bl)].
func WriteBlacklist(buf []byte, bl []uint32) error {
	if len(buf) < 4*len(bl) {
		return fmt.Errorf("wire: writing blacklist: %w", ErrFormat)
	}
	for i, idx := range bl {
		binary.LittleEndian.PutUint32(buf[4*i:4*i+4], idx)
	}
	return nil
}

// ReadBlacklist parses n ascending uint32 cell indices from
// buf[:4*n], rejecting an index ≥ numCells or a non-ascending sequence.
func ReadBlacklist(buf []byte, n int, numCells int) ([]uint32, error) {
	if len(buf) < 4*n {
		return nil, fmt.Errorf("wire: reading blacklist: %w", ErrFormat)
	}
	bl := make([]uint32, n)
	var prev uint32
	for i := 0; i < n; i++ {
		idx := binary.LittleEndian.Uint32(buf[4*i : 4*i+4])
		if int(idx) >= numCells {
			return nil, fmt.Errorf("wire: blacklist index %d out of range [0,%d): %w", idx, numCells, ErrFormat)
		}
		if i > 0 && idx <= prev {
			return nil, fmt.Errorf("wire: blacklist not strictly ascending at position %d: %w", i, ErrFormat)
		}
		bl[i] = idx
		prev = idx
	}
	return bl, nil
}
