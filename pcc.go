// Package pcc implements a lossy grid-based compression codec for
// colored 3D point clouds destined for transport over a message-bus
// connection.
//
// A Codec partitions a bounded 3D region into a regular grid of cells,
// quantizes the points within each cell to a cell-local integer
// lattice with a per-cell configurable bit-width, and serializes the
// result as a compact bitstream optionally post-processed by a
// general-purpose entropy compressor.
//
// Basic usage for encoding:
//
//	c := pcc.New(settings)
//	msg, log := c.Encode(voxels, -1)
//
// Basic usage for decoding:
//
//	voxels, log, ok := c.Decode(msg)
//	if !ok {
//	    // message was malformed
//	}
package pcc

import (
	"errors"

	"github.com/pcc-go/pcc/internal/grid"
	"github.com/pcc-go/pcc/internal/model"
)

// Voxel, BoundingBox, GridDimensions, BitCount, CellPrecision, and
// GridPrecisionDescriptor are aliased from internal/model so that both
// the root package and the internal codec packages share one
// definition without an import cycle.
type (
	Voxel                   = model.Voxel
	BoundingBox             = model.BoundingBox
	GridDimensions          = model.GridDimensions
	BitCount                = model.BitCount
	CellPrecision           = model.CellPrecision
	GridPrecisionDescriptor = model.GridPrecisionDescriptor
)

// MaxBitCount is the largest valid BitCount.
const MaxBitCount = model.MaxBitCount

// Sentinel errors of the codec's error taxonomy. No exported function
// returns them: Decode classifies internal failures as ErrOutOfBounds,
// ErrEntropy or ErrFormat but reports only a boolean, and
// WriteToAppendix returns false on an oversized write without using
// ErrAppendixOverflow.
var (
	ErrOutOfBounds      = errors.New("pcc: bit-layer access out of bounds")
	ErrFormat           = errors.New("pcc: malformed message")
	ErrEntropy          = errors.New("pcc: entropy compressor failure")
	ErrAppendixOverflow = errors.New("pcc: appendix write exceeds reserved size")
)

// EncodingSettings configures a Codec.
type EncodingSettings struct {
	GridPrecision GridPrecisionDescriptor

	// Verbose is never written to the wire. Encode and Decode do not
	// read it; EncodeLog and DecodeLog carry the same fields either way.
	Verbose bool

	// NumThreads bounds the per-cell worker pool. Zero or negative
	// means runtime.GOMAXPROCS(0).
	NumThreads int

	// IrrelevanceCoding is accepted for interface compatibility with
	// the source system but changes no encoding behavior; its value is
	// recorded in EncodeLog only.
	IrrelevanceCoding bool

	// EntropyCoding enables the deflate wrap of the grid header,
	// blacklist, and cell region (§4.5 step 4).
	EntropyCoding bool

	// AppendixSize reserves this many bytes at the tail of every
	// encoded message.
	AppendixSize uint64
}

// EncodeLog reports side-effect statistics from one Encode call.
type EncodeLog struct {
	RawBytes          int
	CompressedBytes   int
	HeaderBytes       int
	BlacklistBytes    int
	CellSectionBytes  int
	BlacklistSize     int
	IrrelevanceCoding bool
}

// DecodeLog reports side-effect statistics from one Decode call.
type DecodeLog struct {
	RawBytes        int
	CompressedBytes int
	BlacklistSize   int
	Ok              bool
}

// Codec encodes and decodes point-cloud messages under one
// EncodingSettings configuration. A Codec instance is not safe for
// concurrent Encode/Decode calls; the grid it owns is exclusive to one
// call at a time.
type Codec struct {
	settings EncodingSettings
	grid     *grid.Grid
}

// New constructs a Codec from settings. The grid precision descriptor
// is not validated: Encode expects CellPrecisions to hold one entry per
// cell, and Decode takes the grid geometry from the message instead.
func New(settings EncodingSettings) *Codec {
	return &Codec{settings: settings}
}

// PointCloudGrid returns a read-only view of the grid populated by the
// most recent Encode or successful Decode call, or nil if neither has
// run yet. A failed Decode leaves the previous grid in place.
func (c *Codec) PointCloudGrid() *grid.Grid {
	return c.grid
}

func numWorkers(n, total int) int {
	if n <= 0 {
		n = defaultNumThreads()
	}
	if n > total {
		n = total
	}
	if n < 1 {
		n = 1
	}
	return n
}
