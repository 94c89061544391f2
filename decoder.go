package pcc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pcc-go/pcc/internal/bio"
	"github.com/pcc-go/pcc/internal/cellcodec"
	"github.com/pcc-go/pcc/internal/entropy"
	"github.com/pcc-go/pcc/internal/grid"
	"github.com/pcc-go/pcc/internal/model"
	"github.com/pcc-go/pcc/internal/wire"
)

// classifyErr maps an internal-package error onto the root package's
// error taxonomy: ErrOutOfBounds, ErrEntropy, or ErrFormat for anything
// else. The classified error stays inside decode; Decode itself only
// reports failure as a false return.
func classifyErr(err error) error {
	switch {
	case errors.Is(err, bio.ErrOutOfBounds):
		return fmt.Errorf("%w: %v", ErrOutOfBounds, err)
	case errors.Is(err, entropy.ErrEntropy):
		return fmt.Errorf("%w: %v", ErrEntropy, err)
	default:
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
}

// Decode parses message and reconstructs the voxels it carries.
// Decode never panics on malformed input: it returns false and an
// empty voxel slice on any parse error, size mismatch,
// entropy-decompression failure, or blacklist inconsistency.
func (c *Codec) Decode(message []byte) ([]Voxel, DecodeLog, bool) {
	voxels, logEntry, err := c.decode(message)
	if err != nil {
		return nil, DecodeLog{Ok: false}, false
	}
	logEntry.Ok = true
	return voxels, logEntry, true
}

func (c *Codec) decode(message []byte) ([]Voxel, DecodeLog, error) {
	if len(message) < wire.GlobalHeaderSize {
		return nil, DecodeLog{}, classifyErr(wire.ErrFormat)
	}
	gh, err := wire.ReadGlobalHeader(message[:wire.GlobalHeaderSize])
	if err != nil {
		return nil, DecodeLog{}, classifyErr(err)
	}

	appendixSize := int(gh.AppendixSize)
	if appendixSize < 0 || appendixSize > len(message)-wire.GlobalHeaderSize {
		return nil, DecodeLog{}, classifyErr(wire.ErrFormat)
	}
	region := message[wire.GlobalHeaderSize : len(message)-appendixSize]

	var buf []byte
	if gh.EntropyCoding {
		uncompressedSize := int(gh.UncompressedSize)
		if uncompressedSize < 0 {
			return nil, DecodeLog{}, classifyErr(wire.ErrFormat)
		}
		buf, err = entropy.Decompress(region, uncompressedSize)
		if err != nil {
			return nil, DecodeLog{}, classifyErr(err)
		}
	} else {
		buf = region
	}

	if len(buf) < wire.GridHeaderSize {
		return nil, DecodeLog{}, classifyErr(wire.ErrFormat)
	}
	ghd, err := wire.ReadGridHeader(buf[:wire.GridHeaderSize])
	if err != nil {
		return nil, DecodeLog{}, classifyErr(err)
	}

	numCells := ghd.Dimensions.Count()
	off := wire.GridHeaderSize
	blacklistLen := 4 * int(ghd.NumBlacklist)
	if off+blacklistLen > len(buf) {
		return nil, DecodeLog{}, classifyErr(wire.ErrFormat)
	}
	blacklist, err := wire.ReadBlacklist(buf[off:off+blacklistLen], int(ghd.NumBlacklist), numCells)
	if err != nil {
		return nil, DecodeLog{}, classifyErr(err)
	}
	off += blacklistLen

	present := presentIndices(numCells, blacklist)

	desc := model.GridPrecisionDescriptor{
		BoundingBox:    ghd.BoundingBox,
		Dimensions:     ghd.Dimensions,
		CellPrecisions: make([]model.CellPrecision, numCells),
	}
	cells := make([]grid.Cell, numCells)

	type cellSlot struct {
		index   int
		header  cellcodec.Header
		payload []byte
	}
	slots := make([]cellSlot, 0, len(present))

	for _, idx := range present {
		if off+cellcodec.HeaderSize > len(buf) {
			return nil, DecodeLog{}, classifyErr(wire.ErrFormat)
		}
		h, err := cellcodec.ReadHeader(buf[off : off+cellcodec.HeaderSize])
		if err != nil {
			return nil, DecodeLog{}, classifyErr(err)
		}
		off += cellcodec.HeaderSize
		payloadBytes := h.PayloadBytes()
		if off+payloadBytes > len(buf) {
			return nil, DecodeLog{}, classifyErr(wire.ErrFormat)
		}
		desc.CellPrecisions[idx] = h.Precision
		slots = append(slots, cellSlot{index: int(idx), header: h, payload: buf[off : off+payloadBytes]})
		off += payloadBytes
	}
	// Cells never present on the wire (blacklisted) get a zero-width
	// precision entry; Invert skips cells with no elements, so the
	// entry is never used for reconstruction.
	for _, idx := range blacklist {
		desc.CellPrecisions[idx] = model.CellPrecision{}
	}

	decodeCellSlot := func(s cellSlot) (int, grid.Cell, error) {
		p, err := cellcodec.DecodePayload(s.payload, s.header.Precision, int(s.header.NumElements))
		if err != nil {
			return 0, grid.Cell{}, err
		}
		return s.index, grid.Cell{
			NumElements: int(s.header.NumElements),
			QX: p.QX, QY: p.QY, QZ: p.QZ,
			QR: p.QR, QG: p.QG, QB: p.QB,
		}, nil
	}

	n := numWorkers(c.settings.NumThreads, len(slots))
	var decodeErr error
	if n <= 1 || len(slots) == 0 {
		for _, s := range slots {
			idx, cell, err := decodeCellSlot(s)
			if err != nil {
				decodeErr = err
				break
			}
			cells[idx] = cell
		}
	} else {
		jobChan := make(chan int, len(slots))
		for i := range slots {
			jobChan <- i
		}
		close(jobChan)

		type res struct {
			idx  int
			cell grid.Cell
			err  error
		}
		resultChan := make(chan res, len(slots))
		var wg sync.WaitGroup
		for w := 0; w < n; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobChan {
					idx, cell, err := decodeCellSlot(slots[i])
					resultChan <- res{idx: idx, cell: cell, err: err}
				}
			}()
		}
		go func() {
			wg.Wait()
			close(resultChan)
		}()
		for r := range resultChan {
			if r.err != nil && decodeErr == nil {
				decodeErr = r.err
				continue
			}
			cells[r.idx] = r.cell
		}
	}
	if decodeErr != nil {
		return nil, DecodeLog{}, classifyErr(decodeErr)
	}

	g := &grid.Grid{BoundingBox: ghd.BoundingBox, Dimensions: ghd.Dimensions, Cells: cells}
	c.grid = g
	voxels := grid.Invert(g, desc)

	return voxels, DecodeLog{
		RawBytes:        len(buf),
		CompressedBytes: len(region),
		BlacklistSize:   len(blacklist),
	}, nil
}

// presentIndices returns the ascending indices in [0,numCells) not
// present in the ascending blacklist.
func presentIndices(numCells int, blacklist []uint32) []uint32 {
	present := make([]uint32, 0, numCells-len(blacklist))
	bi := 0
	for i := 0; i < numCells; i++ {
		if bi < len(blacklist) && blacklist[bi] == uint32(i) {
			bi++
			continue
		}
		present = append(present, uint32(i))
	}
	return present
}
