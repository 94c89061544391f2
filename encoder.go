package pcc

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pcc-go/pcc/internal/cellcodec"
	"github.com/pcc-go/pcc/internal/entropy"
	"github.com/pcc-go/pcc/internal/grid"
	"github.com/pcc-go/pcc/internal/model"
	"github.com/pcc-go/pcc/internal/wire"
)

func defaultNumThreads() int {
	return runtime.GOMAXPROCS(0)
}

// cellJob is one unit of the per-cell encode worker pool: a non-empty
// cell's index, precision, and quantized contents.
type cellJob struct {
	index int
	prec  model.CellPrecision
	cell  grid.Cell
}

// cellResult is a worker's output: the fully serialized
// CellHeader+CellPayload bytes for one cell, keyed by its position in
// the ascending non-blacklisted sequence.
type cellResult struct {
	seq   int
	bytes []byte
}

// Encode builds the point-cloud grid from voxels and serializes it
// into a message. numPoints < 0 means all voxels are considered;
// otherwise only the first numPoints are. Voxels outside the
// configured bounding box are silently dropped. Encode never fails
// under the precondition that allocations succeed.
func (c *Codec) Encode(voxels []Voxel, numPoints int) ([]byte, EncodeLog) {
	if numPoints >= 0 && numPoints < len(voxels) {
		voxels = voxels[:numPoints]
	}

	desc := c.settings.GridPrecision
	g := grid.Build(voxels, desc)
	c.grid = g

	blacklist := grid.Blacklist(g)
	jobs := make([]cellJob, 0, len(g.Cells)-len(blacklist))
	for idx, cell := range g.Cells {
		if cell.Empty() {
			continue
		}
		jobs = append(jobs, cellJob{index: idx, prec: desc.CellPrecisions[idx], cell: cell})
	}

	cellBytes := c.encodeCells(jobs)

	gridHeaderBuf := make([]byte, wire.GridHeaderSize)
	_ = wire.WriteGridHeader(gridHeaderBuf, wire.GridHeader{
		Dimensions:   desc.Dimensions,
		BoundingBox:  desc.BoundingBox,
		NumBlacklist: uint32(len(blacklist)),
	})

	blacklistBuf := make([]byte, 4*len(blacklist))
	_ = wire.WriteBlacklist(blacklistBuf, blacklist)

	intermediate := make([]byte, 0, len(gridHeaderBuf)+len(blacklistBuf)+totalLen(cellBytes))
	intermediate = append(intermediate, gridHeaderBuf...)
	intermediate = append(intermediate, blacklistBuf...)
	for _, b := range cellBytes {
		intermediate = append(intermediate, b...)
	}

	var payload []byte
	var uncompressedSize uint64
	if c.settings.EntropyCoding {
		compressed, err := entropy.Compress(intermediate, -1)
		if err != nil {
			// Encode has no error return, so a compression failure
			// does not abort the call: the message carries the
			// uncompressed form and its entropy flag is cleared.
			payload = intermediate
			uncompressedSize = 0
		} else {
			payload = compressed
			uncompressedSize = uint64(len(intermediate))
		}
	} else {
		payload = intermediate
		uncompressedSize = 0
	}

	appendixSize := c.settings.AppendixSize
	message := make([]byte, wire.GlobalHeaderSize+len(payload)+int(appendixSize))
	_ = wire.WriteGlobalHeader(message[:wire.GlobalHeaderSize], wire.GlobalHeader{
		EntropyCoding:    c.settings.EntropyCoding && uncompressedSize > 0,
		UncompressedSize: uncompressedSize,
		AppendixSize:     appendixSize,
	})
	copy(message[wire.GlobalHeaderSize:], payload)

	logEntry := EncodeLog{
		RawBytes:          len(intermediate),
		CompressedBytes:   len(payload),
		HeaderBytes:       wire.GlobalHeaderSize + wire.GridHeaderSize,
		BlacklistBytes:    len(blacklistBuf),
		CellSectionBytes:  totalLen(cellBytes),
		BlacklistSize:     len(blacklist),
		IrrelevanceCoding: c.settings.IrrelevanceCoding,
	}
	return message, logEntry
}

// encodeCells serializes each job's CellHeader+CellPayload, optionally
// using a bounded worker pool, and returns the results in ascending
// cell-index order (i.e. ascending wire order) regardless of
// completion order.
func (c *Codec) encodeCells(jobs []cellJob) [][]byte {
	results := make([][]byte, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	n := numWorkers(c.settings.NumThreads, len(jobs))
	if n <= 1 {
		for i, job := range jobs {
			results[i] = encodeOneCell(job)
		}
		return results
	}

	jobChan := make(chan int, len(jobs))
	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	resultChan := make(chan cellResult, len(jobs))
	var wg sync.WaitGroup
	for w := 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobChan {
				resultChan <- cellResult{seq: i, bytes: encodeOneCell(jobs[i])}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for r := range resultChan {
		results[r.seq] = r.bytes
	}
	return results
}

func encodeOneCell(job cellJob) []byte {
	h := cellcodec.Header{Precision: job.prec, NumElements: uint16(job.cell.NumElements)}
	buf := make([]byte, cellcodec.HeaderSize+h.PayloadBytes())
	if err := cellcodec.WriteHeader(buf[:cellcodec.HeaderSize], h); err != nil {
		panic(fmt.Sprintf("pcc: writing cell %d header: %v", job.index, err))
	}
	payload := cellcodec.Payload{
		QX: job.cell.QX, QY: job.cell.QY, QZ: job.cell.QZ,
		QR: job.cell.QR, QG: job.cell.QG, QB: job.cell.QB,
	}
	if err := cellcodec.EncodePayload(buf[cellcodec.HeaderSize:], job.prec, job.cell.NumElements, payload); err != nil {
		panic(fmt.Sprintf("pcc: encoding cell %d payload: %v", job.index, err))
	}
	return buf
}

func totalLen(bufs [][]byte) int {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	return n
}
