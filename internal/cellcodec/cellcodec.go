// Package cellcodec encodes and decodes a single grid cell's header and
// bit-packed point/color payload.
package cellcodec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pcc-go/pcc/internal/bio"
	"github.com/pcc-go/pcc/internal/model"
)

// ErrFormat is returned when a cell header or payload cannot be parsed
// as well-formed wire data.
var ErrFormat = errors.New("cellcodec: malformed cell data")

// HeaderSize is the fixed, byte-aligned wire size of a CellHeader: six
// 1-byte BitCount fields plus a 2-byte element count.
const HeaderSize = 8

// Header is the fixed-layout header preceding a cell's payload. The
// cell's own linear index is not part of it; the caller derives index
// from the blacklist-adjusted position in the cell sequence.
type Header struct {
	Precision   model.CellPrecision
	NumElements uint16
}

// PayloadBits returns the number of payload bits the header implies.
func (h Header) PayloadBits() int {
	return int(h.NumElements) * h.Precision.TotalBits()
}

// PayloadBytes returns PayloadBits rounded up to whole bytes.
func (h Header) PayloadBytes() int {
	return (h.PayloadBits() + 7) / 8
}

// WriteHeader serializes h into buf[:HeaderSize].
func WriteHeader(buf []byte, h Header) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("cellcodec: writing header: %w", bio.ErrOutOfBounds)
	}
	buf[0] = byte(h.Precision.PX)
	buf[1] = byte(h.Precision.PY)
	buf[2] = byte(h.Precision.PZ)
	buf[3] = byte(h.Precision.CX)
	buf[4] = byte(h.Precision.CY)
	buf[5] = byte(h.Precision.CZ)
	binary.LittleEndian.PutUint16(buf[6:8], h.NumElements)
	return nil
}

// ReadHeader parses a Header from buf[:HeaderSize], validating that
// every precision field is within [0, model.MaxBitCount].
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("cellcodec: reading header: %w", ErrFormat)
	}
	h := Header{
		Precision: model.CellPrecision{
			PX: model.BitCount(buf[0]),
			PY: model.BitCount(buf[1]),
			PZ: model.BitCount(buf[2]),
			CX: model.BitCount(buf[3]),
			CY: model.BitCount(buf[4]),
			CZ: model.BitCount(buf[5]),
		},
		NumElements: binary.LittleEndian.Uint16(buf[6:8]),
	}
	if !h.Precision.Valid() {
		return Header{}, fmt.Errorf("cellcodec: precision field exceeds %d bits: %w", model.MaxBitCount, ErrFormat)
	}
	return h, nil
}

// Payload is one cell's quantized point and color arrays, each either
// nil (corresponding BitCount == 0) or of length equal to the cell's
// element count.
type Payload struct {
	QX, QY, QZ []uint32
	QR, QG, QB []uint32
}

// EncodePayload bit-packs n records from p into buf, in the wire order
// px,py,pz,cx,cy,cz per record, using prec's bit widths. buf must be at
// least Header{Precision: prec, NumElements: uint16(n)}.PayloadBytes()
// long.
func EncodePayload(buf []byte, prec model.CellPrecision, n int, p Payload) error {
	w := bio.NewWriter(buf)
	for i := 0; i < n; i++ {
		fields := []struct {
			bits model.BitCount
			vals []uint32
		}{
			{prec.PX, p.QX}, {prec.PY, p.QY}, {prec.PZ, p.QZ},
			{prec.CX, p.QR}, {prec.CY, p.QG}, {prec.CZ, p.QB},
		}
		for _, f := range fields {
			if f.bits == 0 {
				continue
			}
			if err := w.WriteBits(uint64(f.vals[i]), uint(f.bits)); err != nil {
				return fmt.Errorf("cellcodec: encoding payload record %d: %w", i, err)
			}
		}
	}
	return nil
}

// DecodePayload is the inverse of EncodePayload: it unpacks n records
// from buf according to prec's bit widths.
func DecodePayload(buf []byte, prec model.CellPrecision, n int) (Payload, error) {
	var p Payload
	if prec.PX > 0 {
		p.QX = make([]uint32, n)
	}
	if prec.PY > 0 {
		p.QY = make([]uint32, n)
	}
	if prec.PZ > 0 {
		p.QZ = make([]uint32, n)
	}
	if prec.CX > 0 {
		p.QR = make([]uint32, n)
	}
	if prec.CY > 0 {
		p.QG = make([]uint32, n)
	}
	if prec.CZ > 0 {
		p.QB = make([]uint32, n)
	}

	r := bio.NewReader(buf)
	for i := 0; i < n; i++ {
		fields := []struct {
			bits model.BitCount
			vals []uint32
		}{
			{prec.PX, p.QX}, {prec.PY, p.QY}, {prec.PZ, p.QZ},
			{prec.CX, p.QR}, {prec.CY, p.QG}, {prec.CZ, p.QB},
		}
		for _, f := range fields {
			if f.bits == 0 {
				continue
			}
			v, err := r.ReadBits(uint(f.bits))
			if err != nil {
				return Payload{}, fmt.Errorf("cellcodec: decoding payload record %d: %w", i, err)
			}
			f.vals[i] = uint32(v)
		}
	}
	return p, nil
}
