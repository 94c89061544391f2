// Package grid partitions a point cloud into the cells of a regular 3D
// grid and quantizes each cell's contents to its configured per-cell
// precision. It also implements the inverse: reconstructing voxels from
// a populated grid.
package grid

import (
	"math"

	"github.com/pcc-go/pcc/internal/model"
	"github.com/pcc-go/pcc/internal/quant"
)

// Cell holds the quantized points that fell into one cell of the grid.
// A component slice is nil when the corresponding CellPrecision field is
// 0 (the component is omitted for every point in the cell); otherwise it
// has length NumElements.
type Cell struct {
	NumElements int
	QX, QY, QZ  []uint32
	QR, QG, QB  []uint32
}

// Empty reports whether the cell contains no points.
func (c Cell) Empty() bool {
	return c.NumElements == 0
}

// Grid is the full set of N cells produced by Build, together with the
// bounding box and dimensions that produced them.
type Grid struct {
	BoundingBox model.BoundingBox
	Dimensions  model.GridDimensions
	Cells       []Cell
}

// CellExtent returns the per-axis size of one grid cell.
func (g *Grid) CellExtent() [3]float32 {
	return cellExtent(g.BoundingBox, g.Dimensions)
}

// CellOrigin returns the minimum corner of cell idx in absolute
// coordinates.
func (g *Grid) CellOrigin(idx int) [3]float32 {
	return cellOrigin(idx, g.Dimensions, g.BoundingBox, g.CellExtent())
}

func cellExtent(box model.BoundingBox, dims model.GridDimensions) [3]float32 {
	e := box.Extent()
	return [3]float32{
		e[0] / float32(dims.Dx),
		e[1] / float32(dims.Dy),
		e[2] / float32(dims.Dz),
	}
}

func cellOrigin(idx int, dims model.GridDimensions, box model.BoundingBox, extent [3]float32) [3]float32 {
	x, y, z := dims.Coords(idx)
	return [3]float32{
		box.Min[0] + float32(x)*extent[0],
		box.Min[1] + float32(y)*extent[1],
		box.Min[2] + float32(z)*extent[2],
	}
}

// cellCoord maps one absolute position onto a cell index, reporting
// false if the position lies outside the bounding box. A position
// exactly on the box's max face is clamped into the last cell along
// that axis rather than falling one cell short of it.
func cellCoord(p [3]float32, box model.BoundingBox, dims model.GridDimensions, extent [3]float32) (int, bool) {
	if !box.Contains(p) {
		return 0, false
	}
	d := [3]int{int(dims.Dx), int(dims.Dy), int(dims.Dz)}
	var c [3]int
	for a := 0; a < 3; a++ {
		if extent[a] <= 0 {
			c[a] = 0
			continue
		}
		idx := int(math.Floor(float64((p[a] - box.Min[a]) / extent[a])))
		if idx < 0 {
			idx = 0
		}
		if idx >= d[a] {
			idx = d[a] - 1
		}
		c[a] = idx
	}
	return dims.Index(c[0], c[1], c[2]), true
}

// Build partitions voxels into the grid described by desc, quantizing
// each accepted point with its cell's precision. Voxels whose position
// falls outside desc.BoundingBox are silently dropped. Within a cell,
// point order follows input order; order is not preserved across cells.
func Build(voxels []model.Voxel, desc model.GridPrecisionDescriptor) *Grid {
	n := desc.Dimensions.Count()
	cells := make([]Cell, n)
	extent := cellExtent(desc.BoundingBox, desc.Dimensions)

	for _, v := range voxels {
		idx, ok := cellCoord(v.Position, desc.BoundingBox, desc.Dimensions, extent)
		if !ok {
			continue
		}
		prec := desc.CellPrecisions[idx]
		origin := cellOrigin(idx, desc.Dimensions, desc.BoundingBox, extent)
		local := [3]float32{
			v.Position[0] - origin[0],
			v.Position[1] - origin[1],
			v.Position[2] - origin[2],
		}
		appendPoint(&cells[idx], prec, local, v.Color, extent)
	}

	return &Grid{
		BoundingBox: desc.BoundingBox,
		Dimensions:  desc.Dimensions,
		Cells:       cells,
	}
}

func appendPoint(c *Cell, prec model.CellPrecision, local [3]float32, color [3]uint8, extent [3]float32) {
	if prec.PX > 0 {
		c.QX = append(c.QX, quant.Quantize(local[0], 0, extent[0], uint8(prec.PX)))
	}
	if prec.PY > 0 {
		c.QY = append(c.QY, quant.Quantize(local[1], 0, extent[1], uint8(prec.PY)))
	}
	if prec.PZ > 0 {
		c.QZ = append(c.QZ, quant.Quantize(local[2], 0, extent[2], uint8(prec.PZ)))
	}
	if prec.CX > 0 {
		c.QR = append(c.QR, quant.QuantizeColor(color[0], uint8(prec.CX)))
	}
	if prec.CY > 0 {
		c.QG = append(c.QG, quant.QuantizeColor(color[1], uint8(prec.CY)))
	}
	if prec.CZ > 0 {
		c.QB = append(c.QB, quant.QuantizeColor(color[2], uint8(prec.CZ)))
	}
	c.NumElements++
}

// Invert reconstructs the voxels carried by g, using desc for the
// per-cell precision that produced each cell's quantized values.
func Invert(g *Grid, desc model.GridPrecisionDescriptor) []model.Voxel {
	extent := cellExtent(desc.BoundingBox, desc.Dimensions)
	var out []model.Voxel
	for idx := range g.Cells {
		cell := &g.Cells[idx]
		if cell.NumElements == 0 {
			continue
		}
		prec := desc.CellPrecisions[idx]
		origin := cellOrigin(idx, desc.Dimensions, desc.BoundingBox, extent)
		for i := 0; i < cell.NumElements; i++ {
			out = append(out, reconstructPoint(cell, prec, origin, extent, i))
		}
	}
	return out
}

func reconstructPoint(cell *Cell, prec model.CellPrecision, origin, extent [3]float32, i int) model.Voxel {
	var local [3]float32
	if prec.PX > 0 {
		local[0] = quant.Dequantize(cell.QX[i], 0, extent[0], uint8(prec.PX))
	} else {
		local[0] = quant.Dequantize(0, 0, extent[0], 0)
	}
	if prec.PY > 0 {
		local[1] = quant.Dequantize(cell.QY[i], 0, extent[1], uint8(prec.PY))
	} else {
		local[1] = quant.Dequantize(0, 0, extent[1], 0)
	}
	if prec.PZ > 0 {
		local[2] = quant.Dequantize(cell.QZ[i], 0, extent[2], uint8(prec.PZ))
	} else {
		local[2] = quant.Dequantize(0, 0, extent[2], 0)
	}

	var color [3]uint8
	if prec.CX > 0 {
		color[0] = quant.DequantizeColor(cell.QR[i], uint8(prec.CX))
	} else {
		color[0] = quant.DequantizeColor(0, 0)
	}
	if prec.CY > 0 {
		color[1] = quant.DequantizeColor(cell.QG[i], uint8(prec.CY))
	} else {
		color[1] = quant.DequantizeColor(0, 0)
	}
	if prec.CZ > 0 {
		color[2] = quant.DequantizeColor(cell.QB[i], uint8(prec.CZ))
	} else {
		color[2] = quant.DequantizeColor(0, 0)
	}

	return model.Voxel{
		Position: [3]float32{
			origin[0] + local[0],
			origin[1] + local[1],
			origin[2] + local[2],
		},
		Color: color,
	}
}

// Blacklist returns the linear indices of every empty cell, ascending.
func Blacklist(g *Grid) []uint32 {
	var bl []uint32
	for i, c := range g.Cells {
		if c.Empty() {
			bl = append(bl, uint32(i))
		}
	}
	return bl
}
