// Package model defines the data types shared across the point cloud
// codec's internal packages: the voxel and bounding-box geometry, the
// grid partitioning parameters, and the per-cell precision descriptor.
//
// It exists so that internal/grid, internal/cellcodec and internal/wire
// can share these types without importing the root package (which itself
// imports all three), and so the root package can re-export them as the
// public API via type aliases.
package model

// Voxel is a single colored point: a 3D float32 position and an 8-bit
// RGB color.
type Voxel struct {
	Position [3]float32
	Color    [3]uint8
}

// BoundingBox is an axis-aligned box with Min[i] <= Max[i] per axis.
type BoundingBox struct {
	Min [3]float32
	Max [3]float32
}

// Extent returns the per-axis width (Max - Min).
func (b BoundingBox) Extent() [3]float32 {
	return [3]float32{
		b.Max[0] - b.Min[0],
		b.Max[1] - b.Min[1],
		b.Max[2] - b.Min[2],
	}
}

// Contains reports whether p lies within the box, inclusive of the
// boundary.
func (b BoundingBox) Contains(p [3]float32) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// GridDimensions is the cell count along each axis of the grid partition.
// Each axis count must be >= 1.
type GridDimensions struct {
	Dx, Dy, Dz uint8
}

// Count returns the total number of cells, Dx*Dy*Dz.
func (d GridDimensions) Count() int {
	return int(d.Dx) * int(d.Dy) * int(d.Dz)
}

// Index returns the linear cell index for cell coordinates (x,y,z), per
// i = x + Dx*(y + Dy*z).
func (d GridDimensions) Index(x, y, z int) int {
	return x + int(d.Dx)*(y+int(d.Dy)*z)
}

// Coords inverts Index, returning the (x,y,z) cell coordinates for a
// linear index.
func (d GridDimensions) Coords(i int) (x, y, z int) {
	dx, dy := int(d.Dx), int(d.Dy)
	x = i % dx
	rest := i / dx
	y = rest % dy
	z = rest / dy
	return
}

// BitCount is the number of bits used to encode one scalar component,
// in [0,16]. A value of 0 means the component is omitted entirely.
type BitCount uint8

// MaxBitCount is the largest bit width a single component may use.
const MaxBitCount BitCount = 16

// Valid reports whether b is within [0, MaxBitCount].
func (b BitCount) Valid() bool {
	return b <= MaxBitCount
}

// CellPrecision holds the six bit-widths governing quantization of one
// cell: three for position (px,py,pz) and three for color (cx,cy,cz).
type CellPrecision struct {
	PX, PY, PZ BitCount
	CX, CY, CZ BitCount
}

// PositionBits returns px+py+pz.
func (p CellPrecision) PositionBits() int {
	return int(p.PX) + int(p.PY) + int(p.PZ)
}

// ColorBits returns cx+cy+cz.
func (p CellPrecision) ColorBits() int {
	return int(p.CX) + int(p.CY) + int(p.CZ)
}

// TotalBits returns the number of payload bits used per point in a cell
// with this precision.
func (p CellPrecision) TotalBits() int {
	return p.PositionBits() + p.ColorBits()
}

// Valid reports whether every field is within [0, MaxBitCount].
func (p CellPrecision) Valid() bool {
	return p.PX.Valid() && p.PY.Valid() && p.PZ.Valid() &&
		p.CX.Valid() && p.CY.Valid() && p.CZ.Valid()
}

// GridPrecisionDescriptor is the complete, static description of a grid
// partition: its bounding box, its dimensions, and one CellPrecision per
// cell in linear-index order.
type GridPrecisionDescriptor struct {
	BoundingBox    BoundingBox
	Dimensions     GridDimensions
	CellPrecisions []CellPrecision
}
