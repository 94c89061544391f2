package grid

import (
	"testing"

	"github.com/pcc-go/pcc/internal/model"
)

func uniformPrecision(n int, p model.CellPrecision) []model.CellPrecision {
	out := make([]model.CellPrecision, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func TestBuildInvertSingleCellRoundTrip(t *testing.T) {
	box := model.BoundingBox{Min: [3]float32{0, 0, 0}, Max: [3]float32{10, 10, 10}}
	dims := model.GridDimensions{Dx: 1, Dy: 1, Dz: 1}
	prec := model.CellPrecision{PX: 8, PY: 8, PZ: 8, CX: 8, CY: 8, CZ: 8}
	desc := model.GridPrecisionDescriptor{
		BoundingBox:    box,
		Dimensions:     dims,
		CellPrecisions: uniformPrecision(dims.Count(), prec),
	}

	v := model.Voxel{Position: [3]float32{5, 5, 5}, Color: [3]uint8{10, 20, 30}}
	g := Build([]model.Voxel{v}, desc)

	if g.Cells[0].NumElements != 1 {
		t.Fatalf("NumElements = %d, want 1", g.Cells[0].NumElements)
	}
	if len(Blacklist(g)) != 0 {
		t.Errorf("blacklist should be empty, got %v", Blacklist(g))
	}

	out := Invert(g, desc)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	step := float32(10) / 256
	for axis := 0; axis < 3; axis++ {
		diff := out[0].Position[axis] - v.Position[axis]
		if diff < 0 {
			diff = -diff
		}
		if diff > step {
			t.Errorf("axis %d: reconstructed %v, original %v, diff %v > step %v", axis, out[0].Position[axis], v.Position[axis], diff, step)
		}
	}
}

func TestBuildDropsOutOfBoxVoxels(t *testing.T) {
	box := model.BoundingBox{Min: [3]float32{0, 0, 0}, Max: [3]float32{10, 10, 10}}
	dims := model.GridDimensions{Dx: 2, Dy: 2, Dz: 2}
	prec := model.CellPrecision{PX: 4, PY: 4, PZ: 4, CX: 4, CY: 4, CZ: 4}
	desc := model.GridPrecisionDescriptor{
		BoundingBox:    box,
		Dimensions:     dims,
		CellPrecisions: uniformPrecision(dims.Count(), prec),
	}

	voxels := []model.Voxel{
		{Position: [3]float32{5, 5, 5}},
		{Position: [3]float32{-1, 5, 5}},  // outside
		{Position: [3]float32{5, 11, 5}},  // outside
	}
	g := Build(voxels, desc)
	out := Invert(g, desc)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1 (2 of 3 voxels are out of box)", len(out))
	}
}

func TestTwoVoxelsSameCellBlacklistLength(t *testing.T) {
	box := model.BoundingBox{Min: [3]float32{0, 0, 0}, Max: [3]float32{8, 8, 8}}
	dims := model.GridDimensions{Dx: 2, Dy: 2, Dz: 2}
	prec := model.CellPrecision{PX: 4, PY: 4, PZ: 4, CX: 4, CY: 4, CZ: 4}
	desc := model.GridPrecisionDescriptor{
		BoundingBox:    box,
		Dimensions:     dims,
		CellPrecisions: uniformPrecision(dims.Count(), prec),
	}

	voxels := []model.Voxel{
		{Position: [3]float32{1, 1, 1}},
		{Position: [3]float32{1.5, 1.5, 1.5}},
	}
	g := Build(voxels, desc)
	bl := Blacklist(g)
	if len(bl) != 7 {
		t.Fatalf("blacklist length = %d, want 7", len(bl))
	}
	if g.Cells[0].NumElements != 2 {
		t.Errorf("cell 0 NumElements = %d, want 2", g.Cells[0].NumElements)
	}
}

func TestAllEmptyGridBlacklistsEveryCell(t *testing.T) {
	box := model.BoundingBox{Min: [3]float32{0, 0, 0}, Max: [3]float32{4, 4, 4}}
	dims := model.GridDimensions{Dx: 4, Dy: 4, Dz: 4}
	prec := model.CellPrecision{PX: 4, PY: 4, PZ: 4, CX: 4, CY: 4, CZ: 4}
	desc := model.GridPrecisionDescriptor{
		BoundingBox:    box,
		Dimensions:     dims,
		CellPrecisions: uniformPrecision(dims.Count(), prec),
	}

	g := Build(nil, desc)
	bl := Blacklist(g)
	if len(bl) != 64 {
		t.Fatalf("blacklist length = %d, want 64", len(bl))
	}
	for i, idx := range bl {
		if int(idx) != i {
			t.Fatalf("blacklist not ascending/complete: bl[%d] = %d", i, idx)
		}
	}
	out := Invert(g, desc)
	if len(out) != 0 {
		t.Errorf("len(out) = %d, want 0", len(out))
	}
}

func TestZeroPositionPrecisionSubstitutesCellMidpoint(t *testing.T) {
	box := model.BoundingBox{Min: [3]float32{0, 0, 0}, Max: [3]float32{10, 10, 10}}
	dims := model.GridDimensions{Dx: 1, Dy: 1, Dz: 1}
	prec := model.CellPrecision{PX: 0, PY: 0, PZ: 0, CX: 8, CY: 8, CZ: 8}
	desc := model.GridPrecisionDescriptor{
		BoundingBox:    box,
		Dimensions:     dims,
		CellPrecisions: uniformPrecision(dims.Count(), prec),
	}

	v := model.Voxel{Position: [3]float32{3, 7, 1}, Color: [3]uint8{200, 100, 50}}
	g := Build([]model.Voxel{v}, desc)
	out := Invert(g, desc)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	want := [3]float32{5, 5, 5}
	if out[0].Position != want {
		t.Errorf("Position = %v, want cell-box midpoint %v", out[0].Position, want)
	}
	for ch := 0; ch < 3; ch++ {
		diff := int(out[0].Color[ch]) - int(v.Color[ch])
		if diff < 0 {
			diff = -diff
		}
		if diff > 1 {
			t.Errorf("color channel %d: got %d, want ~%d", ch, out[0].Color[ch], v.Color[ch])
		}
	}
}
