package geom

import (
	"testing"

	"github.com/nathoo/tinytalkers/types"
)

func TestIntersects(t *testing.T) {
	base := types.Rect{X: 100, Y: 100, W: 50, H: 50}
	tests := []struct {
		name string
		b    types.Rect
		want bool
	}{
		{"overlap", types.Rect{X: 120, Y: 120, W: 50, H: 50}, true},
		{"inside", types.Rect{X: 110, Y: 110, W: 10, H: 10}, true},
		{"enclosing", types.Rect{X: 0, Y: 0, W: 500, H: 500}, true},
		{"touching right edge", types.Rect{X: 150, Y: 100, W: 10, H: 10}, false},
		{"touching bottom edge", types.Rect{X: 100, Y: 150, W: 10, H: 10}, false},
		{"touching left edge", types.Rect{X: 90, Y: 100, W: 10, H: 10}, false},
		{"one pixel in", types.Rect{X: 149, Y: 149, W: 10, H: 10}, true},
		{"far away", types.Rect{X: 400, Y: 400, W: 10, H: 10}, false},
		{"zero width inside", types.Rect{X: 120, Y: 120, W: 0, H: 10}, true},
	}
	for _, tt := range tests {
		if got := Intersects(base, tt.b); got != tt.want {
			t.Errorf("%s: Intersects = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIntersects_Symmetric(t *testing.T) {
	rects := []types.Rect{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 5, Y: 5, W: 10, H: 10},
		{X: 10, Y: 0, W: 10, H: 10},
		{X: 290, Y: 300, W: 200, H: 50},
		{X: 335, Y: 480, W: 10, H: 10},
		{X: -5, Y: -5, W: 3, H: 3},
	}
	for _, a := range rects {
		for _, b := range rects {
			if Intersects(a, b) != Intersects(b, a) {
				t.Errorf("asymmetric result for %+v / %+v", a, b)
			}
		}
	}
}

func TestContains(t *testing.T) {
	outer := types.Rect{X: 0, Y: 0, W: 100, H: 100}
	if !Contains(outer, types.Rect{X: 10, Y: 10, W: 20, H: 20}) {
		t.Error("expected inner rect to be contained")
	}
	if !Contains(outer, outer) {
		t.Error("rect should contain itself")
	}
	if Contains(outer, types.Rect{X: 90, Y: 90, W: 20, H: 20}) {
		t.Error("overhanging rect should not be contained")
	}
}

func TestFeetBox(t *testing.T) {
	got := FeetBox(types.Vec{X: 300, Y: 340}, 150, types.Size{W: 10, H: 10})
	want := types.Rect{X: 370, Y: 480, W: 10, H: 10}
	if got != want {
		t.Errorf("FeetBox = %+v, want %+v", got, want)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{12, 0, 10, 10},
		{5, 0, -1, 0},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}
