// Package geom implements the axis-aligned bounding box math used for all
// collision and trigger tests. Everything here is pure.
package geom

import "github.com/nathoo/tinytalkers/types"

// Intersects reports whether two rectangles overlap. Edges that only touch
// do not count. The comparison is exact; level geometry is tuned against it.
func Intersects(a, b types.Rect) bool {
	return a.X < b.X+b.W &&
		a.X+a.W > b.X &&
		a.Y < b.Y+b.H &&
		a.Y+a.H > b.Y
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner types.Rect) bool {
	return inner.X >= outer.X &&
		inner.Y >= outer.Y &&
		inner.X+inner.W <= outer.X+outer.W &&
		inner.Y+inner.H <= outer.Y+outer.H
}

// FeetBox returns the player's collision box: a small rectangle anchored at
// the bottom centre of a square sprite drawn at pos.
func FeetBox(pos types.Vec, sprite float64, feet types.Size) types.Rect {
	return types.Rect{
		X: pos.X + (sprite-feet.W)/2,
		Y: pos.Y + sprite - feet.H,
		W: feet.W,
		H: feet.H,
	}
}

// Clamp limits v to [lo, hi]. If hi < lo the result is lo.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
