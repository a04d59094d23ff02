package mathutil

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// AlignUp rounds v up to the next multiple of alignment. An alignment of
// zero returns v unchanged.
func AlignUp[T constraints.Integer](v, alignment T) T {
	if alignment == 0 {
		return v
	}
	rem := v % alignment
	if rem == 0 {
		return v
	}
	return v + alignment - rem
}

// MipLevels returns the length of the full mip chain for a width x height
// image, counting the base level.
func MipLevels(width, height uint32) uint32 {
	levels := uint32(1)
	for width > 1 || height > 1 {
		width = max(width/2, 1)
		height = max(height/2, 1)
		levels++
	}
	return levels
}

// MipExtent returns the size of mip level `level` for a base extent,
// never dropping below 1.
func MipExtent(base uint32, level uint32) uint32 {
	for i := uint32(0); i < level; i++ {
		base = max(base/2, 1)
	}
	return base
}
