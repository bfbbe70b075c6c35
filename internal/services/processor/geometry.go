package processor

import (
	"image"
	"math"
)

// CropRect is a source rectangle in original-image pixel space. Coordinates
// are fractional; Bounds snaps them to the pixel grid.
type CropRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// CenterCrop returns the largest centered rectangle of an originalWidth x
// originalHeight image whose aspect ratio equals targetWidth/targetHeight.
// All arguments must be positive.
func CenterCrop(originalWidth, originalHeight, targetWidth, targetHeight int) CropRect {
	ow, oh := float64(originalWidth), float64(originalHeight)
	originalRatio := ow / oh
	targetRatio := float64(targetWidth) / float64(targetHeight)

	if originalRatio > targetRatio {
		// Wider than the target: keep full height, trim the sides.
		width := math.Min(oh*targetRatio, ow)
		return CropRect{
			X:      math.Max(0, (ow-width)/2),
			Y:      0,
			Width:  width,
			Height: oh,
		}
	}

	// Taller or equal: keep full width, trim top and bottom.
	// The Min/Max clamps only absorb float rounding when the ratios are equal.
	height := math.Min(ow/targetRatio, oh)
	return CropRect{
		X:      0,
		Y:      math.Max(0, (oh-height)/2),
		Width:  ow,
		Height: height,
	}
}

// Bounds rounds r to whole pixels, clamped to the original image and never
// narrower than one pixel on either axis.
func (r CropRect) Bounds(originalWidth, originalHeight int) image.Rectangle {
	x0 := clamp(int(math.Round(r.X)), 0, originalWidth)
	y0 := clamp(int(math.Round(r.Y)), 0, originalHeight)
	x1 := clamp(int(math.Round(r.X+r.Width)), 0, originalWidth)
	y1 := clamp(int(math.Round(r.Y+r.Height)), 0, originalHeight)

	if x1 <= x0 {
		x1 = min(x0+1, originalWidth)
		x0 = x1 - 1
	}
	if y1 <= y0 {
		y1 = min(y0+1, originalHeight)
		y0 = y1 - 1
	}
	return image.Rect(x0, y0, x1, y1)
}

func clamp(v, lo, hi int) int {
	return min(hi, max(lo, v))
}
