package processor

import (
	"image"

	"github.com/disintegration/imaging"
)

// cropImage cuts the centered target-aspect rectangle out of img.
func (p *ImageProcessor) cropImage(img image.Image, targetWidth, targetHeight int) image.Image {
	bounds := img.Bounds()
	rect := CenterCrop(bounds.Dx(), bounds.Dy(), targetWidth, targetHeight).
		Bounds(bounds.Dx(), bounds.Dy()).
		Add(bounds.Min)

	return imaging.Crop(img, rect)
}
