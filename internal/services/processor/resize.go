package processor

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// resizeImage stretches or shrinks img to exactly width x height.
func (p *ImageProcessor) resizeImage(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, max(1, width), max(1, height), p.filter)
}

// ParseFilter maps a config name onto an imaging resample filter.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "catmullrom":
		return imaging.CatmullRom, nil
	case "linear":
		return imaging.Linear, nil
	case "box":
		return imaging.Box, nil
	case "nearest":
		return imaging.NearestNeighbor, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q", name)
	}
}
