package processor

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/thumbnail-creator/internal/models"

	// imaging registers jpeg, png, gif, bmp and tiff; webp needs an explicit import.
	_ "golang.org/x/image/webp"
)

// decodeImage decodes the source honouring EXIF orientation, the way browsers
// present photos.
func (p *ImageProcessor) decodeImage(src models.SourceImage) (image.Image, error) {
	if err := p.ValidateSource(src); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(src.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrDecode, src.Name, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s: zero-dimension image", models.ErrDecode, src.Name)
	}
	return img, nil
}
