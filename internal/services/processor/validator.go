package processor

import (
	"bytes"
	"fmt"
	"image"

	"github.com/phambaophuc/thumbnail-creator/internal/models"
)

// ValidateSource rejects buffers that cannot be rendered before any decoding
// work is spent on them. Only the image header is read to check the pixel
// count, so a small file declaring a huge raster never gets decoded.
func (p *ImageProcessor) ValidateSource(src models.SourceImage) error {
	size := int64(len(src.Data))
	if size == 0 {
		return fmt.Errorf("%w: %s: empty buffer", models.ErrDecode, src.Name)
	}
	if p.maxSourceSize > 0 && size > p.maxSourceSize {
		return fmt.Errorf("%w: %s: file size %d exceeds maximum allowed size %d",
			models.ErrDecode, src.Name, size, p.maxSourceSize)
	}
	if p.maxPixels <= 0 {
		return nil
	}

	// An unreadable header is left for the full decode to report.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src.Data))
	if err != nil {
		return nil
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > int64(p.maxPixels) {
		return fmt.Errorf("%w: %s: %dx%d: %w",
			models.ErrDecode, src.Name, cfg.Width, cfg.Height, models.ErrPixelLimitExceeded)
	}
	return nil
}
