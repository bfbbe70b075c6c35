// Package webpenc registers a lossy WebP encoder backed by libwebp.
//
// Import it for its side effect:
//
//	import _ "github.com/phambaophuc/thumbnail-creator/internal/services/processor/webpenc"
//
// Building it requires cgo and the libwebp development headers.
package webpenc

import (
	"fmt"
	"image"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
	"github.com/phambaophuc/thumbnail-creator/internal/services/processor"
)

type Encoder struct{}

func (Encoder) Format() models.Format { return models.FormatWebP }
func (Encoder) Available() bool       { return true }

func (Encoder) Encode(w io.Writer, img image.Image, quality int) error {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return fmt.Errorf("webp options: %w", err)
	}
	return webp.Encode(w, img, options)
}

func init() {
	processor.RegisterEncoder(Encoder{})
}
