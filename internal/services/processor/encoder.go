package processor

import (
	"image"
	"image/png"
	"io"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
)

// Encoder writes an image in one output format.
type Encoder interface {
	Format() models.Format

	// Encode writes img at the given quality (1-100). Lossless encoders
	// accept and ignore it.
	Encode(w io.Writer, img image.Image, quality int) error

	// Available reports whether the encoder can run in this process.
	Available() bool
}

var (
	encodersMu sync.RWMutex
	encoders   = make(map[models.Format]Encoder)
)

// RegisterEncoder makes an encoder available to every ImageProcessor that uses
// the global registry. Registering a format twice replaces the earlier encoder.
func RegisterEncoder(enc Encoder) {
	encodersMu.Lock()
	defer encodersMu.Unlock()
	encoders[enc.Format()] = enc
}

func lookupEncoder(format models.Format) (Encoder, bool) {
	encodersMu.RLock()
	defer encodersMu.RUnlock()
	enc, ok := encoders[format]
	return enc, ok
}

func registeredEncoders() map[models.Format]Encoder {
	encodersMu.RLock()
	defer encodersMu.RUnlock()

	out := make(map[models.Format]Encoder, len(encoders))
	for format, enc := range encoders {
		out[format] = enc
	}
	return out
}

// RegisteredFormats lists formats with an available encoder.
func RegisteredFormats() []models.Format {
	var formats []models.Format
	for format, enc := range registeredEncoders() {
		if enc.Available() {
			formats = append(formats, format)
		}
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

type jpegEncoder struct{}

func (jpegEncoder) Format() models.Format { return models.FormatJPEG }
func (jpegEncoder) Available() bool       { return true }

func (jpegEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

type pngEncoder struct{}

func (pngEncoder) Format() models.Format { return models.FormatPNG }
func (pngEncoder) Available() bool       { return true }

func (pngEncoder) Encode(w io.Writer, img image.Image, _ int) error {
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
}

func init() {
	RegisterEncoder(jpegEncoder{})
	RegisterEncoder(pngEncoder{})
}
