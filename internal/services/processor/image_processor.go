package processor

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
)

const (
	DefaultMaxSourceSize = 20 << 20 // 20MB
	DefaultMaxPixels     = 50_000_000
)

type ProcessorOptions struct {
	// Filter is the resampling kernel; the zero value resamples nearest-neighbour.
	Filter        imaging.ResampleFilter
	MaxSourceSize int64
	// MaxPixels caps width*height of a source before it is decoded. Zero
	// disables the check.
	MaxPixels int

	// Encoders overrides the global registry when non-nil.
	Encoders map[models.Format]Encoder
}

var DefaultOptions = ProcessorOptions{
	Filter:        imaging.Lanczos,
	MaxSourceSize: DefaultMaxSourceSize,
	MaxPixels:     DefaultMaxPixels,
}

// ImageProcessor renders one source into one thumbnail. It holds no per-call
// state and is safe for concurrent use.
type ImageProcessor struct {
	filter        imaging.ResampleFilter
	maxSourceSize int64
	maxPixels     int
	encoders      map[models.Format]Encoder
}

func NewImageProcessor(opts ...ProcessorOptions) *ImageProcessor {
	options := DefaultOptions
	if len(opts) > 0 {
		options = opts[0]
	}
	return &ImageProcessor{
		filter:        options.Filter,
		maxSourceSize: options.MaxSourceSize,
		maxPixels:     options.MaxPixels,
		encoders:      options.Encoders,
	}
}

var bufferPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	bufferPool.Put(buf)
}

// Supports returns ErrUnsupportedContext when no available encoder exists for
// format. No render of that format can succeed in this process.
func (p *ImageProcessor) Supports(format models.Format) error {
	_, err := p.encoderFor(format)
	return err
}

// Render produces a thumbnail of exactly settings.Width x settings.Height.
// Every failure, including a decoder panic, is returned as a Failure result.
func (p *ImageProcessor) Render(src models.SourceImage, settings models.ThumbnailSettings) (result models.RenderResult) {
	defer func() {
		if r := recover(); r != nil {
			result = models.Failure(fmt.Errorf("%w: %s: panic: %v", models.ErrDecode, src.Name, r))
		}
	}()

	data, mimeType, err := p.renderThumbnail(src, settings)
	if err != nil {
		return models.Failure(err)
	}
	return models.Success(data, mimeType)
}

func (p *ImageProcessor) renderThumbnail(src models.SourceImage, settings models.ThumbnailSettings) ([]byte, string, error) {
	enc, err := p.encoderFor(settings.Format)
	if err != nil {
		return nil, "", err
	}

	img, err := p.decodeImage(src)
	if err != nil {
		return nil, "", err
	}

	// Crop first, then scale the crop to fill the output exactly.
	thumb := p.resizeImage(p.cropImage(img, settings.Width, settings.Height), settings.Width, settings.Height)

	buffer := getBuffer()
	defer putBuffer(buffer)

	if err := enc.Encode(buffer, thumb, settings.EncoderQuality()); err != nil {
		return nil, "", fmt.Errorf("%w: %s as %s: %w", models.ErrEncode, src.Name, settings.Format, err)
	}

	data := make([]byte, buffer.Len())
	copy(data, buffer.Bytes())
	return data, settings.Format.MIMEType(), nil
}

func (p *ImageProcessor) encoderFor(format models.Format) (Encoder, error) {
	var (
		enc Encoder
		ok  bool
	)
	if p.encoders != nil {
		enc, ok = p.encoders[format]
	} else {
		enc, ok = lookupEncoder(format)
	}
	if !ok || enc == nil || !enc.Available() {
		return nil, fmt.Errorf("%w: no encoder for %q", models.ErrUnsupportedContext, format)
	}
	return enc, nil
}
