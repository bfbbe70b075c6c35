package models

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat accepts the format names used by the settings form and the
// common "jpg" alias.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q", ErrInvalidSettings, value)
	}
}

func (f Format) MIMEType() string {
	return "image/" + string(f)
}

// Extension is the file extension (without dot) used for archive entries.
func (f Format) Extension() string {
	return string(f)
}

func (f Format) Valid() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatWebP:
		return true
	}
	return false
}

// ThumbnailSettings is passed by value; a copy taken when a batch starts is the
// snapshot every render of that batch uses.
type ThumbnailSettings struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Quality float64 `json:"quality"`
	Format  Format  `json:"format"`
}

// SettingsPatch carries a partial update from the settings form.
type SettingsPatch struct {
	Width   *int     `json:"width,omitempty"`
	Height  *int     `json:"height,omitempty"`
	Quality *float64 `json:"quality,omitempty"`
	Format  *string  `json:"format,omitempty"`
}

// Validate checks the settings against the dimension limit. A maxDimension of
// zero disables the upper bound.
func (s ThumbnailSettings) Validate(maxDimension int) error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: width and height must be positive, got %dx%d", ErrInvalidSettings, s.Width, s.Height)
	}
	if maxDimension > 0 && (s.Width > maxDimension || s.Height > maxDimension) {
		return fmt.Errorf("%w: width and height must not exceed %d, got %dx%d", ErrInvalidSettings, maxDimension, s.Width, s.Height)
	}
	if s.Quality < 0 || s.Quality > 1 {
		return fmt.Errorf("%w: quality must be within [0,1], got %v", ErrInvalidSettings, s.Quality)
	}
	if !s.Format.Valid() {
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidSettings, s.Format)
	}
	return nil
}

// Apply returns a copy of s with the patch fields that are set.
func (s ThumbnailSettings) Apply(patch SettingsPatch) (ThumbnailSettings, error) {
	out := s
	if patch.Width != nil {
		out.Width = *patch.Width
	}
	if patch.Height != nil {
		out.Height = *patch.Height
	}
	if patch.Quality != nil {
		out.Quality = *patch.Quality
	}
	if patch.Format != nil {
		format, err := ParseFormat(*patch.Format)
		if err != nil {
			return s, err
		}
		out.Format = format
	}
	return out, nil
}

// EncoderQuality maps the [0,1] quality hint onto the 1-100 scale lossy
// encoders expect.
func (s ThumbnailSettings) EncoderQuality() int {
	q := int(s.Quality*100 + 0.5)
	return min(100, max(1, q))
}
