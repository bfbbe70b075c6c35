package models

import "errors"

var (
	// Per-image errors. They never escape a batch; they end up in a Failure result.
	ErrDecode = errors.New("decode error")
	ErrEncode = errors.New("encode error")

	ErrPixelLimitExceeded = errors.New("the image exceeds max pixels limit")

	// Whole-operation errors.
	ErrEmptyArchive       = errors.New("no thumbnails could be generated for download")
	ErrUnsupportedContext = errors.New("rendering context unavailable")

	ErrInvalidSettings = errors.New("invalid thumbnail settings")
	ErrSessionNotFound = errors.New("session not found")
	ErrNoImages        = errors.New("no images provided")
	ErrPreviewNotFound = errors.New("preview not generated")
	ErrSuperseded      = errors.New("batch superseded by a newer change")
)
