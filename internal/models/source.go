package models

import (
	"bytes"
	"image"
)

// SourceImage is a caller-owned upload. Width and Height come from the image
// header and stay zero when the buffer cannot be probed.
type SourceImage struct {
	Name        string `json:"name"`
	Data        []byte `json:"data"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type"`
}

// NewSourceImage never fails: an undecodable buffer is kept so that the batch
// can report it as a failure at its position.
func NewSourceImage(name string, data []byte, contentType string) SourceImage {
	src := SourceImage{
		Name:        name,
		Data:        data,
		ContentType: contentType,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		src.Width = cfg.Width
		src.Height = cfg.Height
	}
	return src
}

type SourceInfo struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

func (s SourceImage) Info(index int) SourceInfo {
	return SourceInfo{
		Index:       index,
		Name:        s.Name,
		Width:       s.Width,
		Height:      s.Height,
		ContentType: s.ContentType,
		FileSize:    int64(len(s.Data)),
	}
}
