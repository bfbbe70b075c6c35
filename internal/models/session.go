package models

import "time"

type Session struct {
	ID         string            `json:"id"`
	Settings   ThumbnailSettings `json:"settings"`
	Sources    []SourceImage     `json:"sources"`
	Results    []RenderResult    `json:"results,omitempty"`
	Generation int64             `json:"generation"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Preview states reported per source.
const (
	PreviewPending   = "pending"
	PreviewGenerated = "generated"
	PreviewFailed    = "not_generated"
)

// ResetResults drops every render outcome; called whenever settings or the
// source set change.
func (s *Session) ResetResults() {
	s.Results = nil
	s.Generation++
}
