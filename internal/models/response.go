package models

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type PreviewItem struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	MIMEType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	DataURL  string `json:"data_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

type PreviewResponse struct {
	SessionID string            `json:"session_id,omitempty"`
	Settings  ThumbnailSettings `json:"settings"`
	Items     []PreviewItem     `json:"items"`
	Generated int               `json:"generated"`
	Failed    int               `json:"failed"`
}

type SessionResponse struct {
	ID       string            `json:"id"`
	Settings ThumbnailSettings `json:"settings"`
	Sources  []SourceInfo      `json:"sources"`
	Previews []PreviewItem     `json:"previews"`
}
