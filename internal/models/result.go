package models

type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailure ResultStatus = "failure"
)

// RenderResult is the outcome for one source: Data and MIMEType are set on
// success, Reason on failure. Err keeps the wrapped error in-process only.
type RenderResult struct {
	Status   ResultStatus `json:"status"`
	Data     []byte       `json:"data,omitempty"`
	MIMEType string       `json:"mime_type,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Err      error        `json:"-"`
}

func Success(data []byte, mimeType string) RenderResult {
	return RenderResult{
		Status:   StatusSuccess,
		Data:     data,
		MIMEType: mimeType,
	}
}

func Failure(err error) RenderResult {
	return RenderResult{
		Status: StatusFailure,
		Reason: err.Error(),
		Err:    err,
	}
}

func (r RenderResult) OK() bool {
	return r.Status == StatusSuccess
}

type ArchiveEntry struct {
	Name string
	Data []byte
}
