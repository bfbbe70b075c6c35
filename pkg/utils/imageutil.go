package utils

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectContentType sniffs the MIME type of data without any parameters.
func DetectContentType(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

// IsImageType reports whether contentType is in the image/* family.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// IsAllowedType checks contentType against an allow list. An empty list allows
// every image type.
func IsAllowedType(contentType string, allowed []string) bool {
	if !IsImageType(contentType) {
		return false
	}
	if len(allowed) == 0 {
		return true
	}

	ct := strings.ToLower(contentType)
	for _, a := range allowed {
		if ct == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// DataURL encodes data as a base64 data URL that a browser can display
// directly.
func DataURL(mimeType string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
