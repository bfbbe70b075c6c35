package utils

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", DetectContentType(pngBytes(t)))
	assert.Equal(t, "text/plain", DetectContentType([]byte("hello world")))
}

func TestIsAllowedType(t *testing.T) {
	allowed := []string{"image/jpeg", "image/png"}

	assert.True(t, IsAllowedType("image/png", allowed))
	assert.True(t, IsAllowedType("IMAGE/JPEG", allowed))
	assert.False(t, IsAllowedType("image/gif", allowed))
	assert.False(t, IsAllowedType("text/plain", allowed))
	assert.True(t, IsAllowedType("image/x-icon", nil))
	assert.False(t, IsAllowedType("application/pdf", nil))
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQID", DataURL("image/png", []byte{1, 2, 3}))
	assert.Equal(t, "data:image/jpeg;base64,", DataURL("image/jpeg", nil))
}
