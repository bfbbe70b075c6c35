package routes

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"
	"github.com/phambaophuc/thumbnail-creator/internal/config"
	"github.com/phambaophuc/thumbnail-creator/internal/http/handlers"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
	"github.com/phambaophuc/thumbnail-creator/internal/services/batch"
	"github.com/phambaophuc/thumbnail-creator/internal/services/metrics"
	"github.com/phambaophuc/thumbnail-creator/internal/services/processor"
	"github.com/phambaophuc/thumbnail-creator/internal/services/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var defaults = models.ThumbnailSettings{
	Width:   300,
	Height:  200,
	Quality: 0.8,
	Format:  models.FormatJPEG,
}

type upload struct {
	name string
	data []byte
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Storage: config.StorageConfig{
			MaxFileSize:  1 << 20,
			MaxFiles:     10,
			AllowedTypes: []string{"image/jpeg", "image/png"},
		},
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := zap.NewNop()

	proc := processor.NewImageProcessor()
	runner := batch.NewProcessor(proc, logger, m, batch.Options{Workers: 2, MaxDimension: 2000})
	sessions := session.NewService(session.NewMemoryStore(time.Hour), runner, logger, m, session.Options{
		Defaults:     defaults,
		MaxDimension: 2000,
	})
	h := handlers.NewImageHandler(sessions, proc, defaults, logger, cfg)

	return NewRouter(h, logger, reg, nil).SetupRoutes()
}

func photo(t *testing.T) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 400, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// brokenJPEG sniffs as a JPEG but cannot be decoded.
func brokenJPEG() []byte {
	return append([]byte{0xff, 0xd8, 0xff, 0xe0}, []byte("not really a jpeg")...)
}

func multipartBody(t *testing.T, files []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	for _, f := range files {
		part, err := w.CreateFormFile("images", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func do(router *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := do(router, http.MethodPost, "/api/v1/sessions", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var sess models.SessionResponse
	decode(t, w, &sess)
	require.NotEmpty(t, sess.ID)
	return sess.ID
}

func uploadImages(t *testing.T, router *gin.Engine, id string, files ...upload) models.SessionResponse {
	t.Helper()

	body, contentType := multipartBody(t, files, nil)
	w := do(router, http.MethodPut, "/api/v1/sessions/"+id+"/images", body, contentType)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sess models.SessionResponse
	decode(t, w, &sess)
	return sess
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var health models.HealthCheck
	env := decode(t, w, &health)
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Services["session_store"])
	assert.Equal(t, "healthy", health.Services["encoder_jpeg"])
	assert.Equal(t, "healthy", health.Services["encoder_png"])
	assert.Equal(t, "not configured", health.Services["encoder_webp"])
	assert.Equal(t, []models.Format{models.FormatJPEG, models.FormatPNG}, health.Formats)
}

func TestSessionFlow(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	sess := uploadImages(t, router, id,
		upload{name: "photo.png", data: photo(t)},
		upload{name: "notes.txt", data: []byte("plain text is skipped")},
		upload{name: "broken.jpg", data: brokenJPEG()},
	)
	require.Len(t, sess.Sources, 2)
	assert.Equal(t, "photo.png", sess.Sources[0].Name)
	assert.Equal(t, 400, sess.Sources[0].Width)
	assert.Equal(t, "broken.jpg", sess.Sources[1].Name)
	assert.Equal(t, models.PreviewPending, sess.Previews[0].Status)

	w := do(router, http.MethodPatch, "/api/v1/sessions/"+id+"/settings",
		strings.NewReader(`{"width":120,"height":90,"format":"png"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &sess)
	assert.Equal(t, models.ThumbnailSettings{Width: 120, Height: 90, Quality: 0.8, Format: models.FormatPNG}, sess.Settings)

	w = do(router, http.MethodPost, "/api/v1/sessions/"+id+"/previews", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var previews models.PreviewResponse
	decode(t, w, &previews)
	require.Len(t, previews.Items, 2)
	assert.Equal(t, 1, previews.Generated)
	assert.Equal(t, 1, previews.Failed)
	assert.Equal(t, models.PreviewGenerated, previews.Items[0].Status)
	assert.True(t, strings.HasPrefix(previews.Items[0].DataURL, "data:image/png;base64,"))
	assert.Equal(t, models.PreviewFailed, previews.Items[1].Status)
	assert.NotEmpty(t, previews.Items[1].Error)
	assert.Empty(t, previews.Items[1].DataURL)

	w = do(router, http.MethodGet, "/api/v1/sessions/"+id+"/previews/0", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	cfg, err := png.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width)
	assert.Equal(t, 90, cfg.Height)

	w = do(router, http.MethodGet, "/api/v1/sessions/"+id+"/previews/1", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(router, http.MethodGet, "/api/v1/sessions/"+id+"/previews/two", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/sessions/"+id+"/archive", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=thumbnails-120x90.zip", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", w.Header().Get("X-Thumbnails-Generated"))
	assert.Equal(t, "1", w.Header().Get("X-Thumbnails-Failed"))
	assert.Equal(t, []string{"photo_thumbnail.png"}, zipNames(t, w.Body.Bytes()))

	w = do(router, http.MethodDelete, "/api/v1/sessions/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodGet, "/api/v1/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsChangeResetsPreviews(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)
	uploadImages(t, router, id, upload{name: "photo.png", data: photo(t)})

	w := do(router, http.MethodPost, "/api/v1/sessions/"+id+"/previews", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPatch, "/api/v1/sessions/"+id+"/settings",
		strings.NewReader(`{"quality":0.5}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	var sess models.SessionResponse
	decode(t, w, &sess)
	assert.Equal(t, models.PreviewPending, sess.Previews[0].Status)

	w = do(router, http.MethodGet, "/api/v1/sessions/"+id+"/previews/0", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArchiveWithoutSuccesses(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)
	uploadImages(t, router, id, upload{name: "broken.jpg", data: brokenJPEG()})

	w := do(router, http.MethodGet, "/api/v1/sessions/"+id+"/archive", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	env := decode(t, w, nil)
	assert.False(t, env.Success)
	assert.Equal(t, "No thumbnails could be generated for download.", env.Error)
}

func TestUnsupportedFormat(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)
	uploadImages(t, router, id, upload{name: "photo.png", data: photo(t)})

	w := do(router, http.MethodPatch, "/api/v1/sessions/"+id+"/settings",
		strings.NewReader(`{"format":"webp"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/api/v1/sessions/"+id+"/previews", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	env := decode(t, w, nil)
	assert.Equal(t, "Failed to process one or more images. Check console for details.", env.Error)
}

func TestSessionErrors(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		want        int
	}{
		{
			name:   "unknown session",
			method: http.MethodGet,
			path:   "/api/v1/sessions/does-not-exist",
			want:   http.StatusNotFound,
		},
		{
			name:   "previews without images",
			method: http.MethodPost,
			path:   "/api/v1/sessions/" + id + "/previews",
			want:   http.StatusBadRequest,
		},
		{
			name:        "settings out of range",
			method:      http.MethodPatch,
			path:        "/api/v1/sessions/" + id + "/settings",
			body:        `{"width":5000}`,
			contentType: "application/json",
			want:        http.StatusBadRequest,
		},
		{
			name:        "settings unknown format",
			method:      http.MethodPatch,
			path:        "/api/v1/sessions/" + id + "/settings",
			body:        `{"format":"tiff"}`,
			contentType: "application/json",
			want:        http.StatusBadRequest,
		},
		{
			name:        "settings not json",
			method:      http.MethodPatch,
			path:        "/api/v1/sessions/" + id + "/settings",
			body:        `width=1`,
			contentType: "application/x-www-form-urlencoded",
			want:        http.StatusUnsupportedMediaType,
		},
		{
			name:        "images not multipart",
			method:      http.MethodPut,
			path:        "/api/v1/sessions/" + id + "/images",
			body:        `{}`,
			contentType: "application/json",
			want:        http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, tt.method, tt.path, strings.NewReader(tt.body), tt.contentType)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestUploadOnlyNonImages(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	body, contentType := multipartBody(t, []upload{{name: "notes.txt", data: []byte("hello")}}, nil)
	w := do(router, http.MethodPut, "/api/v1/sessions/"+id+"/images", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatelessArchive(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t,
		[]upload{
			{name: "photo.png", data: photo(t)},
			{name: "broken.jpg", data: brokenJPEG()},
		},
		map[string]string{"width": "64", "height": "48", "quality": "0.5", "format": "jpg"},
	)
	w := do(router, http.MethodPost, "/api/v1/thumbnails/archive", body, contentType)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "attachment; filename=thumbnails-64x48.zip", w.Header().Get("Content-Disposition"))

	data := w.Body.Bytes()
	assert.Equal(t, []string{"photo_thumbnail.jpeg"}, zipNames(t, data))

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	cfg, err := jpeg.DecodeConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestStatelessArchiveInvalidSettings(t *testing.T) {
	router := newTestRouter(t)

	for _, fields := range []map[string]string{
		{"width": "0"},
		{"width": "abc"},
		{"quality": "high"},
		{"format": "gif"},
	} {
		body, contentType := multipartBody(t, []upload{{name: "photo.png", data: photo(t)}}, fields)
		w := do(router, http.MethodPost, "/api/v1/thumbnails/archive", body, contentType)
		assert.Equal(t, http.StatusBadRequest, w.Code, fields)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)
	uploadImages(t, router, id, upload{name: "photo.png", data: photo(t)})

	w := do(router, http.MethodPost, "/api/v1/sessions/"+id+"/previews", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `thumbnail_renders_total{status="success"} 1`)
	assert.Contains(t, w.Body.String(), `thumbnail_batches_total{outcome="completed"} 1`)
}
