package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
	"github.com/phambaophuc/thumbnail-creator/internal/services/session"
	"github.com/phambaophuc/thumbnail-creator/pkg/utils"
	"go.uber.org/zap"
)

const (
	emptyArchiveMessage = "No thumbnails could be generated for download."
	unsupportedMessage  = "Failed to process one or more images. Check console for details."
)

// multipartOverhead leaves room for part headers, boundaries and the
// settings fields on top of the file bytes.
const multipartOverhead = 64 << 10

var errInvalidForm = errors.New("failed to parse form data")

// === REQUEST PARSING ===

func (h *ImageHandler) parseMultipartFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	if limit := h.bodyLimit(); limit > 0 {
		if c.Request.ContentLength > limit {
			return nil, fmt.Errorf("%w: request body of %d bytes exceeds the %d byte limit",
				errFileTooLarge, c.Request.ContentLength, limit)
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	if err := c.Request.ParseMultipartForm(h.config.Storage.MaxFileSize * 10); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request body exceeds the %d byte limit", errFileTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %v", errInvalidForm, err)
	}

	files := c.Request.MultipartForm.File[imagesParamKey]
	if len(files) == 0 {
		return nil, models.ErrNoImages
	}
	if limit := h.config.Storage.MaxFiles; limit > 0 && len(files) > limit {
		return nil, fmt.Errorf("%w: too many files: at most %d images per request", errInvalidForm, limit)
	}

	return files, nil
}

// bodyLimit is the largest upload request accepted, zero when either the
// file size or the file count is unbounded.
func (h *ImageHandler) bodyLimit() int64 {
	maxSize, maxFiles := h.config.Storage.MaxFileSize, h.config.Storage.MaxFiles
	if maxSize <= 0 || maxFiles <= 0 {
		return 0
	}
	return maxSize*int64(maxFiles) + multipartOverhead
}

// parseSettingsForm reads the settings fields of a multipart form. Missing
// fields keep their default value.
func (h *ImageHandler) parseSettingsForm(c *gin.Context) (models.ThumbnailSettings, error) {
	settings := h.defaults

	if value := c.PostForm("width"); value != "" {
		width, err := parseInt(value, "width")
		if err != nil {
			return settings, err
		}
		settings.Width = width
	}

	if value := c.PostForm("height"); value != "" {
		height, err := parseInt(value, "height")
		if err != nil {
			return settings, err
		}
		settings.Height = height
	}

	if value := c.PostForm("quality"); value != "" {
		quality, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return settings, fmt.Errorf("%w: invalid quality: must be a number", models.ErrInvalidSettings)
		}
		settings.Quality = quality
	}

	if value := c.PostForm("format"); value != "" {
		format, err := models.ParseFormat(value)
		if err != nil {
			return settings, err
		}
		settings.Format = format
	}

	return settings, nil
}

func parseInt(value, fieldName string) (int, error) {
	num, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: must be a number", models.ErrInvalidSettings, fieldName)
	}
	return num, nil
}

// === FILE OPERATIONS ===

// readSources loads every uploaded image into memory, in upload order. Files
// whose sniffed type is not an image are dropped. Files that look like images
// but fail to decode are kept and fail later in the batch.
func (h *ImageHandler) readSources(files []*multipart.FileHeader) ([]models.SourceImage, error) {
	maxSize := h.config.Storage.MaxFileSize
	sources := make([]models.SourceImage, 0, len(files))

	for _, fh := range files {
		if maxSize > 0 && fh.Size > maxSize {
			return nil, fmt.Errorf("%w: %s exceeds the %d byte limit", errFileTooLarge, fh.Filename, maxSize)
		}

		data, err := readFile(fh, maxSize)
		if err != nil {
			return nil, err
		}

		contentType := utils.DetectContentType(data)
		if !utils.IsAllowedType(contentType, h.config.Storage.AllowedTypes) {
			h.logger.Info("Skipping non-image upload",
				zap.String("filename", fh.Filename),
				zap.String("content_type", contentType))
			continue
		}

		sources = append(sources, models.NewSourceImage(fh.Filename, data, contentType))
	}

	if len(sources) == 0 {
		return nil, models.ErrNoImages
	}
	return sources, nil
}

var errFileTooLarge = errors.New("file too large")

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds the %d byte limit", errFileTooLarge, fh.Filename, maxSize)
	}
	return data, nil
}

// === RESPONSE HANDLING ===

func (h *ImageHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *ImageHandler) respondServiceError(c *gin.Context, err error) {
	statusCode, message := statusFor(err)
	if statusCode >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	h.respondError(c, statusCode, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidSettings), errors.Is(err, models.ErrNoImages),
		errors.Is(err, errInvalidForm):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrPreviewNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrSuperseded):
		return http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrEmptyArchive):
		return http.StatusUnprocessableEntity, emptyArchiveMessage
	case errors.Is(err, models.ErrUnsupportedContext):
		return http.StatusServiceUnavailable, unsupportedMessage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "request canceled"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *ImageHandler) respondWithArchive(c *gin.Context, a *session.Archive) {
	generated, failed := countResults(a.Batch.Results)

	c.Header("Content-Disposition", contentDisposition("attachment", a.Filename))
	c.Header("X-Thumbnails-Generated", strconv.Itoa(generated))
	c.Header("X-Thumbnails-Failed", strconv.Itoa(failed))
	c.Data(http.StatusOK, "application/zip", a.Data)
}

func contentDisposition(disposition, filename string) string {
	return mime.FormatMediaType(disposition, map[string]string{"filename": filename})
}

func (h *ImageHandler) sessionResponse(sess *models.Session) models.SessionResponse {
	sources := make([]models.SourceInfo, len(sess.Sources))
	previews := make([]models.PreviewItem, len(sess.Sources))

	for i, src := range sess.Sources {
		sources[i] = src.Info(i)
		previews[i] = models.PreviewItem{
			Index:  i,
			Name:   src.Name,
			Status: models.PreviewPending,
		}
		if i < len(sess.Results) {
			previews[i] = previewItem(i, src, sess.Results[i], false)
		}
	}

	return models.SessionResponse{
		ID:       sess.ID,
		Settings: sess.Settings,
		Sources:  sources,
		Previews: previews,
	}
}

func buildPreviewResponse(b *session.Batch) models.PreviewResponse {
	items := make([]models.PreviewItem, len(b.Sources))
	for i, src := range b.Sources {
		items[i] = previewItem(i, src, b.Results[i], true)
	}

	generated, failed := countResults(b.Results)
	return models.PreviewResponse{
		SessionID: b.SessionID,
		Settings:  b.Settings,
		Items:     items,
		Generated: generated,
		Failed:    failed,
	}
}

func previewItem(index int, src models.SourceImage, result models.RenderResult, withData bool) models.PreviewItem {
	item := models.PreviewItem{
		Index: index,
		Name:  src.Name,
	}

	if !result.OK() {
		item.Status = models.PreviewFailed
		item.Error = result.Reason
		return item
	}

	item.Status = models.PreviewGenerated
	item.MIMEType = result.MIMEType
	item.FileSize = int64(len(result.Data))
	if withData {
		item.DataURL = utils.DataURL(result.MIMEType, result.Data)
	}
	return item
}

func countResults(results []models.RenderResult) (generated, failed int) {
	for _, r := range results {
		if r.OK() {
			generated++
		} else {
			failed++
		}
	}
	return generated, failed
}

// === UTILITY METHODS ===

func (h *ImageHandler) calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != "healthy" && status != "not configured" {
			return "unhealthy"
		}
	}
	return "healthy"
}
