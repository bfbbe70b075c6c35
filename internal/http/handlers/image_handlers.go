package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/thumbnail-creator/internal/config"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
	"github.com/phambaophuc/thumbnail-creator/internal/services/archive"
	"github.com/phambaophuc/thumbnail-creator/internal/services/session"
	"go.uber.org/zap"
)

const (
	imagesParamKey = "images"
	sessionIDParam = "id"
	indexParam     = "index"
)

// FormatChecker reports whether thumbnails of a format can be encoded.
type FormatChecker interface {
	Supports(format models.Format) error
}

type ImageHandler struct {
	sessions *session.Service
	formats  FormatChecker
	defaults models.ThumbnailSettings
	logger   *zap.Logger
	config   *config.Config
}

func NewImageHandler(
	sessions *session.Service,
	formats FormatChecker,
	defaults models.ThumbnailSettings,
	logger *zap.Logger,
	config *config.Config,
) *ImageHandler {
	return &ImageHandler{
		sessions: sessions,
		formats:  formats,
		defaults: defaults,
		logger:   logger,
		config:   config,
	}
}

// === SESSION ENDPOINTS ===

func (h *ImageHandler) CreateSession(c *gin.Context) {
	sess, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{
		Success: true,
		Data:    h.sessionResponse(sess),
	})
}

func (h *ImageHandler) GetSession(c *gin.Context) {
	sess, err := h.sessions.Get(c.Request.Context(), c.Param(sessionIDParam))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.sessionResponse(sess),
	})
}

func (h *ImageHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param(sessionIDParam)); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true})
}

// ReplaceImages swaps the session's selection for the uploaded files. Files
// that are not images are skipped.
func (h *ImageHandler) ReplaceImages(c *gin.Context) {
	files, err := h.parseMultipartFiles(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	sources, err := h.readSources(files)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	sess, err := h.sessions.ReplaceSources(c.Request.Context(), c.Param(sessionIDParam), sources)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.sessionResponse(sess),
	})
}

func (h *ImageHandler) UpdateSettings(c *gin.Context) {
	var patch models.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid settings payload: "+err.Error())
		return
	}

	sess, err := h.sessions.UpdateSettings(c.Request.Context(), c.Param(sessionIDParam), patch)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.sessionResponse(sess),
	})
}

// === THUMBNAIL ENDPOINTS ===

// GeneratePreviews renders the selection and returns every outcome in input
// order, successes as data URLs.
func (h *ImageHandler) GeneratePreviews(c *gin.Context) {
	b, err := h.sessions.Generate(c.Request.Context(), c.Param(sessionIDParam))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    buildPreviewResponse(b),
	})
}

// GetPreview serves the raw bytes of one generated thumbnail.
func (h *ImageHandler) GetPreview(c *gin.Context) {
	index, err := strconv.Atoi(c.Param(indexParam))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid index: must be a number")
		return
	}

	sess, err := h.sessions.Get(c.Request.Context(), c.Param(sessionIDParam))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	src, result, err := h.sessions.Result(c.Request.Context(), sess.ID, index)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if !result.OK() {
		h.respondError(c, http.StatusNotFound, "thumbnail not generated: "+result.Reason)
		return
	}

	c.Header("Content-Disposition", contentDisposition("inline", archive.EntryName(src.Name, sess.Settings.Format)))
	c.Data(http.StatusOK, result.MIMEType, result.Data)
}

// DownloadArchive re-runs the batch for the session and sends the ZIP.
func (h *ImageHandler) DownloadArchive(c *gin.Context) {
	a, err := h.sessions.Archive(c.Request.Context(), c.Param(sessionIDParam))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.respondWithArchive(c, a)
}

// CreateArchive renders the uploaded files with the settings in the form and
// sends the ZIP without keeping any state.
func (h *ImageHandler) CreateArchive(c *gin.Context) {
	files, err := h.parseMultipartFiles(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	settings, err := h.parseSettingsForm(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	sources, err := h.readSources(files)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	a, err := h.sessions.ArchiveSources(c.Request.Context(), sources, settings)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.respondWithArchive(c, a)
}

// HealthCheck
func (h *ImageHandler) HealthCheck(c *gin.Context) {
	services := map[string]string{
		"session_store": h.sessions.HealthCheck(c.Request.Context()),
	}
	var formats []models.Format
	for _, format := range []models.Format{models.FormatJPEG, models.FormatPNG, models.FormatWebP} {
		status := "healthy"
		if err := h.formats.Supports(format); err != nil {
			status = "not configured"
		} else {
			formats = append(formats, format)
		}
		services["encoder_"+string(format)] = status
	}
	overall := h.calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
			Formats:   formats,
		},
	})
}
