package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/thumbnail-creator/internal/http/handlers"
	"github.com/phambaophuc/thumbnail-creator/internal/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	imageHandler   *handlers.ImageHandler
	logger         *zap.Logger
	gatherer       prometheus.Gatherer
	allowedOrigins []string
}

func NewRouter(
	imageHandler *handlers.ImageHandler,
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
	allowedOrigins []string,
) *Router {
	return &Router{
		imageHandler:   imageHandler,
		logger:         logger,
		gatherer:       gatherer,
		allowedOrigins: allowedOrigins,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.CORS(r.allowedOrigins))
	router.Use(middleware.SecurityHeaders())

	multipartOnly := middleware.RequireContentType("multipart/form-data")
	jsonOnly := middleware.RequireContentType("application/json")

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.imageHandler.HealthCheck)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", r.imageHandler.CreateSession)
			sessions.GET("/:id", r.imageHandler.GetSession)
			sessions.DELETE("/:id", r.imageHandler.DeleteSession)
			sessions.PUT("/:id/images", multipartOnly, r.imageHandler.ReplaceImages)
			sessions.PATCH("/:id/settings", jsonOnly, r.imageHandler.UpdateSettings)
			sessions.POST("/:id/previews", r.imageHandler.GeneratePreviews)
			sessions.GET("/:id/previews/:index", r.imageHandler.GetPreview)
			sessions.GET("/:id/archive", r.imageHandler.DownloadArchive)
		}

		thumbnails := v1.Group("/thumbnails")
		{
			thumbnails.POST("/archive", multipartOnly, r.imageHandler.CreateArchive)
		}
	}

	if r.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Thumbnail creator is running",
		})
	})

	return router
}
