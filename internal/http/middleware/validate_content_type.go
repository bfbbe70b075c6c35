package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
)

// RequireContentType rejects requests whose body is not one of the given media
// types with 415.
func RequireContentType(mediaTypes ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		mediaType, _, err := mime.ParseMediaType(ctx.GetHeader("Content-Type"))
		if err == nil {
			for _, mt := range mediaTypes {
				if mediaType == mt {
					ctx.Next()
					return
				}
			}
		}

		ctx.AbortWithStatusJSON(http.StatusUnsupportedMediaType, models.APIResponse{
			Success: false,
			Error:   "unsupported content type, expected " + mediaTypes[0],
		})
	}
}
