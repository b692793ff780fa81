package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/payin/backend/internal/interfaces/http/dto"
)

// DefaultBodyLimit bounds request bodies when no limit is configured.
// UTR submissions and bank response payloads are small; anything past
// this is not a valid caller.
const DefaultBodyLimit int64 = 1 << 20 // 1 MiB

// BodyLimit returns a middleware that rejects requests whose declared
// Content-Length exceeds maxBytes, and caps streaming bodies at the
// same bound so chunked uploads cannot bypass the check.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultBodyLimit
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest,
					"Request body exceeds maximum allowed size", c.GetString(RequestIDKey)))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
