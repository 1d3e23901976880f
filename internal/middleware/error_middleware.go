package middleware

import (
	"media-relay/internal/transport/httpdto"
	"media-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders errors that handlers attached to the gin context
// without writing a body themselves.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s", err.Error())
		}
		c.JSON(c.Writer.Status(), httpdto.NewErrorResponse(err.Error(), "INTERNAL_ERROR"))
	}
}
