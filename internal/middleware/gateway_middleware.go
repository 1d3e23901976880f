package middleware

import (
	"crypto/subtle"
	"net/http"

	"media-relay/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// GatewayAuthMiddleware guards the media ingest endpoint with the shared
// secret the chat gateway is provisioned with. The gateway is the only
// caller of that endpoint, so a static bearer token is enough.
func GatewayAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("ingest disabled", "INGEST_DISABLED"))
			c.Abort()
			return
		}

		presented := extractBearer(c)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		c.Next()
	}
}
