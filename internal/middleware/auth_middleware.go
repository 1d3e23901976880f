package middleware

import (
	"net/http"
	"strings"

	"media-relay/internal/services"
	"media-relay/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware guards the dashboard and admin routes. It verifies the
// bearer token and records the operator name on the request context for
// audit attribution.
func AuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		claims, err := service.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := services.WithOperatorContext(c.Request.Context(), claims.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
