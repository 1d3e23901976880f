// Package handler provides HTTP handlers for API endpoints.
package handler

import (
	"net/http"

	"media-relay/internal/services"
	"media-relay/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	c.JSON(status, httpdto.NewErrorResponse(err.Error(), errorCode(status)))
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusRequestEntityTooLarge:
		return "TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// operator resolves the acting admin from the request context; the auth
// middleware put it there.
func operator(c *gin.Context) (string, bool) {
	return services.OperatorFromContext(c.Request.Context())
}
