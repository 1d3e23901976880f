package handler

import (
	"context"
	"net/http"
	"os"
	"time"

	"media-relay/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// StoragePinger reports whether the object store answers.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service readiness. Healthy means the staging
// directory accepts writes and the object store is reachable.
type HealthHandler struct {
	stagingDir string
	storage    StoragePinger
}

func NewHealthHandler(stagingDir string, storage StoragePinger) *HealthHandler {
	return &HealthHandler{stagingDir: stagingDir, storage: storage}
}

func (h *HealthHandler) Health(c *gin.Context) {
	if err := checkWritable(h.stagingDir); err != nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("staging directory not writable", "UNHEALTHY"))
		return
	}

	if h.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("object storage unreachable", "UNHEALTHY"))
			return
		}
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
}

// checkWritable creates and removes a scratch file, confirming the
// directory exists and accepts writes.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
