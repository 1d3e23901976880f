package handler

import (
	"net/http"

	"media-relay/internal/queue"
	"media-relay/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// QueueHandler serves the dashboard read model of the upload queue.
type QueueHandler struct {
	queue *queue.Queue
}

func NewQueueHandler(q *queue.Queue) *QueueHandler {
	return &QueueHandler{queue: q}
}

// Status returns the full snapshot: counters, backlog, active and recent.
func (h *QueueHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(h.queue.Snapshot()))
}

// UserStatus returns the per-user slice of the counters.
func (h *QueueHandler) UserStatus(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing user id", "INVALID_REQUEST"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(h.queue.UserStatus(userID)))
}

// Stats returns the aggregate counters only.
func (h *QueueHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(h.queue.Stats()))
}
