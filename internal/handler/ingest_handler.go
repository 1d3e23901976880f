package handler

import (
	"net/http"

	"media-relay/internal/queue"
	"media-relay/internal/relay"
	"media-relay/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// IngestHandler receives media messages from the chat gateway.
type IngestHandler struct {
	relay *relay.Relay
}

func NewIngestHandler(r *relay.Relay) *IngestHandler {
	return &IngestHandler{relay: r}
}

// Ingest accepts one multipart media message and runs it through the relay.
// The chat-side replies happen out of band; the response here tells the
// gateway what became of the file.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var form httpdto.IngestForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing file part", "INVALID_REQUEST"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable file part", "INVALID_REQUEST"))
		return
	}
	defer f.Close()

	mimeType := form.MimeType
	if mimeType == "" {
		mimeType = fileHeader.Header.Get("Content-Type")
	}

	res, err := h.relay.HandleMedia(c.Request.Context(), relay.InboundMedia{
		UserID:    form.UserID,
		ChatID:    form.ChatID,
		MessageID: form.MessageID,
		Filename:  fileHeader.Filename,
		MimeType:  mimeType,
		Size:      fileHeader.Size,
		Data:      f,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if res.Outcome == queue.OutcomeDuplicate {
		resp := httpdto.IngestResponse{Outcome: string(res.Outcome)}
		if res.Record != nil {
			resp.Link = res.Record.Link
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
		return
	}

	c.JSON(http.StatusAccepted, httpdto.NewSuccessResponse(httpdto.IngestResponse{
		Outcome:  string(res.Outcome),
		Position: res.Position,
	}))
}
