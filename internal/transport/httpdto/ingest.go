package httpdto

// IngestForm carries the multipart fields of POST /v1/ingest/media. The file
// itself travels as the "file" part.
type IngestForm struct {
	UserID    string `form:"user_id" binding:"required"`
	ChatID    string `form:"chat_id" binding:"required"`
	MessageID string `form:"message_id"`
	MimeType  string `form:"mime_type"`
}

// IngestResponse acknowledges an ingest call to the gateway. Position is set
// when the file was queued; Link is set when it was a known duplicate.
type IngestResponse struct {
	Outcome  string `json:"outcome"`
	Position int    `json:"position,omitempty"`
	Link     string `json:"link,omitempty"`
}
