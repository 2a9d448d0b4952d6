package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yanqian/health-journal/internal/domain/journal"
)

// Handler wires the HTTP transport to the journal service.
type Handler struct {
	svc    journal.Service
	logger *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc journal.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.With("component", "http.handler"),
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UpdateHealthData merges a spoken update into the supplied record.
func (h *Handler) UpdateHealthData(c *gin.Context) {
	var req journal.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.svc.UpdateHealthData(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// JudgeHealthData scores a merge result.
func (h *Handler) JudgeHealthData(c *gin.Context) {
	var req journal.JudgeRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.svc.JudgeHealthData(c.Request.Context(), req))
}

// ExtractHealthData builds a first-pass record from a transcript.
func (h *Handler) ExtractHealthData(c *gin.Context) {
	var req journal.ExtractRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.svc.ExtractHealthData(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Transcribe accepts a multipart "audio" clip.
func (h *Handler) Transcribe(c *gin.Context) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "audio file is required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read upload", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read upload", err))
		return
	}

	resp, err := h.svc.Transcribe(c.Request.Context(), journal.TranscribeRequest{
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Audio:    data,
	})
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateLog stores a new day log.
func (h *Handler) CreateLog(c *gin.Context) {
	var req journal.CreateEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.svc.CreateEntry(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListLogs returns day logs, optionally bounded by ?from and ?to.
func (h *Handler) ListLogs(c *gin.Context) {
	entries, err := h.svc.ListEntries(c.Request.Context(), journal.ListFilter{
		From: c.Query("from"),
		To:   c.Query("to"),
	})
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

// GetLog returns one day log.
func (h *Handler) GetLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := h.svc.GetEntry(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteLog removes a day log.
func (h *Handler) DeleteLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteEntry(c.Request.Context(), id); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ApplyLogUpdate merges an update into a stored day log.
func (h *Handler) ApplyLogUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req journal.ApplyUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ID = id
	resp, err := h.svc.ApplyUpdate(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return false
	}
	return true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "log id must be a UUID", err))
		return uuid.Nil, false
	}
	return id, true
}
