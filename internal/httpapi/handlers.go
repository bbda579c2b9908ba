package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgard/chatdesk/internal/chat"
	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/monitor"
)

// Handler implements the API endpoints.
type Handler struct {
	store   database.Store
	chat    *chat.Service
	monitor MonitorReader
	logger  *slog.Logger
}

type conversationReq struct {
	ConversationID int64 `json:"conversationId" binding:"required"`
}

type sendMessageReq struct {
	ConversationID int64  `json:"conversationId" binding:"required"`
	SenderID       *int64 `json:"senderId"       binding:"required"`
	SenderType     string `json:"senderType"     binding:"required,oneof=me other"`
	Content        string `json:"content"        binding:"required"`
	Format         string `json:"format"         binding:"omitempty,oneof=text markdown"`
}

// storeFailed maps store errors onto the envelope: missing rows are 404,
// rule violations 400, anything else a code -1 reply with HTTP 200.
func (h *Handler) storeFailed(c *gin.Context, err error, notFound string) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, database.ErrNotFound):
		fail(c, http.StatusNotFound, notFound)
	case errors.Is(err, database.ErrOperatorImmutable):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(c.Request.Context(), "Store operation failed", "path", c.Request.URL.Path, "error", err)
		fail(c, http.StatusOK, err.Error())
	}
}

// Health pings the database.
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	ok(c, gin.H{"status": "ok"})
}

func (h *Handler) ListConversations(c *gin.Context) {
	list, err := h.store.ListConversations(c.Request.Context())
	if err != nil {
		h.storeFailed(c, err, "")
		return
	}
	ok(c, list)
}

func (h *Handler) ListMessages(c *gin.Context) {
	var req conversationReq
	if !bindJSON(c, &req) {
		return
	}
	msgs, err := h.store.ListMessages(c.Request.Context(), req.ConversationID)
	if err != nil {
		h.storeFailed(c, err, "")
		return
	}
	ok(c, msgs)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.chat.SendMessage(c.Request.Context(), database.NewMessage{
		ConversationID: req.ConversationID,
		SenderID:       *req.SenderID,
		SenderType:     req.SenderType,
		Content:        req.Content,
		Format:         req.Format,
	})
	if err != nil {
		h.storeFailed(c, err, "conversation not found")
		return
	}
	ok(c, gin.H{"id": id})
}

func (h *Handler) ClearUnread(c *gin.Context) {
	var req conversationReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.store.ClearUnread(c.Request.Context(), req.ConversationID); err != nil {
		h.storeFailed(c, err, "")
		return
	}
	ok(c, nil)
}

func (h *Handler) ToggleMute(c *gin.Context) {
	var req conversationReq
	if !bindJSON(c, &req) {
		return
	}
	muted, err := h.store.ToggleMuted(c.Request.Context(), req.ConversationID)
	if err != nil {
		h.storeFailed(c, err, "conversation not found")
		return
	}
	ok(c, gin.H{"muted": muted})
}

func (h *Handler) TotalUnread(c *gin.Context) {
	total, err := h.store.GetTotalUnread(c.Request.Context())
	if err != nil {
		h.storeFailed(c, err, "")
		return
	}
	ok(c, gin.H{"total": total})
}

func (h *Handler) MonitorLogs(c *gin.Context) {
	if h.monitor == nil {
		ok(c, []monitor.Entry{})
		return
	}
	logs, err := h.monitor.Logs()
	if err != nil {
		h.storeFailed(c, err, "")
		return
	}
	ok(c, logs)
}

func (h *Handler) MonitorStats(c *gin.Context) {
	if h.monitor == nil {
		ok(c, monitor.Summarize(nil))
		return
	}
	stats, err := h.monitor.Stats()
	if err != nil {
		h.storeFailed(c, err, "")
		return
	}
	ok(c, stats)
}
