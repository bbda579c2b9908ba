package httpapi

import (
	"github.com/gin-gonic/gin"
)

type botSendReq struct {
	UserID  int64  `json:"userId"  binding:"required"`
	Content string `json:"content" binding:"required"`
	Format  string `json:"format"  binding:"omitempty,oneof=text markdown"`
}

// BotSend delivers a message as the given bot user. Unknown users, or users
// without a conversation, get a 404.
func (h *Handler) BotSend(c *gin.Context) {
	var req botSendReq
	if !bindJSON(c, &req) {
		return
	}
	delivery, err := h.chat.BotSend(c.Request.Context(), req.UserID, req.Content, req.Format)
	if err != nil {
		h.storeFailed(c, err, "conversation not found")
		return
	}
	ok(c, gin.H{
		"messageId":      delivery.MessageID,
		"conversationId": delivery.Conversation.ID,
	})
}
