package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alum-messaging/internal/domain"
	"alum-messaging/internal/service"
)

// MessageHandler mantiene dependencias para los endpoints de mensajería.
type MessageHandler struct {
	logger    *zap.Logger
	messaging *service.MessagingService
	limiter   service.SendRateLimiter
}

func NewMessageHandler(logger *zap.Logger, messaging *service.MessagingService, limiter service.SendRateLimiter) *MessageHandler {
	return &MessageHandler{logger: logger, messaging: messaging, limiter: limiter}
}

// ListConversations maneja GET /api/messages/conversations.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	// La lista alimenta el badge de no leídos; nunca debe servirse cacheada.
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")

	conversations, err := h.messaging.ListConversations(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list conversations"})
		return
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// UnreadSummary maneja GET /api/messages/unread.
func (h *MessageHandler) UnreadSummary(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	summary, err := h.messaging.UnreadSummary(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("unread summary failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load unread counts"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ConversationMessages maneja GET /api/messages/conversation/:id.
func (h *MessageHandler) ConversationMessages(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	lastMessageID := c.Query("lastMessageId")

	page, err := h.messaging.ConversationPage(c.Request.Context(), claims.UserID, c.Param("id"), limit, lastMessageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		default:
			h.logger.Error("conversation page failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load messages"})
		}
		return
	}

	c.JSON(http.StatusOK, page)
}

// SendMessage maneja POST /api/messages/send.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	var req struct {
		RecipientID string `json:"recipientId" binding:"required"`
		Content     string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if h.limiter != nil && !h.limiter.Allow(claims.UserID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
		return
	}

	msg, err := h.messaging.SendMessage(c.Request.Context(), claims.UserID, req.RecipientID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrSelfMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("send message failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkRead maneja PATCH /api/messages/mark-read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	var req struct {
		ConversationID string   `json:"conversationId" binding:"required"`
		MessageIDs     []string `json:"messageIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid mark read request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updated, err := h.messaging.MarkMessagesAsRead(c.Request.Context(), claims.UserID, req.ConversationID, req.MessageIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		default:
			h.logger.Error("mark read failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark messages"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteConversation maneja DELETE /api/messages/conversation/:id.
func (h *MessageHandler) DeleteConversation(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	err := h.messaging.DeleteConversation(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.logger.Error("delete conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
