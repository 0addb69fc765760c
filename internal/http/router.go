package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alum-messaging/internal/service"
	"alum-messaging/internal/ws"
)

// NewRouter configura el router de Gin con middlewares y rutas de mensajería.
func NewRouter(
	logger *zap.Logger,
	tokens *service.SessionTokenService,
	messaging *service.MessagingService,
	profiles *service.ProfileService,
	hub *ws.Hub,
	messageH *MessageHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	api := r.Group("/api/messages")
	api.Use(SessionAuthMiddleware(tokens))
	api.GET("/conversations", messageH.ListConversations)
	api.GET("/unread", messageH.UnreadSummary)
	api.GET("/conversation/:id", messageH.ConversationMessages)
	api.POST("/send", messageH.SendMessage)
	api.PATCH("/mark-read", messageH.MarkRead)
	api.DELETE("/conversation/:id", messageH.DeleteConversation)

	r.GET("/ws", func(c *gin.Context) {
		ws.ServeWS(hub, logger, tokens, messaging, profiles, c)
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
