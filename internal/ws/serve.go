package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"alum-messaging/internal/domain"
	"alum-messaging/internal/service"
)

// SessionCookieName es la cookie de sesión que emite el proveedor de
// identidad de la plataforma.
const SessionCookieName = "alum_session"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS autentica la cookie de sesión, sube la conexión a websocket y
// registra el cliente en el hub.
func ServeWS(h *Hub, logger *zap.Logger, tokens *service.SessionTokenService, messaging *service.MessagingService, profiles *service.ProfileService, c *gin.Context) {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}
	claims, err := tokens.Parse(cookie)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	// Cada conexión refresca el read model con el nombre que trae la sesión.
	if profiles != nil {
		user := domain.User{ID: claims.UserID, Name: claims.DisplayName}
		if err := profiles.SyncProfile(c.Request.Context(), user); err != nil {
			logger.Warn("profile sync failed", zap.Error(err), zap.String("user_id", claims.UserID))
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		logger:    logger,
		conn:      conn,
		send:      make(chan []byte, 256),
		userID:    claims.UserID,
		messaging: messaging,
	}

	h.RegisterClient(client)
	go client.Serve()
}
