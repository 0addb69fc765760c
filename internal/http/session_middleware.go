package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alum-messaging/internal/service"
	"alum-messaging/internal/ws"
)

const authClaimsKey = "auth_claims"

// SessionAuthMiddleware valida la credencial de sesión y guarda los claims
// en el contexto. La credencial viaja en cookie; se acepta también un
// header Bearer para clientes que no manejan cookies.
func SessionAuthMiddleware(tokens *service.SessionTokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session tokens not configured"})
			c.Abort()
			return
		}

		token, err := c.Cookie(ws.SessionCookieName)
		if err != nil || token == "" {
			header := strings.TrimSpace(c.GetHeader("Authorization"))
			if header != "" && strings.HasPrefix(strings.ToLower(header), "bearer ") {
				token = strings.TrimSpace(header[len("Bearer "):])
			}
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims obtiene los claims de sesión desde el contexto.
func GetAuthClaims(c *gin.Context) (service.SessionClaims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.SessionClaims{}, false
	}
	claims, ok := val.(service.SessionClaims)
	return claims, ok
}
