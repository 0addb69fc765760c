package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"alum-messaging/internal/domain"
)

// SessionTokenService valida la credencial de sesión (un JWT HS256 que
// viaja en cookie) emitida por el proveedor de identidad de la plataforma.
// También puede emitirla, para entornos locales y el cliente de terminal.
type SessionTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

type SessionClaims struct {
	UserID      string `json:"uid"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrTokenInvalid = errors.New("session token invalid")
	ErrTokenExpired = errors.New("session token expired")
)

func NewSessionTokenService(secret string, ttl time.Duration) *SessionTokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "alum-messaging",
	}
}

func (s *SessionTokenService) Mint(user domain.User) (string, error) {
	if len(s.secret) == 0 || user.ID == "" {
		return "", ErrTokenInvalid
	}
	now := time.Now().UTC()
	claims := SessionClaims{
		UserID:      user.ID,
		DisplayName: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *SessionTokenService) Parse(token string) (SessionClaims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(token) == "" {
		return SessionClaims{}, ErrTokenInvalid
	}

	var claims SessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrTokenExpired
		}
		return SessionClaims{}, ErrTokenInvalid
	}
	if !parsed.Valid || claims.UserID == "" {
		return SessionClaims{}, ErrTokenInvalid
	}
	return claims, nil
}
