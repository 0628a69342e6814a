package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	sessionCookie   = "session"
	sessionLifetime = 7 * 24 * time.Hour
	userIDKey       = "user_id"
)

// AuthMiddleware authenticates requests from the signed session cookie.
type AuthMiddleware struct {
	secret []byte
	log    *zap.SugaredLogger
}

// NewAuthMiddleware creates the middleware with the session signing secret.
func NewAuthMiddleware(secret string, log *zap.SugaredLogger) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), log: log}
}

// IssueSession signs a session token for the user.
func (m *AuthMiddleware) IssueSession(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionLifetime)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %v", err)
	}
	return signed, nil
}

// RequireAuth rejects requests without a valid session cookie and exposes
// the authenticated user ID on the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(sessionCookie)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("no session"))
			c.Abort()
			return
		}
		userID, err := m.parseSession(cookie)
		if err != nil {
			m.log.Debugw("rejected session cookie", "error", err)
			respondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("invalid session"))
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func (m *AuthMiddleware) parseSession(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

// sessionUserID reads the user ID set by RequireAuth.
func sessionUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
