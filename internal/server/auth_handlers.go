package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/songtrainer/internal/database"
	"github.com/example/songtrainer/internal/spotify"
	"github.com/example/songtrainer/pkg/models"
)

const stateCookie = "oauth_state"

// AuthHandler runs the Spotify authorization-code flow and turns a finished
// login into a session cookie.
type AuthHandler struct {
	spotify *spotify.Client
	users   *database.UserRepository
	auth    *AuthMiddleware
	log     *zap.SugaredLogger
}

// NewAuthHandler creates the login/callback/logout handler set.
func NewAuthHandler(client *spotify.Client, users *database.UserRepository, auth *AuthMiddleware, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{spotify: client, users: users, auth: auth, log: log}
}

// Login redirects the browser to Spotify's consent page with a one-time
// state value pinned in a cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	state := uuid.NewString()
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, h.spotify.AuthURL(state))
}

// Callback finishes the code flow: verifies state, exchanges the code,
// stores the user and their tokens, and issues the session cookie.
func (h *AuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		respondError(c, http.StatusBadRequest, "auth_denied", errors.New(errParam))
		return
	}

	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		respondError(c, http.StatusBadRequest, "bad_state", errors.New("state mismatch"))
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		respondError(c, http.StatusBadRequest, "bad_request", errors.New("missing code"))
		return
	}

	token, err := h.spotify.Exchange(c.Request.Context(), code)
	if err != nil {
		h.log.Errorw("code exchange failed", "error", err)
		respondError(c, http.StatusBadGateway, "auth_failed", errors.New("authorization failed"))
		return
	}

	userID, displayName, err := h.spotify.Me(c.Request.Context(), token.AccessToken)
	if err != nil {
		h.log.Errorw("profile fetch failed", "error", err)
		respondError(c, http.StatusBadGateway, "auth_failed", errors.New("authorization failed"))
		return
	}

	ctx := c.Request.Context()
	if err := h.users.Upsert(ctx, &models.User{UserID: userID, Username: displayName}); err != nil {
		respondError(c, http.StatusInternalServerError, "internal", errors.New("failed to store user"))
		return
	}
	if err := h.users.SaveTokens(ctx, userID, token.AccessToken, token.RefreshToken, token.ExpiresAt); err != nil {
		respondError(c, http.StatusInternalServerError, "internal", errors.New("failed to store tokens"))
		return
	}

	session, err := h.auth.IssueSession(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", errors.New("failed to issue session"))
		return
	}
	c.SetCookie(sessionCookie, session, int(sessionLifetime.Seconds()), "/", "", false, true)

	h.log.Infow("user logged in", "user_id", userID)
	c.Redirect(http.StatusFound, "/")
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	respondOK(c, gin.H{"status": "logged out"})
}
