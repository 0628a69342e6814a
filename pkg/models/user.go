package models

import "time"

// User represents a Spotify user known to the trainer.
type User struct {
	UserID         string    `json:"user_id" db:"user_id"`
	Username       string    `json:"username" db:"username"`
	AccessToken    string    `json:"-" db:"spotify_access_token"`
	RefreshToken   string    `json:"-" db:"spotify_refresh_token"`
	TokenExpiresAt time.Time `json:"-" db:"spotify_token_expires_at"`
	CurrentStreak  int       `json:"current_streak" db:"current_streak"`
	MaxStreak      int       `json:"max_streak" db:"max_streak"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TokenExpired reports whether the stored access token needs a refresh.
func (u *User) TokenExpired(now time.Time) bool {
	return !u.TokenExpiresAt.After(now)
}
