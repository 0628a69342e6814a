package music

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/songtrainer/internal/database"
	"github.com/example/songtrainer/internal/spotify"
)

// ErrNotConnected means the user has no Spotify tokens on record.
var ErrNotConnected = errors.New("user has not connected spotify")

// Playback controls a user's Spotify player, refreshing the stored access
// token on demand.
type Playback struct {
	users   *database.UserRepository
	spotify *spotify.Client
	log     *zap.SugaredLogger
}

// NewPlayback creates a playback controller.
func NewPlayback(users *database.UserRepository, client *spotify.Client, log *zap.SugaredLogger) *Playback {
	return &Playback{users: users, spotify: client, log: log}
}

// PlayTrack starts the given track on the user's active device.
func (p *Playback) PlayTrack(ctx context.Context, userID, trackID string) error {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return err
	}
	return p.spotify.Play(ctx, token, trackID)
}

// TogglePlayPause pauses a playing player and resumes a paused one.
func (p *Playback) TogglePlayPause(ctx context.Context, userID string) error {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return err
	}
	_, playing, err := p.spotify.CurrentPlayback(ctx, token)
	if err != nil {
		return err
	}
	if playing {
		return p.spotify.Pause(ctx, token)
	}
	return p.spotify.Resume(ctx, token)
}

// CurrentTrackID returns the track loaded on the user's player, or an empty
// string when nothing is.
func (p *Playback) CurrentTrackID(ctx context.Context, userID string) (string, error) {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return "", err
	}
	trackID, _, err := p.spotify.CurrentPlayback(ctx, token)
	return trackID, err
}

// accessToken returns a valid access token for the user, refreshing and
// persisting it when the stored one has expired.
func (p *Playback) accessToken(ctx context.Context, userID string) (string, error) {
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil || user.RefreshToken == "" {
		return "", ErrNotConnected
	}
	if !user.TokenExpired(time.Now()) {
		return user.AccessToken, nil
	}

	token, err := p.spotify.Refresh(ctx, user.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %v", err)
	}
	// Spotify doesn't always rotate the refresh token.
	refresh := token.RefreshToken
	if refresh == "" {
		refresh = user.RefreshToken
	}
	if err := p.users.SaveTokens(ctx, userID, token.AccessToken, refresh, token.ExpiresAt); err != nil {
		return "", err
	}
	p.log.Debugw("refreshed spotify token", "user_id", userID)
	return token.AccessToken, nil
}
