package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/songtrainer/internal/database"
	"github.com/example/songtrainer/internal/spotify"
)

const (
	refreshInterval = 30 * time.Minute
	// refreshWindow is how far ahead of expiry tokens are renewed.
	refreshWindow = 15 * time.Minute
	jobTimeout    = 2 * time.Minute
)

// Scheduler runs the background jobs: right now a periodic sweep that renews
// Spotify tokens shortly before they expire, so playback keeps working
// between visits.
type Scheduler struct {
	scheduler *gocron.Scheduler
	users     *database.UserRepository
	spotify   *spotify.Client
	log       *zap.SugaredLogger
}

// New creates the scheduler.
func New(users *database.UserRepository, client *spotify.Client, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		users:     users,
		spotify:   client,
		log:       log,
	}
}

// Start registers the jobs and runs them in the background.
func (s *Scheduler) Start() {
	if _, err := s.scheduler.Every(refreshInterval).Do(s.refreshExpiringTokens); err != nil {
		s.log.Errorw("failed to schedule token refresh", "error", err)
	}
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) refreshExpiringTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	users, err := s.users.ListExpiringTokens(ctx, refreshWindow)
	if err != nil {
		s.log.Errorw("failed to list expiring tokens", "error", err)
		return
	}

	refreshed := 0
	for _, user := range users {
		token, err := s.spotify.Refresh(ctx, user.RefreshToken)
		if err != nil {
			s.log.Warnw("token refresh failed", "user_id", user.UserID, "error", err)
			continue
		}
		// Spotify doesn't always rotate the refresh token.
		refresh := token.RefreshToken
		if refresh == "" {
			refresh = user.RefreshToken
		}
		if err := s.users.SaveTokens(ctx, user.UserID, token.AccessToken, refresh, token.ExpiresAt); err != nil {
			s.log.Warnw("failed to store refreshed token", "user_id", user.UserID, "error", err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		s.log.Infow("refreshed spotify tokens", "count", refreshed)
	}
}
