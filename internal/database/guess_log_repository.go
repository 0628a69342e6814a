package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/songtrainer/pkg/models"
)

// GuessLogRepository handles the append-only history of scored guesses.
type GuessLogRepository struct {
	db *sqlx.DB
}

// NewGuessLogRepository creates a new repository instance.
func NewGuessLogRepository(db *sqlx.DB) *GuessLogRepository {
	return &GuessLogRepository{db: db}
}

// Create appends one scored guess.
func (r *GuessLogRepository) Create(ctx context.Context, entry *models.GuessLog) error {
	query := r.db.Rebind(`
		INSERT INTO guess_log (user_id, playlist_id, track_id, score, title_guess, artist_guess, year_guess)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query,
		entry.UserID,
		entry.PlaylistID,
		entry.TrackID,
		entry.Score,
		entry.TitleGuess,
		entry.ArtistGuess,
		entry.YearGuess,
	); err != nil {
		return fmt.Errorf("failed to log guess: %v", err)
	}
	return nil
}

// ListForPair returns the guess history for a (user, playlist) pair, oldest
// first.
func (r *GuessLogRepository) ListForPair(ctx context.Context, userID, playlistID string) ([]models.GuessLog, error) {
	query := r.db.Rebind(`
		SELECT * FROM guess_log
		WHERE user_id = ? AND playlist_id = ?
		ORDER BY id
	`)
	var entries []models.GuessLog
	if err := r.db.SelectContext(ctx, &entries, query, userID, playlistID); err != nil {
		return nil, fmt.Errorf("failed to list guesses: %v", err)
	}
	return entries, nil
}
