package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/songtrainer/internal/training"
	"github.com/example/songtrainer/pkg/models"
)

// CardRepository handles database operations for training cards. It
// implements training.CardStore. Queries are written with ? placeholders and
// rebound for the active driver, so the same code serves SQLite and Postgres.
type CardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new repository instance.
func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Get returns the card for the triple, or (nil, nil) when absent.
func (r *CardRepository) Get(ctx context.Context, userID, playlistID, trackID string) (*models.Card, error) {
	query := r.db.Rebind(`
		SELECT * FROM training_cards
		WHERE user_id = ? AND playlist_id = ? AND track_id = ?
	`)
	var card models.Card
	err := r.db.GetContext(ctx, &card, query, userID, playlistID, trackID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %v", err)
	}
	return &card, nil
}

// ListForPair returns every card for a (user, playlist) pair.
func (r *CardRepository) ListForPair(ctx context.Context, userID, playlistID string) ([]models.Card, error) {
	query := r.db.Rebind(`
		SELECT * FROM training_cards
		WHERE user_id = ? AND playlist_id = ?
	`)
	var cards []models.Card
	if err := r.db.SelectContext(ctx, &cards, query, userID, playlistID); err != nil {
		return nil, fmt.Errorf("failed to list cards: %v", err)
	}
	return cards, nil
}

// CreateBatch inserts all cards in one transaction.
func (r *CardRepository) CreateBatch(ctx context.Context, cards []models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	query := r.db.Rebind(`
		INSERT INTO training_cards (
			user_id, playlist_id, track_id,
			correct_guesses, correct_in_row, repeat_in_n, revisions, is_done
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, card := range cards {
		if _, err := tx.ExecContext(ctx, query,
			card.UserID,
			card.PlaylistID,
			card.TrackID,
			card.CorrectGuesses,
			card.CorrectInRow,
			card.RepeatInN,
			card.Revisions,
			card.IsDone,
		); err != nil {
			return fmt.Errorf("failed to insert card: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit card batch: %v", err)
	}
	return nil
}

// Update overwrites the card row, guarded by the revisions counter so a
// concurrent writer cannot be silently overwritten. Returns
// training.ErrConflict when the guard fails.
func (r *CardRepository) Update(ctx context.Context, card *models.Card, prevRevisions int) error {
	query := r.db.Rebind(`
		UPDATE training_cards SET
			correct_guesses = ?,
			correct_in_row = ?,
			repeat_in_n = ?,
			revisions = ?,
			is_done = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND playlist_id = ? AND track_id = ? AND revisions = ?
	`)
	result, err := r.db.ExecContext(ctx, query,
		card.CorrectGuesses,
		card.CorrectInRow,
		card.RepeatInN,
		card.Revisions,
		card.IsDone,
		card.UserID,
		card.PlaylistID,
		card.TrackID,
		prevRevisions,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %v", err)
	}
	if affected == 0 {
		return training.ErrConflict
	}
	return nil
}

// DecrementAll lowers repeat_in_n by the given amount for every card of the
// pair in one statement.
func (r *CardRepository) DecrementAll(ctx context.Context, userID, playlistID string, by int) error {
	query := r.db.Rebind(`
		UPDATE training_cards
		SET repeat_in_n = repeat_in_n - ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND playlist_id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, by, userID, playlistID); err != nil {
		return fmt.Errorf("failed to decrement countdowns: %v", err)
	}
	return nil
}

// CountBelowStreak counts cards of the pair with correct_in_row below the
// threshold.
func (r *CardRepository) CountBelowStreak(ctx context.Context, userID, playlistID string, threshold int) (int, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM training_cards
		WHERE user_id = ? AND playlist_id = ? AND correct_in_row < ?
	`)
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, playlistID, threshold); err != nil {
		return 0, fmt.Errorf("failed to count still-learning cards: %v", err)
	}
	return count, nil
}

// CountAll counts every card of the pair.
func (r *CardRepository) CountAll(ctx context.Context, userID, playlistID string) (int, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM training_cards
		WHERE user_id = ? AND playlist_id = ?
	`)
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, playlistID); err != nil {
		return 0, fmt.Errorf("failed to count cards: %v", err)
	}
	return count, nil
}

// CountDone counts cards of the pair marked done.
func (r *CardRepository) CountDone(ctx context.Context, userID, playlistID string) (int, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM training_cards
		WHERE user_id = ? AND playlist_id = ? AND is_done = ?
	`)
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, playlistID, true); err != nil {
		return 0, fmt.Errorf("failed to count done cards: %v", err)
	}
	return count, nil
}

// TotalRevisions sums the revisions counters of the pair.
func (r *CardRepository) TotalRevisions(ctx context.Context, userID, playlistID string) (int, error) {
	query := r.db.Rebind(`
		SELECT COALESCE(SUM(revisions), 0) FROM training_cards
		WHERE user_id = ? AND playlist_id = ?
	`)
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, playlistID); err != nil {
		return 0, fmt.Errorf("failed to sum revisions: %v", err)
	}
	return total, nil
}
