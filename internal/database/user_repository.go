package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/songtrainer/pkg/models"
)

// UserRepository handles database operations for users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a user, or (nil, nil) when absent.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := r.db.Rebind(`SELECT * FROM users WHERE user_id = ?`)
	var user models.User
	err := r.db.GetContext(ctx, &user, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return &user, nil
}

// Upsert creates the user or refreshes the username of an existing one.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (user_id, username)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			updated_at = CURRENT_TIMESTAMP
	`)
	if _, err := r.db.ExecContext(ctx, query, user.UserID, user.Username); err != nil {
		return fmt.Errorf("failed to upsert user: %v", err)
	}
	return nil
}

// SaveTokens stores a fresh token set for the user.
func (r *UserRepository) SaveTokens(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error {
	query := r.db.Rebind(`
		UPDATE users SET
			spotify_access_token = ?,
			spotify_refresh_token = ?,
			spotify_token_expires_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, accessToken, refreshToken, expiresAt, userID); err != nil {
		return fmt.Errorf("failed to save tokens: %v", err)
	}
	return nil
}

// RecordGuessStreak bumps the user's streak on a perfect guess and otherwise
// folds the running streak into max_streak before resetting it.
func (r *UserRepository) RecordGuessStreak(ctx context.Context, userID string, perfect bool) error {
	var query string
	if perfect {
		query = r.db.Rebind(`
			UPDATE users SET
				current_streak = current_streak + 1,
				updated_at = CURRENT_TIMESTAMP
			WHERE user_id = ?
		`)
	} else if r.db.DriverName() == "postgres" {
		query = r.db.Rebind(`
			UPDATE users SET
				max_streak = GREATEST(max_streak, current_streak),
				current_streak = 0,
				updated_at = CURRENT_TIMESTAMP
			WHERE user_id = ?
		`)
	} else {
		query = r.db.Rebind(`
			UPDATE users SET
				max_streak = MAX(max_streak, current_streak),
				current_streak = 0,
				updated_at = CURRENT_TIMESTAMP
			WHERE user_id = ?
		`)
	}
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to record guess streak: %v", err)
	}
	return nil
}

// ListExpiringTokens returns users whose access token expires within the
// given window and who have a refresh token to renew it with.
func (r *UserRepository) ListExpiringTokens(ctx context.Context, within time.Duration) ([]models.User, error) {
	query := r.db.Rebind(`
		SELECT * FROM users
		WHERE spotify_refresh_token <> '' AND spotify_token_expires_at <= ?
	`)
	var users []models.User
	deadline := time.Now().Add(within)
	if err := r.db.SelectContext(ctx, &users, query, deadline); err != nil {
		return nil, fmt.Errorf("failed to list expiring tokens: %v", err)
	}
	return users, nil
}
