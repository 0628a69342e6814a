package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the database configured by driver ("sqlite3" or "postgres")
// and dsn, applies pool settings and creates the schema. The returned handle
// is pooled and safe for concurrent use; callers inject it into the
// repositories instead of sharing a package-level connection.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %v", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	if err := initializeSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist.
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			spotify_access_token TEXT NOT NULL DEFAULT '',
			spotify_refresh_token TEXT NOT NULL DEFAULT '',
			spotify_token_expires_at TIMESTAMP NOT NULL DEFAULT '1970-01-01 00:00:00',
			current_streak INTEGER NOT NULL DEFAULT 0,
			max_streak INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS tracks (
			track_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT -1,
			popularity INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS artists (
			artist_id %s,
			name TEXT NOT NULL UNIQUE
		)`, serial),
		`CREATE TABLE IF NOT EXISTS track_artists (
			track_id TEXT NOT NULL,
			artist_id INTEGER NOT NULL,
			PRIMARY KEY (track_id, artist_id),
			FOREIGN KEY (track_id) REFERENCES tracks(track_id) ON DELETE CASCADE,
			FOREIGN KEY (artist_id) REFERENCES artists(artist_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS playlists (
			playlist_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS playlist_tracks (
			playlist_id TEXT NOT NULL,
			track_id TEXT NOT NULL,
			PRIMARY KEY (playlist_id, track_id),
			FOREIGN KEY (playlist_id) REFERENCES playlists(playlist_id) ON DELETE CASCADE,
			FOREIGN KEY (track_id) REFERENCES tracks(track_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS training_cards (
			user_id TEXT NOT NULL,
			playlist_id TEXT NOT NULL,
			track_id TEXT NOT NULL,
			correct_guesses INTEGER NOT NULL DEFAULT 0,
			correct_in_row INTEGER NOT NULL DEFAULT 0,
			repeat_in_n INTEGER NOT NULL DEFAULT 1,
			revisions INTEGER NOT NULL DEFAULT 0,
			is_done BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, playlist_id, track_id)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS guess_log (
			id %s,
			user_id TEXT NOT NULL,
			playlist_id TEXT NOT NULL,
			track_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			title_guess TEXT NOT NULL DEFAULT '',
			artist_guess TEXT NOT NULL DEFAULT '',
			year_guess INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, serial),
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %v", err)
		}
	}
	return nil
}
