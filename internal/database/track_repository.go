package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/songtrainer/pkg/models"
)

// TrackRepository handles database operations for tracks, artists and
// playlist membership. It is the cache behind the catalog layer.
type TrackRepository struct {
	db *sqlx.DB
}

// NewTrackRepository creates a new repository instance.
func NewTrackRepository(db *sqlx.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Get returns a cached track with its artists, or (nil, nil) when absent.
func (r *TrackRepository) Get(ctx context.Context, trackID string) (*models.Track, error) {
	query := r.db.Rebind(`SELECT * FROM tracks WHERE track_id = ?`)
	var track models.Track
	err := r.db.GetContext(ctx, &track, query, trackID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %v", err)
	}
	if track.Artists, err = r.artistsFor(ctx, trackID); err != nil {
		return nil, err
	}
	return &track, nil
}

// Upsert writes a track and its artist links. Artists are found or created
// by name; the whole write happens in one transaction.
func (r *TrackRepository) Upsert(ctx context.Context, track *models.Track) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	query := r.db.Rebind(`
		INSERT INTO tracks (track_id, name, year, popularity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (track_id) DO UPDATE SET
			name = excluded.name,
			year = excluded.year,
			popularity = excluded.popularity,
			updated_at = CURRENT_TIMESTAMP
	`)
	if _, err := tx.ExecContext(ctx, query, track.TrackID, track.Name, track.Year, track.Popularity); err != nil {
		return fmt.Errorf("failed to upsert track: %v", err)
	}

	for _, name := range track.Artists {
		artistID, err := r.findOrCreateArtist(ctx, tx, name)
		if err != nil {
			return err
		}
		link := r.db.Rebind(`
			INSERT INTO track_artists (track_id, artist_id)
			VALUES (?, ?)
			ON CONFLICT (track_id, artist_id) DO NOTHING
		`)
		if _, err := tx.ExecContext(ctx, link, track.TrackID, artistID); err != nil {
			return fmt.Errorf("failed to link artist: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit track: %v", err)
	}
	return nil
}

// PlaylistTracks returns the cached tracks of a playlist with their artists.
// An unknown playlist yields an empty slice.
func (r *TrackRepository) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	query := r.db.Rebind(`
		SELECT t.* FROM tracks t
		JOIN playlist_tracks pt ON pt.track_id = t.track_id
		WHERE pt.playlist_id = ?
	`)
	var tracks []models.Track
	if err := r.db.SelectContext(ctx, &tracks, query, playlistID); err != nil {
		return nil, fmt.Errorf("failed to list playlist tracks: %v", err)
	}
	for i := range tracks {
		artists, err := r.artistsFor(ctx, tracks[i].TrackID)
		if err != nil {
			return nil, err
		}
		tracks[i].Artists = artists
	}
	return tracks, nil
}

// SavePlaylist writes the playlist row and its track links in one
// transaction, replacing any previous membership.
func (r *TrackRepository) SavePlaylist(ctx context.Context, playlistID, name string, trackIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	upsert := r.db.Rebind(`
		INSERT INTO playlists (playlist_id, name)
		VALUES (?, ?)
		ON CONFLICT (playlist_id) DO UPDATE SET name = excluded.name
	`)
	if _, err := tx.ExecContext(ctx, upsert, playlistID, name); err != nil {
		return fmt.Errorf("failed to upsert playlist: %v", err)
	}

	clear := r.db.Rebind(`DELETE FROM playlist_tracks WHERE playlist_id = ?`)
	if _, err := tx.ExecContext(ctx, clear, playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist tracks: %v", err)
	}

	link := r.db.Rebind(`INSERT INTO playlist_tracks (playlist_id, track_id) VALUES (?, ?)`)
	for _, trackID := range trackIDs {
		if _, err := tx.ExecContext(ctx, link, playlistID, trackID); err != nil {
			return fmt.Errorf("failed to link playlist track: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist: %v", err)
	}
	return nil
}

// HasPlaylist reports whether the playlist has cached track links.
func (r *TrackRepository) HasPlaylist(ctx context.Context, playlistID string) (bool, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ?`)
	var count int
	if err := r.db.GetContext(ctx, &count, query, playlistID); err != nil {
		return false, fmt.Errorf("failed to check playlist cache: %v", err)
	}
	return count > 0, nil
}

func (r *TrackRepository) artistsFor(ctx context.Context, trackID string) ([]string, error) {
	query := r.db.Rebind(`
		SELECT a.name FROM artists a
		JOIN track_artists ta ON ta.artist_id = a.artist_id
		WHERE ta.track_id = ?
		ORDER BY a.artist_id
	`)
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, trackID); err != nil {
		return nil, fmt.Errorf("failed to list track artists: %v", err)
	}
	return names, nil
}

func (r *TrackRepository) findOrCreateArtist(ctx context.Context, tx *sqlx.Tx, name string) (int64, error) {
	get := r.db.Rebind(`SELECT artist_id FROM artists WHERE name = ?`)
	var id int64
	err := tx.GetContext(ctx, &id, get, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up artist: %v", err)
	}

	if r.db.DriverName() == "postgres" {
		insert := r.db.Rebind(`INSERT INTO artists (name) VALUES (?) RETURNING artist_id`)
		if err := tx.GetContext(ctx, &id, insert, name); err != nil {
			return 0, fmt.Errorf("failed to create artist: %v", err)
		}
		return id, nil
	}

	// SQLite path without RETURNING.
	insert := r.db.Rebind(`INSERT INTO artists (name) VALUES (?)`)
	result, err := tx.ExecContext(ctx, insert, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create artist: %v", err)
	}
	if id, err = result.LastInsertId(); err != nil {
		return 0, fmt.Errorf("failed to get artist ID: %v", err)
	}
	return id, nil
}
