package music

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/songtrainer/internal/database"
	"github.com/example/songtrainer/internal/spotify"
	"github.com/example/songtrainer/pkg/models"
)

// Library serves track and playlist metadata to the trainer. Reads hit the
// database cache first and fall back to the Spotify API; fetched rows are
// cached so a track is only ever fetched until its metadata is complete.
// It implements training.Catalog.
type Library struct {
	tracks  *database.TrackRepository
	spotify *spotify.Client
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewLibrary creates a library. timeout bounds one catalog operation,
// including all Spotify requests it fans out to.
func NewLibrary(tracks *database.TrackRepository, client *spotify.Client, timeout time.Duration, log *zap.SugaredLogger) *Library {
	return &Library{tracks: tracks, spotify: client, timeout: timeout, log: log}
}

// Track returns full metadata for one track, from cache when the cached row
// is complete.
func (l *Library) Track(ctx context.Context, trackID string) (*models.Track, error) {
	cached, err := l.tracks.Get(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if cached != nil && cached.Complete() {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.fetchAndCache(ctx, trackID)
}

// PlaylistTracks returns the tracks of a playlist. A playlist whose
// membership is already cached never touches the API; otherwise the track
// list is fetched, each track resolved and the membership stored.
func (l *Library) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	known, err := l.tracks.HasPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if known {
		return l.tracks.PlaylistTracks(ctx, playlistID)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ids, err := l.spotify.PlaylistTrackIDs(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist from catalog: %v", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	name, err := l.spotify.PlaylistName(ctx, playlistID)
	if err != nil {
		l.log.Warnw("failed to fetch playlist name", "playlist_id", playlistID, "error", err)
	}

	tracks := make([]models.Track, 0, len(ids))
	for _, trackID := range ids {
		track, err := l.Track(ctx, trackID)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}

	// Caching the membership is an optimization; the fetched tracks are
	// valid either way.
	if err := l.tracks.SavePlaylist(ctx, playlistID, name, ids); err != nil {
		l.log.Warnw("failed to cache playlist", "playlist_id", playlistID, "error", err)
	}
	return tracks, nil
}

func (l *Library) fetchAndCache(ctx context.Context, trackID string) (*models.Track, error) {
	details, err := l.spotify.Track(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to load track from catalog: %v", err)
	}
	track := &models.Track{
		TrackID:    details.TrackID,
		Name:       details.Name,
		Year:       details.Year,
		Popularity: details.Popularity,
		Artists:    details.Artists,
	}
	if err := l.tracks.Upsert(ctx, track); err != nil {
		l.log.Warnw("failed to cache track", "track_id", trackID, "error", err)
	}
	return track, nil
}
