package training

import (
	"context"

	"github.com/example/songtrainer/pkg/models"
)

// CardStore is the persistent keyed storage for learning cards.
type CardStore interface {
	// Get returns the card for the triple, or (nil, nil) when absent.
	Get(ctx context.Context, userID, playlistID, trackID string) (*models.Card, error)
	// ListForPair returns every card for a (user, playlist) pair.
	ListForPair(ctx context.Context, userID, playlistID string) ([]models.Card, error)
	// CreateBatch inserts all cards in one transaction; either the whole
	// batch commits or none of it does.
	CreateBatch(ctx context.Context, cards []models.Card) error
	// Update overwrites the card row, but only if its stored revisions
	// counter still equals prevRevisions. Returns ErrConflict otherwise.
	Update(ctx context.Context, card *models.Card, prevRevisions int) error
	// DecrementAll lowers repeat_in_n by the given amount for every card of
	// the pair in a single statement.
	DecrementAll(ctx context.Context, userID, playlistID string, by int) error
	// CountBelowStreak counts cards of the pair with correct_in_row below
	// the threshold (the "still learning" set).
	CountBelowStreak(ctx context.Context, userID, playlistID string, threshold int) (int, error)
	// CountAll counts every card of the pair.
	CountAll(ctx context.Context, userID, playlistID string) (int, error)
	// CountDone counts cards of the pair marked done.
	CountDone(ctx context.Context, userID, playlistID string) (int, error)
	// TotalRevisions sums the revisions counters of the pair.
	TotalRevisions(ctx context.Context, userID, playlistID string) (int, error)
}

// Catalog supplies track and playlist metadata. It is read-only from the
// trainer's point of view; caching is the implementation's concern.
type Catalog interface {
	// PlaylistTracks returns the tracks of a playlist. May be empty.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
	// Track returns full metadata for one track.
	Track(ctx context.Context, trackID string) (*models.Track, error)
}

// UserStore records per-user guess streaks.
type UserStore interface {
	RecordGuessStreak(ctx context.Context, userID string, perfect bool) error
}

// GuessSink appends scored guesses to the guess history.
type GuessSink interface {
	Create(ctx context.Context, entry *models.GuessLog) error
}
