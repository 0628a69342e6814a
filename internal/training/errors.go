package training

import "errors"

// Caller errors: surfaced as-is, nothing was mutated.
var (
	// ErrNoTrackAvailable means the playlist has no tracks to train on.
	ErrNoTrackAvailable = errors.New("no track available")
	// ErrCardNotFound means no learning card exists for the triple; the
	// caller likely submitted a guess before asking for a track.
	ErrCardNotFound = errors.New("card not found")
	// ErrCardNotDue means the card's countdown has not run out, so the guess
	// is rejected to avoid double-counting.
	ErrCardNotDue = errors.New("card not due")
)

// Transient errors: the caller may retry the whole operation.
var (
	// ErrConflict means a concurrent update won the race for the same card.
	ErrConflict = errors.New("card was modified concurrently")
	// ErrCatalogUnavailable means the music catalog could not be reached.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)
