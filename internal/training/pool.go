package training

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/example/songtrainer/pkg/models"
)

const (
	// initialPoolSize is how many tracks a fresh playlist starts with.
	initialPoolSize = 20
	// maxStartCountdown bounds the random countdown new cards start with.
	maxStartCountdown = 6
)

// PoolManager keeps the set of tracked cards for a (user, playlist) pair
// populated and sized. New tracks are always picked by descending
// popularity among the tracks that have no card yet.
type PoolManager struct {
	store   CardStore
	catalog Catalog
	log     *zap.SugaredLogger
}

// NewPoolManager creates a pool manager over the given store and catalog.
func NewPoolManager(store CardStore, catalog Catalog, log *zap.SugaredLogger) *PoolManager {
	return &PoolManager{store: store, catalog: catalog, log: log}
}

// EnsureInitialized creates cards for up to initialPoolSize of the most
// popular untracked tracks of the playlist. The whole batch commits in one
// transaction, so a catalog failure never leaves a half-built pool behind.
// Returns the number of cards created.
func (p *PoolManager) EnsureInitialized(ctx context.Context, userID, playlistID string) (int, error) {
	untrained, err := p.untrainedByPopularity(ctx, userID, playlistID)
	if err != nil {
		return 0, err
	}
	if len(untrained) == 0 {
		return 0, nil
	}
	if len(untrained) > initialPoolSize {
		untrained = untrained[:initialPoolSize]
	}

	cards := make([]models.Card, 0, len(untrained))
	for _, track := range untrained {
		cards = append(cards, newCard(userID, playlistID, track.TrackID))
	}
	if err := p.store.CreateBatch(ctx, cards); err != nil {
		return 0, fmt.Errorf("failed to create card batch: %w", err)
	}
	p.log.Infow("initialized training pool",
		"playlist_id", playlistID, "cards", len(cards))
	return len(cards), nil
}

// BackfillOne adds a card for the single most popular untracked track.
// An exhausted playlist is not an error; it returns an empty track ID.
func (p *PoolManager) BackfillOne(ctx context.Context, userID, playlistID string) (string, error) {
	untrained, err := p.untrainedByPopularity(ctx, userID, playlistID)
	if err != nil {
		return "", err
	}
	if len(untrained) == 0 {
		p.log.Infow("playlist exhausted, nothing to backfill",
			"playlist_id", playlistID)
		return "", nil
	}

	card := newCard(userID, playlistID, untrained[0].TrackID)
	if err := p.store.CreateBatch(ctx, []models.Card{card}); err != nil {
		return "", fmt.Errorf("failed to create backfill card: %w", err)
	}
	return card.TrackID, nil
}

// untrainedByPopularity lists the playlist tracks without a card for this
// user, most popular first.
func (p *PoolManager) untrainedByPopularity(ctx context.Context, userID, playlistID string) ([]models.Track, error) {
	tracks, err := p.catalog.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	cards, err := p.store.ListForPair(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	tracked := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		tracked[card.TrackID] = struct{}{}
	}

	untrained := make([]models.Track, 0, len(tracks))
	for _, track := range tracks {
		if _, ok := tracked[track.TrackID]; !ok {
			untrained = append(untrained, track)
		}
	}
	sort.SliceStable(untrained, func(i, j int) bool {
		return untrained[i].Popularity > untrained[j].Popularity
	})
	return untrained, nil
}

func newCard(userID, playlistID, trackID string) models.Card {
	return models.Card{
		UserID:     userID,
		PlaylistID: playlistID,
		TrackID:    trackID,
		RepeatInN:  1 + rand.Intn(maxStartCountdown),
	}
}
