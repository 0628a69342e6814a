package training

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/example/songtrainer/pkg/models"
)

// fakeCardStore is an in-memory CardStore for exercising the scheduler
// without a database.
type fakeCardStore struct {
	cards map[string]*models.Card
	order []string
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[string]*models.Card)}
}

func cardKey(userID, playlistID, trackID string) string {
	return userID + "|" + playlistID + "|" + trackID
}

func (s *fakeCardStore) Get(_ context.Context, userID, playlistID, trackID string) (*models.Card, error) {
	card, ok := s.cards[cardKey(userID, playlistID, trackID)]
	if !ok {
		return nil, nil
	}
	copied := *card
	return &copied, nil
}

func (s *fakeCardStore) ListForPair(_ context.Context, userID, playlistID string) ([]models.Card, error) {
	var out []models.Card
	for _, key := range s.order {
		card := s.cards[key]
		if card.UserID == userID && card.PlaylistID == playlistID {
			out = append(out, *card)
		}
	}
	return out, nil
}

func (s *fakeCardStore) CreateBatch(_ context.Context, cards []models.Card) error {
	for _, card := range cards {
		key := cardKey(card.UserID, card.PlaylistID, card.TrackID)
		if _, exists := s.cards[key]; exists {
			return fmt.Errorf("duplicate card %s", key)
		}
		copied := card
		s.cards[key] = &copied
		s.order = append(s.order, key)
	}
	return nil
}

func (s *fakeCardStore) Update(_ context.Context, card *models.Card, prevRevisions int) error {
	key := cardKey(card.UserID, card.PlaylistID, card.TrackID)
	current, ok := s.cards[key]
	if !ok {
		return fmt.Errorf("card %s does not exist", key)
	}
	if current.Revisions != prevRevisions {
		return ErrConflict
	}
	copied := *card
	s.cards[key] = &copied
	return nil
}

func (s *fakeCardStore) DecrementAll(_ context.Context, userID, playlistID string, by int) error {
	for _, card := range s.cards {
		if card.UserID == userID && card.PlaylistID == playlistID {
			card.RepeatInN -= by
		}
	}
	return nil
}

func (s *fakeCardStore) CountBelowStreak(_ context.Context, userID, playlistID string, threshold int) (int, error) {
	count := 0
	for _, card := range s.cards {
		if card.UserID == userID && card.PlaylistID == playlistID && card.CorrectInRow < threshold {
			count++
		}
	}
	return count, nil
}

func (s *fakeCardStore) CountAll(_ context.Context, userID, playlistID string) (int, error) {
	count := 0
	for _, card := range s.cards {
		if card.UserID == userID && card.PlaylistID == playlistID {
			count++
		}
	}
	return count, nil
}

func (s *fakeCardStore) CountDone(_ context.Context, userID, playlistID string) (int, error) {
	count := 0
	for _, card := range s.cards {
		if card.UserID == userID && card.PlaylistID == playlistID && card.IsDone {
			count++
		}
	}
	return count, nil
}

func (s *fakeCardStore) TotalRevisions(_ context.Context, userID, playlistID string) (int, error) {
	total := 0
	for _, card := range s.cards {
		if card.UserID == userID && card.PlaylistID == playlistID {
			total += card.Revisions
		}
	}
	return total, nil
}

// fakeCatalog serves a fixed track list.
type fakeCatalog struct {
	tracks []models.Track
	err    error
}

func (c *fakeCatalog) PlaylistTracks(_ context.Context, _ string) ([]models.Track, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.tracks, nil
}

func (c *fakeCatalog) Track(_ context.Context, trackID string) (*models.Track, error) {
	if c.err != nil {
		return nil, c.err
	}
	for i := range c.tracks {
		if c.tracks[i].TrackID == trackID {
			return &c.tracks[i], nil
		}
	}
	return nil, fmt.Errorf("track %s not in catalog", trackID)
}

func testTracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			TrackID:    fmt.Sprintf("track-%02d", i),
			Name:       fmt.Sprintf("Song %d", i),
			Year:       1990 + i%30,
			Popularity: i, // later tracks are more popular
			Artists:    []string{"Artist"},
		}
	}
	return tracks
}

func newTestService(store CardStore, catalog Catalog) *Service {
	log := zap.NewNop().Sugar()
	pool := NewPoolManager(store, catalog, log)
	policy := NewIntervalPolicy(log)
	return NewService(store, catalog, pool, policy, nil, nil, log)
}

func TestNextTrackInitializesPool(t *testing.T) {
	store := newFakeCardStore()
	catalog := &fakeCatalog{tracks: testTracks(25)}
	svc := newTestService(store, catalog)
	ctx := context.Background()

	trackID, err := svc.NextTrack(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("NextTrack: %v", err)
	}
	if trackID == "" {
		t.Fatal("NextTrack returned no track")
	}

	cards, _ := store.ListForPair(ctx, "u1", "p1")
	if len(cards) != initialPoolSize {
		t.Fatalf("pool size = %d, want %d", len(cards), initialPoolSize)
	}
	for _, card := range cards {
		if card.RepeatInN < 1 || card.RepeatInN > maxStartCountdown {
			t.Errorf("card %s starts with countdown %d, want within [1, %d]",
				card.TrackID, card.RepeatInN, maxStartCountdown)
		}
		// Popularity 0..4 belongs to the five least popular tracks, which
		// must not make the initial cut.
		if card.TrackID < "track-05" {
			t.Errorf("unpopular track %s made the initial pool", card.TrackID)
		}
	}
}

func TestNextTrackTicksUntilDue(t *testing.T) {
	store := newFakeCardStore()
	catalog := &fakeCatalog{tracks: testTracks(25)}
	svc := newTestService(store, catalog)
	ctx := context.Background()

	trackID, err := svc.NextTrack(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("NextTrack: %v", err)
	}

	card, err := store.Get(ctx, "u1", "p1", trackID)
	if err != nil || card == nil {
		t.Fatalf("selected track %s has no card", trackID)
	}
	if !card.Due() {
		t.Errorf("selected card has countdown %d, want <= 0", card.RepeatInN)
	}
}

func TestNextTrackEmptyPlaylist(t *testing.T) {
	store := newFakeCardStore()
	catalog := &fakeCatalog{}
	svc := newTestService(store, catalog)

	_, err := svc.NextTrack(context.Background(), "u1", "p1")
	if !errors.Is(err, ErrNoTrackAvailable) {
		t.Fatalf("err = %v, want ErrNoTrackAvailable", err)
	}
}

func TestNextTrackCatalogDown(t *testing.T) {
	store := newFakeCardStore()
	catalog := &fakeCatalog{err: errors.New("api down")}
	svc := newTestService(store, catalog)

	_, err := svc.NextTrack(context.Background(), "u1", "p1")
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("err = %v, want ErrCatalogUnavailable", err)
	}
}

func TestSubmitGuessScoresAndAdvances(t *testing.T) {
	store := newFakeCardStore()
	catalog := &fakeCatalog{tracks: testTracks(25)}
	svc := newTestService(store, catalog)
	ctx := context.Background()

	trackID, err := svc.NextTrack(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("NextTrack: %v", err)
	}
	truth, _ := catalog.Track(ctx, trackID)

	guess := Guess{Title: &truth.Name, Artist: truth.Artists[0], Year: truth.Year}
	result, err := svc.SubmitGuess(ctx, "u1", "p1", trackID, guess)
	if err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if result.Score != 5 {
		t.Errorf("Score = %d, want 5", result.Score)
	}
	if result.CorrectTitle != truth.Name || result.CorrectYear != truth.Year {
		t.Errorf("correct answer mismatch: %+v", result)
	}

	card, _ := store.Get(ctx, "u1", "p1", trackID)
	if card.Revisions != 1 {
		t.Errorf("Revisions = %d, want 1", card.Revisions)
	}
	if card.CorrectGuesses != 1 || card.CorrectInRow != 1 {
		t.Errorf("counters = %d/%d, want 1/1", card.CorrectGuesses, card.CorrectInRow)
	}
	if card.Due() {
		t.Error("card still due after a scored guess")
	}
}

func TestSubmitGuessRejectsNotDue(t *testing.T) {
	store := newFakeCardStore()
	catalog := &fakeCatalog{tracks: testTracks(25)}
	svc := newTestService(store, catalog)
	ctx := context.Background()

	trackID, err := svc.NextTrack(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("NextTrack: %v", err)
	}
	truth, _ := catalog.Track(ctx, trackID)

	guess := Guess{Title: &truth.Name, Artist: truth.Artists[0], Year: truth.Year}
	if _, err := svc.SubmitGuess(ctx, "u1", "p1", trackID, guess); err != nil {
		t.Fatalf("first SubmitGuess: %v", err)
	}
	if _, err := svc.SubmitGuess(ctx, "u1", "p1", trackID, guess); !errors.Is(err, ErrCardNotDue) {
		t.Fatalf("second SubmitGuess err = %v, want ErrCardNotDue", err)
	}
}

func TestSubmitGuessUnknownCard(t *testing.T) {
	store := newFakeCardStore()
	catalog := &fakeCatalog{tracks: testTracks(5)}
	svc := newTestService(store, catalog)

	_, err := svc.SubmitGuess(context.Background(), "u1", "p1", "track-00", Guess{})
	if !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("err = %v, want ErrCardNotFound", err)
	}
}

func TestStats(t *testing.T) {
	store := newFakeCardStore()
	ctx := context.Background()
	cards := []models.Card{
		{UserID: "u1", PlaylistID: "p1", TrackID: "a", Revisions: 3},
		{UserID: "u1", PlaylistID: "p1", TrackID: "b", Revisions: 7, IsDone: true},
		{UserID: "u1", PlaylistID: "other", TrackID: "c", Revisions: 100},
	}
	if err := store.CreateBatch(ctx, cards); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	svc := newTestService(store, &fakeCatalog{})

	stats, err := svc.Stats(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ActiveTracks != 2 || stats.FinishedTracks != 1 || stats.TotalRevisions != 10 {
		t.Errorf("stats = %+v, want 2 active, 1 finished, 10 revisions", stats)
	}
}

func TestGraduationBackfillsPool(t *testing.T) {
	store := newFakeCardStore()
	catalog := &fakeCatalog{tracks: testTracks(30)}
	svc := newTestService(store, catalog)
	ctx := context.Background()

	if _, err := svc.NextTrack(ctx, "u1", "p1"); err != nil {
		t.Fatalf("NextTrack: %v", err)
	}

	// Put one due card on the brink of graduation. The 19 siblings keep the
	// still-learning count above the graduation floor.
	cards, _ := store.ListForPair(ctx, "u1", "p1")
	target := cards[0]
	target.CorrectGuesses = 8
	target.CorrectInRow = 8
	target.RepeatInN = 0
	if err := store.Update(ctx, &target, target.Revisions); err != nil {
		t.Fatalf("Update: %v", err)
	}

	truth, _ := catalog.Track(ctx, target.TrackID)
	guess := Guess{Title: &truth.Name, Artist: truth.Artists[0], Year: truth.Year}
	result, err := svc.SubmitGuess(ctx, "u1", "p1", target.TrackID, guess)
	if err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if result.Score != 5 {
		t.Fatalf("Score = %d, want 5", result.Score)
	}

	updated, _ := store.Get(ctx, "u1", "p1", target.TrackID)
	if !updated.IsDone {
		t.Fatal("card did not graduate")
	}
	total, _ := store.CountAll(ctx, "u1", "p1")
	if total != initialPoolSize+1 {
		t.Errorf("pool size after graduation = %d, want %d", total, initialPoolSize+1)
	}
}
