package database

import (
	"context"
	"errors"
	"testing"

	"github.com/example/songtrainer/internal/training"
	"github.com/example/songtrainer/pkg/models"
)

func testDB(t *testing.T) *CardRepository {
	t.Helper()
	db, err := Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCardRepository(db)
}

func seedCards(t *testing.T, repo *CardRepository, cards []models.Card) {
	t.Helper()
	if err := repo.CreateBatch(context.Background(), cards); err != nil {
		t.Fatalf("failed to seed cards: %v", err)
	}
}

func TestCardRepositoryGetAbsent(t *testing.T) {
	repo := testDB(t)
	card, err := repo.Get(context.Background(), "u1", "p1", "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if card != nil {
		t.Fatalf("Get returned %+v, want nil", card)
	}
}

func TestCardRepositoryCreateAndGet(t *testing.T) {
	repo := testDB(t)
	ctx := context.Background()
	seedCards(t, repo, []models.Card{
		{UserID: "u1", PlaylistID: "p1", TrackID: "t1", RepeatInN: 3},
		{UserID: "u1", PlaylistID: "p1", TrackID: "t2", RepeatInN: 1},
		{UserID: "u1", PlaylistID: "p2", TrackID: "t1", RepeatInN: 5},
	})

	card, err := repo.Get(ctx, "u1", "p1", "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if card == nil || card.RepeatInN != 3 || card.Revisions != 0 {
		t.Fatalf("Get returned %+v", card)
	}

	cards, err := repo.ListForPair(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("ListForPair: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("ListForPair returned %d cards, want 2", len(cards))
	}
}

func TestCardRepositoryUpdateVersionGuard(t *testing.T) {
	repo := testDB(t)
	ctx := context.Background()
	seedCards(t, repo, []models.Card{
		{UserID: "u1", PlaylistID: "p1", TrackID: "t1", RepeatInN: 0},
	})

	card, _ := repo.Get(ctx, "u1", "p1", "t1")
	card.CorrectGuesses = 1
	card.CorrectInRow = 1
	card.RepeatInN = 17
	card.Revisions = 1
	if err := repo.Update(ctx, card, 0); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// A writer still holding the old version must lose.
	stale := *card
	stale.Revisions = 1
	err := repo.Update(ctx, &stale, 0)
	if !errors.Is(err, training.ErrConflict) {
		t.Fatalf("stale update err = %v, want ErrConflict", err)
	}

	fresh, _ := repo.Get(ctx, "u1", "p1", "t1")
	if fresh.RepeatInN != 17 || fresh.Revisions != 1 {
		t.Fatalf("card after conflict = %+v", fresh)
	}
}

func TestCardRepositoryDecrementAll(t *testing.T) {
	repo := testDB(t)
	ctx := context.Background()
	seedCards(t, repo, []models.Card{
		{UserID: "u1", PlaylistID: "p1", TrackID: "t1", RepeatInN: 4},
		{UserID: "u1", PlaylistID: "p1", TrackID: "t2", RepeatInN: 2},
		{UserID: "u2", PlaylistID: "p1", TrackID: "t1", RepeatInN: 9},
	})

	if err := repo.DecrementAll(ctx, "u1", "p1", 2); err != nil {
		t.Fatalf("DecrementAll: %v", err)
	}

	cards, _ := repo.ListForPair(ctx, "u1", "p1")
	for _, card := range cards {
		want := map[string]int{"t1": 2, "t2": 0}[card.TrackID]
		if card.RepeatInN != want {
			t.Errorf("card %s countdown = %d, want %d", card.TrackID, card.RepeatInN, want)
		}
	}

	other, _ := repo.Get(ctx, "u2", "p1", "t1")
	if other.RepeatInN != 9 {
		t.Errorf("other user's card was decremented to %d", other.RepeatInN)
	}
}

func TestCardRepositoryCounts(t *testing.T) {
	repo := testDB(t)
	ctx := context.Background()
	seedCards(t, repo, []models.Card{
		{UserID: "u1", PlaylistID: "p1", TrackID: "t1", CorrectInRow: 0, Revisions: 2},
		{UserID: "u1", PlaylistID: "p1", TrackID: "t2", CorrectInRow: 4, Revisions: 6, IsDone: true},
		{UserID: "u1", PlaylistID: "p1", TrackID: "t3", CorrectInRow: 2, Revisions: 1},
	})

	if n, _ := repo.CountAll(ctx, "u1", "p1"); n != 3 {
		t.Errorf("CountAll = %d, want 3", n)
	}
	if n, _ := repo.CountDone(ctx, "u1", "p1"); n != 1 {
		t.Errorf("CountDone = %d, want 1", n)
	}
	if n, _ := repo.CountBelowStreak(ctx, "u1", "p1", 3); n != 2 {
		t.Errorf("CountBelowStreak = %d, want 2", n)
	}
	if n, _ := repo.TotalRevisions(ctx, "u1", "p1"); n != 9 {
		t.Errorf("TotalRevisions = %d, want 9", n)
	}
}
