package training

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/example/songtrainer/pkg/models"
)

// maxUpdateRetries bounds the optimistic-write retry loop in SubmitGuess.
const maxUpdateRetries = 3

// GuessResult is what the caller gets back for a scored guess.
type GuessResult struct {
	Score          int      `json:"score"`
	CorrectTitle   string   `json:"correct_title"`
	CorrectArtists []string `json:"correct_artists"`
	CorrectYear    int      `json:"correct_year"`
}

// Service is the scheduler: it composes the pool manager, the card store,
// the interval policy and the scorer into the nextTrack / submitGuess /
// stats operations.
type Service struct {
	store   CardStore
	catalog Catalog
	pool    *PoolManager
	policy  *IntervalPolicy
	users   UserStore // optional streak bookkeeping
	guesses GuessSink // optional guess history
	log     *zap.SugaredLogger
}

// NewService wires the scheduler. users and guesses may be nil; the trainer
// works without streaks or a guess history.
func NewService(store CardStore, catalog Catalog, pool *PoolManager, policy *IntervalPolicy, users UserStore, guesses GuessSink, log *zap.SugaredLogger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		pool:    pool,
		policy:  policy,
		users:   users,
		guesses: guesses,
		log:     log,
	}
}

// NextTrack picks the track the user should hear next. When no card is due
// the whole pool cools down by the smallest remaining countdown, which is
// guaranteed to surface at least one due card. Selecting a card does not
// mutate it; only SubmitGuess changes countdowns.
func (s *Service) NextTrack(ctx context.Context, userID, playlistID string) (string, error) {
	cards, err := s.store.ListForPair(ctx, userID, playlistID)
	if err != nil {
		return "", err
	}
	if len(cards) == 0 {
		created, err := s.pool.EnsureInitialized(ctx, userID, playlistID)
		if err != nil {
			return "", err
		}
		if created == 0 {
			return "", ErrNoTrackAvailable
		}
		if cards, err = s.store.ListForPair(ctx, userID, playlistID); err != nil {
			return "", err
		}
	}

	due := dueCards(cards)
	if len(due) == 0 {
		// One tick per remaining countdown step, collapsed into a single
		// decrement. The pool is non-empty here, so this terminates.
		min := cards[0].RepeatInN
		for _, card := range cards[1:] {
			if card.RepeatInN < min {
				min = card.RepeatInN
			}
		}
		if err := s.store.DecrementAll(ctx, userID, playlistID, min); err != nil {
			return "", err
		}
		if cards, err = s.store.ListForPair(ctx, userID, playlistID); err != nil {
			return "", err
		}
		due = dueCards(cards)
		if len(due) == 0 {
			return "", ErrNoTrackAvailable
		}
	}

	pick := due[rand.Intn(len(due))]
	return pick.TrackID, nil
}

// SubmitGuess scores a guess for the active card, advances the card's
// schedule and persists it in one atomic, versioned write. Lost races are
// retried a bounded number of times against a fresh read.
func (s *Service) SubmitGuess(ctx context.Context, userID, playlistID, trackID string, guess Guess) (*GuessResult, error) {
	card, err := s.store.Get(ctx, userID, playlistID, trackID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	if !card.Due() {
		return nil, ErrCardNotDue
	}

	truth, err := s.catalog.Track(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	score := Score(guess, truth)

	var adv Advance
	for attempt := 0; ; attempt++ {
		stillLearning := 0
		if score == 5 {
			if stillLearning, err = s.store.CountBelowStreak(ctx, userID, playlistID, learningStreakThreshold); err != nil {
				return nil, err
			}
		}

		adv = s.policy.Advance(card, score, stillLearning)
		updated := *card
		updated.CorrectGuesses = adv.CorrectGuesses
		updated.CorrectInRow = adv.CorrectInRow
		updated.RepeatInN = adv.RepeatInN
		updated.IsDone = adv.IsDone
		updated.Revisions = card.Revisions + 1

		err = s.store.Update(ctx, &updated, card.Revisions)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConflict) || attempt+1 >= maxUpdateRetries {
			return nil, err
		}

		// Lost the race; re-read and re-check due-ness before retrying.
		if card, err = s.store.Get(ctx, userID, playlistID, trackID); err != nil {
			return nil, err
		}
		if card == nil {
			return nil, ErrCardNotFound
		}
		if !card.Due() {
			return nil, ErrCardNotDue
		}
	}

	if adv.Graduated {
		added, err := s.pool.BackfillOne(ctx, userID, playlistID)
		if err != nil {
			s.log.Warnw("backfill after graduation failed",
				"playlist_id", playlistID, "error", err)
		} else if added != "" {
			s.log.Infow("card graduated, pool backfilled",
				"track_id", trackID, "added_track_id", added)
		}
	}

	if s.users != nil {
		if err := s.users.RecordGuessStreak(ctx, userID, score == 5); err != nil {
			s.log.Warnw("failed to record guess streak", "error", err)
		}
	}
	if s.guesses != nil {
		entry := &models.GuessLog{
			UserID:      userID,
			PlaylistID:  playlistID,
			TrackID:     trackID,
			Score:       score,
			ArtistGuess: guess.Artist,
			YearGuess:   guess.Year,
		}
		if guess.Title != nil {
			entry.TitleGuess = *guess.Title
		}
		if err := s.guesses.Create(ctx, entry); err != nil {
			s.log.Warnw("failed to log guess", "error", err)
		}
	}

	return &GuessResult{
		Score:          score,
		CorrectTitle:   truth.Name,
		CorrectArtists: truth.Artists,
		CorrectYear:    truth.Year,
	}, nil
}

// Stats reports pool counts and the total number of scored guesses for a
// (user, playlist) pair.
func (s *Service) Stats(ctx context.Context, userID, playlistID string) (*models.Stats, error) {
	active, err := s.store.CountAll(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	finished, err := s.store.CountDone(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	revisions, err := s.store.TotalRevisions(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	return &models.Stats{
		ActiveTracks:   active,
		FinishedTracks: finished,
		TotalRevisions: revisions,
	}, nil
}

func dueCards(cards []models.Card) []models.Card {
	due := make([]models.Card, 0, len(cards))
	for _, card := range cards {
		if card.Due() {
			due = append(due, card)
		}
	}
	return due
}
