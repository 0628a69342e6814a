package training

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/example/songtrainer/pkg/models"
)

const (
	// intervalModifierBase anchors the growth factor for perfect guesses;
	// the actual factor is drawn from [base-0.1, base+0.3].
	intervalModifierBase = 1.35
	// graduationGap is the countdown a perfect guess must exceed before the
	// card may graduate.
	graduationGap = 25
	// learningStreakThreshold: cards with a shorter streak count as still
	// learning.
	learningStreakThreshold = 3
	// minLearningPool: graduation is withheld unless at least this many
	// still-learning cards remain in circulation.
	minLearningPool = 15
)

// Advance is the card mutation computed for one scored guess. RepeatInN
// always replaces the card's countdown; Revisions is incremented by the
// caller as part of the versioned write.
type Advance struct {
	RepeatInN      int
	CorrectGuesses int
	CorrectInRow   int
	IsDone         bool
	Graduated      bool
}

// IntervalPolicy maps a guess score and a card's counters to the card's next
// repetition interval.
type IntervalPolicy struct {
	log *zap.SugaredLogger
}

// NewIntervalPolicy creates the policy. The logger is used only for the
// defensive counter clamp, which is never expected to fire.
func NewIntervalPolicy(log *zap.SugaredLogger) *IntervalPolicy {
	return &IntervalPolicy{log: log}
}

// Advance computes the new countdown and counter values for a card.
// stillLearning is the number of sibling cards with correct_in_row below
// learningStreakThreshold; it throttles graduation so the active pool never
// drains below minLearningPool.
func (p *IntervalPolicy) Advance(card *models.Card, score int, stillLearning int) Advance {
	adv := Advance{
		CorrectGuesses: card.CorrectGuesses,
		CorrectInRow:   card.CorrectInRow,
		IsDone:         card.IsDone,
	}

	var baseGap int
	switch score {
	case 5:
		adv.CorrectGuesses++
		adv.CorrectInRow++
		modifier := intervalModifierBase - 0.1 + rand.Float64()*0.4
		baseGap = int(math.Round(10*math.Pow(modifier, float64(adv.CorrectInRow)))) + 3
		jitterMax := baseGap / 20
		if jitterMax < 1 {
			jitterMax = 1
		}
		baseGap += rand.Intn(jitterMax + 1)

		if baseGap > graduationGap && !card.IsDone && stillLearning >= minLearningPool {
			adv.IsDone = true
			adv.Graduated = true
		}
	case 4:
		baseGap = 10 + rand.Intn(4)
	case 3:
		baseGap = 6 + rand.Intn(3)
	case 2:
		baseGap = 4 + rand.Intn(3)
	case 1:
		baseGap = 2 + rand.Intn(3)
	default:
		baseGap = 1 + rand.Intn(3)
	}

	if score < 4 {
		// The demoted guess count derives from the pre-update streak, not
		// from the guess counter itself.
		adv.CorrectGuesses = card.CorrectInRow - 1
		if adv.CorrectGuesses < 0 {
			adv.CorrectGuesses = 0
		}
		adv.CorrectInRow = 0
	}

	// Counters must never be negative in a readable state. The formulas
	// above guarantee that already, so an actual clamp is worth a warning.
	if adv.CorrectGuesses < 0 {
		p.log.Warnw("clamped negative correct_guesses",
			"track_id", card.TrackID, "value", adv.CorrectGuesses)
		adv.CorrectGuesses = 0
	}
	if adv.CorrectInRow < 0 {
		p.log.Warnw("clamped negative correct_in_row",
			"track_id", card.TrackID, "value", adv.CorrectInRow)
		adv.CorrectInRow = 0
	}

	adv.RepeatInN = baseGap
	return adv
}
