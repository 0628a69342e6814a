package training

import (
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/example/songtrainer/pkg/models"
)

// Guess is the user's answer for the currently playing track. Title may be
// omitted; artist and year are required.
type Guess struct {
	Title  *string `json:"name"`
	Artist string  `json:"artist"`
	Year   int     `json:"year"`
}

var parenthetical = regexp.MustCompile(`\(.*?\)`)

// CleanTitle strips decorations nobody is expected to type: parenthetical
// segments and everything behind a hyphen ("Song - Remastered 2011").
func CleanTitle(title string) string {
	title = parenthetical.ReplaceAllString(title, "")
	title = strings.SplitN(title, "-", 2)[0]
	return strings.TrimSpace(title)
}

// Score rates a guess against the true track metadata on a 0..5 scale.
//
// The year difference sets the base (up to 2.5 points), title and artist
// similarity add up to 1.25 points each. A similarity above 60 earns the
// full bonus; below that only a token amount is granted. An exact total of
// 5 is downgraded to 4 unless both similarities are at least 80, so a
// barely-over-the-threshold match never counts as perfect.
func Score(guess Guess, truth *models.Track) int {
	titleSim := 0
	if guess.Title != nil {
		titleSim = fuzzy.Ratio(
			strings.ToLower(CleanTitle(truth.Name)),
			strings.ToLower(*guess.Title),
		)
	}

	artistSim := 0
	for _, artist := range truth.Artists {
		r := fuzzy.Ratio(strings.ToLower(artist), strings.ToLower(guess.Artist))
		if r > artistSim {
			artistSim = r
		}
	}

	yearDiff := truth.Year - guess.Year
	if yearDiff < 0 {
		yearDiff = -yearDiff
	}
	if yearDiff > 5 {
		yearDiff = 5
	}

	score := float64(5-yearDiff) / 2
	if titleSim > 60 {
		score += 1.25
	} else {
		score += float64(titleSim) / 100 * 0.3
	}
	if artistSim > 60 {
		score += 1.25
	} else {
		score += float64(artistSim) / 100 * 0.3
	}

	if score == 5 && (artistSim < 80 || titleSim < 80) {
		return 4
	}

	final := int(score)
	if final < 0 {
		final = 0
	}
	if final > 5 {
		final = 5
	}
	return final
}
