package models

import "time"

// Card is a per-(user, playlist, track) learning record tracking repetition state.
type Card struct {
	UserID         string    `json:"user_id" db:"user_id"`
	PlaylistID     string    `json:"playlist_id" db:"playlist_id"`
	TrackID        string    `json:"track_id" db:"track_id"`
	CorrectGuesses int       `json:"correct_guesses" db:"correct_guesses"`
	CorrectInRow   int       `json:"correct_in_row" db:"correct_in_row"`
	RepeatInN      int       `json:"repeat_in_n" db:"repeat_in_n"`
	Revisions      int       `json:"revisions" db:"revisions"`
	IsDone         bool      `json:"is_done" db:"is_done"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Due reports whether the card's countdown has run out.
func (c *Card) Due() bool {
	return c.RepeatInN <= 0
}
