package models

import "time"

// GuessLog is an append-only record of one scored guess.
type GuessLog struct {
	ID          int64     `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	PlaylistID  string    `json:"playlist_id" db:"playlist_id"`
	TrackID     string    `json:"track_id" db:"track_id"`
	Score       int       `json:"score" db:"score"`
	TitleGuess  string    `json:"title_guess" db:"title_guess"`
	ArtistGuess string    `json:"artist_guess" db:"artist_guess"`
	YearGuess   int       `json:"year_guess" db:"year_guess"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
