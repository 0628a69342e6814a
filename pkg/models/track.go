package models

import "time"

// Track is song metadata cached from the music catalog.
type Track struct {
	TrackID    string    `json:"track_id" db:"track_id"`
	Name       string    `json:"name" db:"name"`
	Year       int       `json:"year" db:"year"`
	Popularity int       `json:"popularity" db:"popularity"`
	Artists    []string  `json:"artists" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Complete reports whether the cached row carries everything the trainer
// needs: a name, a release year and at least one artist.
func (t *Track) Complete() bool {
	return t.Name != "" && t.Year > 0 && len(t.Artists) > 0
}
