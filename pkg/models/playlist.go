package models

import "time"

// Playlist is a playlist known to the trainer.
type Playlist struct {
	PlaylistID string    `json:"playlist_id" db:"playlist_id"`
	Name       string    `json:"name" db:"name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
