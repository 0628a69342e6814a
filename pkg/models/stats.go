package models

// Stats summarizes a user's training progress for one playlist.
type Stats struct {
	ActiveTracks   int `json:"active_tracks"`
	FinishedTracks int `json:"finished_tracks"`
	TotalRevisions int `json:"total_revisions"`
}
