package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/songtrainer/internal/database"
	"github.com/example/songtrainer/internal/export"
	"github.com/example/songtrainer/internal/music"
	"github.com/example/songtrainer/internal/training"
	"github.com/example/songtrainer/pkg/models"
)

// TrainingHandler exposes the guessing game over JSON.
type TrainingHandler struct {
	service  *training.Service
	playback *music.Playback
	cards    *database.CardRepository
	tracks   *database.TrackRepository
	log      *zap.SugaredLogger
}

// NewTrainingHandler creates the training handler set.
func NewTrainingHandler(service *training.Service, playback *music.Playback, cards *database.CardRepository, tracks *database.TrackRepository, log *zap.SugaredLogger) *TrainingHandler {
	return &TrainingHandler{service: service, playback: playback, cards: cards, tracks: tracks, log: log}
}

type setPlaylistRequest struct {
	PlaylistURL string `json:"playlist_url" binding:"required"`
}

// SetPlaylist starts (or resumes) training on a playlist: it picks the next
// due track and starts it on the user's player.
func (h *TrainingHandler) SetPlaylist(c *gin.Context) {
	var req setPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	playlistID, err := parsePlaylistID(req.PlaylistURL)
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	userID := sessionUserID(c)
	trackID, err := h.service.NextTrack(c.Request.Context(), userID, playlistID)
	if err != nil {
		h.respondTrainingError(c, err)
		return
	}

	h.startPlayback(c, userID, trackID)
	respondOK(c, gin.H{"playlist_id": playlistID, "track_id": trackID})
}

type checkGuessRequest struct {
	PlaylistID string  `json:"playlist_id" binding:"required"`
	TrackID    string  `json:"track_id" binding:"required"`
	Name       *string `json:"name"`
	Artist     string  `json:"artist"`
	Year       int     `json:"year"`
}

// CheckGuess scores a guess against the active track and returns the score
// together with the right answer.
func (h *TrainingHandler) CheckGuess(c *gin.Context) {
	var req checkGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	guess := training.Guess{Title: req.Name, Artist: req.Artist, Year: req.Year}
	result, err := h.service.SubmitGuess(c.Request.Context(), sessionUserID(c), req.PlaylistID, req.TrackID, guess)
	if err != nil {
		h.respondTrainingError(c, err)
		return
	}

	respondOK(c, gin.H{
		"score": result.Score,
		"correct_answer": gin.H{
			"title":   result.CorrectTitle,
			"artists": result.CorrectArtists,
			"year":    result.CorrectYear,
		},
	})
}

type skipRequest struct {
	PlaylistID string `json:"playlist_id" binding:"required"`
}

// Skip moves on without guessing: picks the next due track and plays it.
func (h *TrainingHandler) Skip(c *gin.Context) {
	var req skipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	userID := sessionUserID(c)
	trackID, err := h.service.NextTrack(c.Request.Context(), userID, req.PlaylistID)
	if err != nil {
		h.respondTrainingError(c, err)
		return
	}

	h.startPlayback(c, userID, trackID)
	respondOK(c, gin.H{"track_id": trackID})
}

// PlayPause toggles the user's player.
func (h *TrainingHandler) PlayPause(c *gin.Context) {
	if err := h.playback.TogglePlayPause(c.Request.Context(), sessionUserID(c)); err != nil {
		if errors.Is(err, music.ErrNotConnected) {
			respondError(c, http.StatusConflict, "not_connected", err)
			return
		}
		h.log.Errorw("play/pause failed", "error", err)
		respondError(c, http.StatusBadGateway, "player_error", errors.New("player request failed"))
		return
	}
	respondOK(c, gin.H{"status": "toggled"})
}

type statsRequest struct {
	PlaylistID string `json:"playlist_id" binding:"required"`
}

// Stats reports pool counts for a playlist.
func (h *TrainingHandler) Stats(c *gin.Context) {
	var req statsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), sessionUserID(c), req.PlaylistID)
	if err != nil {
		h.respondTrainingError(c, err)
		return
	}
	respondOK(c, stats)
}

// ExportStats streams the user's per-track progress as a spreadsheet.
func (h *TrainingHandler) ExportStats(c *gin.Context) {
	playlistID := c.Query("playlist_id")
	if playlistID == "" {
		respondError(c, http.StatusBadRequest, "bad_request", errors.New("playlist_id is required"))
		return
	}

	ctx := c.Request.Context()
	cards, err := h.cards.ListForPair(ctx, sessionUserID(c), playlistID)
	if err != nil {
		h.respondTrainingError(c, err)
		return
	}

	tracks := make(map[string]models.Track, len(cards))
	for _, card := range cards {
		track, err := h.tracks.Get(ctx, card.TrackID)
		if err != nil {
			h.log.Warnw("failed to load track for export", "track_id", card.TrackID, "error", err)
			continue
		}
		if track != nil {
			tracks[card.TrackID] = *track
		}
	}

	workbook, err := export.StatsWorkbook(cards, tracks)
	if err != nil {
		h.log.Errorw("failed to build stats workbook", "error", err)
		respondError(c, http.StatusInternalServerError, "internal", errors.New("failed to build export"))
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="progress.xlsx"`)
	if err := workbook.Write(c.Writer); err != nil {
		h.log.Errorw("failed to stream workbook", "error", err)
	}
}

// startPlayback starts the track on the user's player. Playback is best
// effort: the game works even when no device is connected.
func (h *TrainingHandler) startPlayback(c *gin.Context, userID, trackID string) {
	if err := h.playback.PlayTrack(c.Request.Context(), userID, trackID); err != nil {
		h.log.Warnw("failed to start playback", "user_id", userID, "track_id", trackID, "error", err)
	}
}

func (h *TrainingHandler) respondTrainingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, training.ErrNoTrackAvailable):
		respondError(c, http.StatusNotFound, "no_track", err)
	case errors.Is(err, training.ErrCardNotFound):
		respondError(c, http.StatusNotFound, "card_not_found", err)
	case errors.Is(err, training.ErrCardNotDue):
		respondError(c, http.StatusConflict, "card_not_due", err)
	case errors.Is(err, training.ErrCatalogUnavailable):
		h.log.Errorw("catalog unavailable", "error", err)
		respondError(c, http.StatusServiceUnavailable, "catalog_unavailable", errors.New("catalog unavailable"))
	case errors.Is(err, training.ErrConflict):
		respondError(c, http.StatusServiceUnavailable, "conflict", errors.New("please retry"))
	default:
		h.log.Errorw("training operation failed", "error", err)
		respondError(c, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}

// parsePlaylistID accepts a bare playlist ID, a Spotify share link or a
// spotify: URI and extracts the ID.
func parsePlaylistID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("playlist_url is empty")
	}
	if cut, _, found := strings.Cut(raw, "?"); found {
		raw = cut
	}
	raw = strings.TrimSuffix(raw, "/")
	if strings.HasPrefix(raw, "spotify:playlist:") {
		raw = strings.TrimPrefix(raw, "spotify:playlist:")
	} else if idx := strings.LastIndex(raw, "/"); idx >= 0 {
		raw = raw[idx+1:]
	}
	if raw == "" {
		return "", fmt.Errorf("could not extract playlist id")
	}
	return raw, nil
}
