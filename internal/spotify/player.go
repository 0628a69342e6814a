package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Playback control against the user's active device. All calls take the
// user's access token; token refresh is the caller's concern.

// Play starts playback of one track.
func (c *Client) Play(ctx context.Context, accessToken, trackID string) error {
	body := fmt.Sprintf(`{"uris":["spotify:track:%s"]}`, trackID)
	if err := c.doAPI(ctx, http.MethodPut, "/me/player/play", accessToken, strings.NewReader(body), nil); err != nil {
		return fmt.Errorf("failed to start playback: %v", err)
	}
	return nil
}

// Resume continues playback where the player left off.
func (c *Client) Resume(ctx context.Context, accessToken string) error {
	if err := c.doAPI(ctx, http.MethodPut, "/me/player/play", accessToken, nil, nil); err != nil {
		return fmt.Errorf("failed to resume playback: %v", err)
	}
	return nil
}

// Pause pauses the active device.
func (c *Client) Pause(ctx context.Context, accessToken string) error {
	if err := c.doAPI(ctx, http.MethodPut, "/me/player/pause", accessToken, nil, nil); err != nil {
		return fmt.Errorf("failed to pause playback: %v", err)
	}
	return nil
}

// CurrentPlayback returns the ID of the track currently loaded on the
// user's player and whether it is playing. Both are zero when no device is
// active.
func (c *Client) CurrentPlayback(ctx context.Context, accessToken string) (trackID string, isPlaying bool, err error) {
	var body struct {
		IsPlaying bool `json:"is_playing"`
		Item      *struct {
			ID string `json:"id"`
		} `json:"item"`
	}
	if err := c.doAPI(ctx, http.MethodGet, "/me/player", accessToken, nil, &body); err != nil {
		return "", false, fmt.Errorf("failed to fetch playback state: %v", err)
	}
	if body.Item != nil {
		trackID = body.Item.ID
	}
	return trackID, body.IsPlaying, nil
}
