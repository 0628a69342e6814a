package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Client talks to the Spotify Web API. App-level metadata calls (tracks,
// playlists) authenticate with the client-credentials flow; user-level calls
// take the user's access token. All requests go through one http.Client
// with a bounded timeout.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	http         *http.Client

	// Endpoint bases, overridable in tests.
	apiURL     string
	accountURL string

	mu          sync.Mutex
	appToken    string
	appTokenExp time.Time
}

// New creates a client. Client ID and secret must be configured.
func New(clientID, clientSecret, redirectURI string) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("spotify client ID and secret must be configured")
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		http:         &http.Client{Timeout: 10 * time.Second},
		apiURL:       "https://api.spotify.com/v1",
		accountURL:   "https://accounts.spotify.com",
	}, nil
}

type apiErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

type trackBody struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		ReleaseDate string `json:"release_date"`
	} `json:"album"`
	Popularity int `json:"popularity"`
}

// TrackDetails is the cleaned-up metadata for one track.
type TrackDetails struct {
	TrackID    string
	Name       string
	Artists    []string
	Year       int
	Popularity int
}

// Track fetches metadata for a single track.
func (c *Client) Track(ctx context.Context, trackID string) (*TrackDetails, error) {
	token, err := c.appAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	var body trackBody
	if err := c.doAPI(ctx, http.MethodGet, "/tracks/"+trackID, token, nil, &body); err != nil {
		return nil, fmt.Errorf("failed to fetch track %s: %v", trackID, err)
	}

	details := &TrackDetails{
		TrackID:    trackID,
		Name:       body.Name,
		Popularity: body.Popularity,
	}
	for _, artist := range body.Artists {
		details.Artists = append(details.Artists, artist.Name)
	}
	// Release dates come as "2006", "2006-01" or "2006-01-02".
	if len(body.Album.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(body.Album.ReleaseDate[:4]); err == nil {
			details.Year = year
		}
	}
	return details, nil
}

// PlaylistTrackIDs returns the track IDs of a playlist in playlist order,
// following pagination. Local files (null tracks) are skipped.
func (c *Client) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	token, err := c.appAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	path := "/playlists/" + playlistID + "/tracks?limit=100&fields=" +
		url.QueryEscape("items(track(id)),next")
	for path != "" {
		var page struct {
			Items []struct {
				Track *struct {
					ID string `json:"id"`
				} `json:"track"`
			} `json:"items"`
			Next string `json:"next"`
		}
		if err := c.doAPI(ctx, http.MethodGet, path, token, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch playlist %s: %v", playlistID, err)
		}
		for _, item := range page.Items {
			if item.Track != nil && item.Track.ID != "" {
				ids = append(ids, item.Track.ID)
			}
		}
		path = strings.TrimPrefix(page.Next, c.apiURL)
		if path == page.Next {
			// Absolute next URL pointing elsewhere; stop rather than loop.
			break
		}
	}
	return ids, nil
}

// PlaylistName returns the display name of a playlist.
func (c *Client) PlaylistName(ctx context.Context, playlistID string) (string, error) {
	token, err := c.appAccessToken(ctx)
	if err != nil {
		return "", err
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := c.doAPI(ctx, http.MethodGet, "/playlists/"+playlistID+"?fields=name", token, nil, &body); err != nil {
		return "", fmt.Errorf("failed to fetch playlist details: %v", err)
	}
	return body.Name, nil
}

// appAccessToken returns a cached client-credentials token, requesting a
// fresh one shortly before expiry.
func (c *Client) appAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.appToken != "" && time.Now().Before(c.appTokenExp.Add(-30*time.Second)) {
		return c.appToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	token, err := c.requestToken(ctx, form)
	if err != nil {
		return "", err
	}
	c.appToken = token.AccessToken
	c.appTokenExp = token.ExpiresAt
	return c.appToken, nil
}

// doAPI performs one API request with a bearer token and decodes the JSON
// response into out (which may be nil for empty responses).
func (c *Client) doAPI(ctx context.Context, method, path, token string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("API error %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("API error %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}
