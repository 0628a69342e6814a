package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// oauthScopes is what the trainer needs: controlling the user's player and
// reading what it currently plays.
const oauthScopes = "user-read-playback-state user-modify-playback-state"

// Token is one issued token set. RefreshToken may be empty on a refresh
// response; callers keep the previous one in that case.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthURL builds the authorization redirect for the code flow. state is
// echoed back on the callback and must be verified there.
func (c *Client) AuthURL(state string) string {
	query := url.Values{
		"client_id":     {c.clientID},
		"response_type": {"code"},
		"redirect_uri":  {c.redirectURI},
		"scope":         {oauthScopes},
		"state":         {state},
	}
	return c.accountURL + "/authorize?" + query.Encode()
}

// Exchange trades an authorization code for a token set.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.redirectURI},
	}
	return c.requestToken(ctx, form)
}

// Refresh renews an access token from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.requestToken(ctx, form)
}

// Me returns the Spotify user ID and display name of the token's owner.
func (c *Client) Me(ctx context.Context, accessToken string) (id, displayName string, err error) {
	var body struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	if err := c.doAPI(ctx, http.MethodGet, "/me", accessToken, nil, &body); err != nil {
		return "", "", fmt.Errorf("failed to fetch profile: %v", err)
	}
	if body.DisplayName == "" {
		body.DisplayName = body.ID
	}
	return body.ID, body.DisplayName, nil
}

// requestToken posts a form to the accounts token endpoint with basic auth.
func (c *Client) requestToken(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.accountURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %v", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request token: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		AccessToken      string `json:"access_token"`
		RefreshToken     string `json:"refresh_token"`
		ExpiresIn        int    `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %v", err)
	}
	if resp.StatusCode >= 400 || body.Error != "" {
		return nil, fmt.Errorf("token request failed: %s %s", body.Error, body.ErrorDescription)
	}

	return &Token{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
