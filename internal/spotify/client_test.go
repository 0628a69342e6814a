package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testClient points a real client at a local test server and pre-loads an
// app token so metadata calls skip the credentials flow.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New("id", "secret", "http://localhost/callback")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.apiURL = srv.URL
	c.accountURL = srv.URL
	c.appToken = "test-token"
	c.appTokenExp = time.Now().Add(time.Hour)
	return c
}

func TestTrackParsesMetadata(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tracks/abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{
			"id": "abc",
			"name": "Under Pressure",
			"artists": [{"name": "Queen"}, {"name": "David Bowie"}],
			"album": {"release_date": "1981-10-26"},
			"popularity": 77
		}`)
	}))

	details, err := c.Track(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if details.Name != "Under Pressure" || details.Year != 1981 || details.Popularity != 77 {
		t.Errorf("details = %+v", details)
	}
	if len(details.Artists) != 2 || details.Artists[1] != "David Bowie" {
		t.Errorf("artists = %v", details.Artists)
	}
}

func TestTrackYearOnlyReleaseDate(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "x", "name": "Old Song", "artists": [{"name": "A"}], "album": {"release_date": "1967"}}`)
	}))

	details, err := c.Track(context.Background(), "x")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if details.Year != 1967 {
		t.Errorf("Year = %d, want 1967", details.Year)
	}
}

func TestPlaylistTrackIDsPagination(t *testing.T) {
	var base string
	mux := http.NewServeMux()
	mux.HandleFunc("/playlists/pl/tracks", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "100" {
			fmt.Fprint(w, `{"items": [{"track": {"id": "t3"}}], "next": null}`)
			return
		}
		// One local file (null track) mixed in, plus a next page.
		fmt.Fprintf(w, `{
			"items": [{"track": {"id": "t1"}}, {"track": null}, {"track": {"id": "t2"}}],
			"next": "%s/playlists/pl/tracks?offset=100"
		}`, base)
	})
	c := testClient(t, mux)
	base = c.apiURL

	ids, err := c.PlaylistTrackIDs(context.Background(), "pl")
	if err != nil {
		t.Fatalf("PlaylistTrackIDs: %v", err)
	}
	want := []string{"t1", "t2", "t3"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestDoAPIErrorBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"status": 404, "message": "non existing id"}}`)
	}))

	_, err := c.Track(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error")
	}
	if want := "non existing id"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not mention %q", err, want)
	}
}

func TestAppAccessTokenCached(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"access_token": "fresh", "expires_in": 3600}`)
	})
	mux.HandleFunc("/playlists/pl", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name": "My Mix"}`)
	})
	c := testClient(t, mux)
	c.appToken = "" // force the credentials flow

	for i := 0; i < 3; i++ {
		name, err := c.PlaylistName(context.Background(), "pl")
		if err != nil {
			t.Fatalf("PlaylistName: %v", err)
		}
		if name != "My Mix" {
			t.Errorf("name = %q", name)
		}
	}
	if calls != 1 {
		t.Errorf("token endpoint hit %d times, want 1", calls)
	}
}
