package server

import "testing"

func TestParsePlaylistID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare id", "37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"share link", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"share link with query", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"trailing slash", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M/", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"uri", "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"empty", "", "", true},
		{"only slashes", "///", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePlaylistID(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePlaylistID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parsePlaylistID(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
