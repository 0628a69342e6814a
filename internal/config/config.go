package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Env  string
	Addr string

	// DBDriver is "sqlite3" or "postgres"; DBDSN is the file path or the
	// connection string respectively.
	DBDriver string
	DBDSN    string

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string

	// SessionSecret signs the session cookie.
	SessionSecret string

	// CatalogTimeout bounds one catalog operation (which may span many
	// Spotify requests for a large playlist).
	CatalogTimeout time.Duration

	AllowedOrigins []string
}

// Load reads .env (if present) and the environment. Spotify credentials and
// the session secret are required; everything else has a default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                 getenv("APP_ENV", "dev"),
		Addr:                getenv("LISTEN_ADDR", ":8080"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyRedirectURI:  getenv("SPOTIFY_REDIRECT_URI", "http://localhost:8080/callback"),
		SessionSecret:       os.Getenv("SESSION_SECRET"),
		CatalogTimeout:      30 * time.Second,
	}

	switch getenv("DB_TYPE", "sqlite") {
	case "postgres":
		cfg.DBDriver = "postgres"
		cfg.DBDSN = os.Getenv("DATABASE_URL")
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set when DB_TYPE=postgres")
		}
	default:
		cfg.DBDriver = "sqlite3"
		cfg.DBDSN = getenv("SQLITE_PATH", "data/songtrainer.db")
	}

	if timeout := os.Getenv("CATALOG_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid CATALOG_TIMEOUT: %v", err)
		}
		cfg.CatalogTimeout = d
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	} else {
		cfg.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
		return nil, fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET must be set")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
