package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/songtrainer/internal/config"
	"github.com/example/songtrainer/internal/database"
	"github.com/example/songtrainer/internal/logger"
	"github.com/example/songtrainer/internal/music"
	"github.com/example/songtrainer/internal/scheduler"
	"github.com/example/songtrainer/internal/server"
	"github.com/example/songtrainer/internal/spotify"
	"github.com/example/songtrainer/internal/training"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		zlog.Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	cards := database.NewCardRepository(db)
	tracks := database.NewTrackRepository(db)
	users := database.NewUserRepository(db)
	guesses := database.NewGuessLogRepository(db)

	spotifyClient, err := spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI)
	if err != nil {
		zlog.Fatalw("failed to create spotify client", "error", err)
	}

	library := music.NewLibrary(tracks, spotifyClient, cfg.CatalogTimeout, zlog)
	playback := music.NewPlayback(users, spotifyClient, zlog)

	pool := training.NewPoolManager(cards, library, zlog)
	policy := training.NewIntervalPolicy(zlog)
	trainer := training.NewService(cards, library, pool, policy, users, guesses, zlog)

	auth := server.NewAuthMiddleware(cfg.SessionSecret, zlog)
	router := server.NewRouter(server.RouterConfig{
		Env:            cfg.Env,
		AllowedOrigins: cfg.AllowedOrigins,
		Auth:           auth,
		AuthHandler:    server.NewAuthHandler(spotifyClient, users, auth, zlog),
		Training:       server.NewTrainingHandler(trainer, playback, cards, tracks, zlog),
		Log:            zlog,
	})

	jobs := scheduler.New(users, spotifyClient, zlog)
	jobs.Start()
	defer jobs.Stop()

	srv := server.NewHTTPServer(cfg.Addr, router)
	go func() {
		zlog.Infow("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatalw("server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	zlog.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Errorw("shutdown failed", "error", err)
	}
}
