package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Env            string
	AllowedOrigins []string
	Auth           *AuthMiddleware
	AuthHandler    *AuthHandler
	Training       *TrainingHandler
	Log            *zap.SugaredLogger
}

// NewRouter builds the HTTP surface: public auth endpoints plus the
// session-protected /api group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(cfg.Log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthcheck", func(c *gin.Context) {
		respondOK(c, gin.H{"status": "ok"})
	})
	r.GET("/login", cfg.AuthHandler.Login)
	r.GET("/callback", cfg.AuthHandler.Callback)
	r.GET("/logout", cfg.AuthHandler.Logout)

	api := r.Group("/api", cfg.Auth.RequireAuth())
	{
		api.POST("/set_playlist", cfg.Training.SetPlaylist)
		api.POST("/check_guess", cfg.Training.CheckGuess)
		api.POST("/skip", cfg.Training.Skip)
		api.POST("/play_pause", cfg.Training.PlayPause)
		api.POST("/stats", cfg.Training.Stats)
		api.GET("/stats/export", cfg.Training.ExportStats)
	}

	return r
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthcheck" {
			return
		}
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// NewHTTPServer wraps the router in an http.Server with sane timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
