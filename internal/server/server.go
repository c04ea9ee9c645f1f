package server

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ytget/yt-download-server/internal/config"
	"github.com/ytget/yt-download-server/internal/model"
)

//go:embed index.html
var indexPage []byte

// HTTP timeouts. Write stays unlimited: download responses stream large files.
const (
	ReadTimeout = 30 * time.Second
	IdleTimeout = 120 * time.Second
)

// InfoFetcher provides video metadata for a URL.
type InfoFetcher interface {
	VideoInfo(ctx context.Context, videoURL string) (*model.VideoDetails, error)
}

// FileFetcher downloads media for a URL and quality and reports task counts.
type FileFetcher interface {
	Fetch(ctx context.Context, videoURL, quality string) (*model.DownloadTask, error)
	Counts() (active, completed, failed int)
}

// Server is the HTTP front-end over the fetch and download services.
type Server struct {
	cfg       *config.Config
	info      InfoFetcher
	files     FileFetcher
	engine    *gin.Engine
	server    *http.Server
	limiter   *rate.Limiter
	startedAt time.Time
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg *config.Config, info InfoFetcher, files FileFetcher) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:       cfg,
		info:      info,
		files:     files,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestBurst),
		startedAt: time.Now(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.loggingMiddleware())

	engine.GET("/", s.handleIndex)
	engine.GET("/health", s.handleHealth)

	limited := engine.Group("/", s.rateLimitMiddleware())
	limited.POST("/get_formats", s.handleGetFormats)
	limited.POST("/download", s.handleDownload)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	s.engine = engine
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     engine,
		ReadTimeout: ReadTimeout,
		IdleTimeout: IdleTimeout,
	}

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	log.Printf("listening on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Middleware

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
