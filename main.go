package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ytget/yt-download-server/internal/config"
	"github.com/ytget/yt-download-server/internal/download"
	"github.com/ytget/yt-download-server/internal/fetch"
	"github.com/ytget/yt-download-server/internal/platform"
	"github.com/ytget/yt-download-server/internal/server"
	"github.com/ytget/yt-download-server/internal/transcode"
)

const (
	AppVersion = "1.0.0"

	ShutdownTimeout = 10 * time.Second
	JanitorInterval = 5 * time.Minute
)

func main() {
	log.Printf("yt-download-server v%s starting", AppVersion)

	cfg := config.FromEnv()

	if err := platform.CreateDirectoryIfNotExists(cfg.DownloadDir); err != nil {
		log.Fatalf("Failed to create download directory %s: %v", cfg.DownloadDir, err)
	}

	written, err := config.WriteCookieFile(cfg.CookieFile)
	if err != nil {
		log.Printf("Failed to write cookie file: %v", err)
	} else if written {
		log.Printf("Cookie file written to %s", cfg.CookieFile)
	}

	// No client timeout: media downloads can legitimately run for minutes.
	httpClient := &http.Client{}
	if config.HasCookieFile(cfg.CookieFile) {
		jar, err := config.NewCookieJar(cfg.CookieFile)
		if err != nil {
			log.Printf("Failed to load cookies: %v", err)
		} else {
			httpClient.Jar = jar
			log.Printf("Cookies loaded from %s", cfg.CookieFile)
		}
	}

	transcoder := transcode.NewService()
	if !transcoder.Available() {
		log.Printf("ffmpeg not found in PATH, audio conversion disabled")
	}

	infoService := fetch.NewService(httpClient)
	downloadService := download.NewService(cfg.DownloadDir, cfg.MaxParallel, httpClient, transcoder)

	srv := server.NewServer(cfg, infoService, downloadService)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go runJanitor(janitorCtx, cfg.DownloadDir, cfg.FileTTL)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}

	log.Printf("Server stopped")
}

// runJanitor periodically removes stale files from the download directory.
func runJanitor(ctx context.Context, dir string, ttl time.Duration) {
	ticker := time.NewTicker(JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := platform.CleanupStaleFiles(dir, ttl); removed > 0 {
				log.Printf("Janitor removed %d stale files", removed)
			}
		}
	}
}
