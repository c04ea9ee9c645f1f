package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names
const (
	EnvPort           = "PORT"
	EnvDownloadDir    = "DOWNLOAD_DIR"
	EnvCookiesB64     = "YOUTUBE_COOKIES_B64"
	EnvCookieFile     = "COOKIE_FILE"
	EnvMaxParallel    = "MAX_PARALLEL_DOWNLOADS"
	EnvFileTTL        = "FILE_TTL_MINUTES"
	EnvRequestsPerSec = "REQUESTS_PER_SECOND"
	EnvRequestBurst   = "REQUEST_BURST"
)

// Default values
const (
	DefaultPort           = 10000
	DefaultDownloadDir    = "/tmp/downloads"
	DefaultCookieFile     = "/tmp/youtube.com_cookies.txt"
	DefaultMaxParallel    = 2
	DefaultFileTTL        = 60 * time.Minute
	DefaultRequestsPerSec = 5
	DefaultRequestBurst   = 10
)

// Parallelism bounds
const (
	MinParallel = 1
	MaxParallel = 10
)

// Config holds the resolved server configuration. It is read once at startup
// from the process environment and never mutated afterwards.
type Config struct {
	Port           int
	DownloadDir    string
	CookieFile     string
	MaxParallel    int
	FileTTL        time.Duration
	RequestsPerSec int
	RequestBurst   int
}

// FromEnv builds a Config from environment variables, applying defaults and
// clamping out-of-range values.
func FromEnv() *Config {
	cfg := &Config{
		Port:           envInt(EnvPort, DefaultPort),
		DownloadDir:    envString(EnvDownloadDir, DefaultDownloadDir),
		CookieFile:     envString(EnvCookieFile, DefaultCookieFile),
		MaxParallel:    envInt(EnvMaxParallel, DefaultMaxParallel),
		FileTTL:        time.Duration(envInt(EnvFileTTL, int(DefaultFileTTL/time.Minute))) * time.Minute,
		RequestsPerSec: envInt(EnvRequestsPerSec, DefaultRequestsPerSec),
		RequestBurst:   envInt(EnvRequestBurst, DefaultRequestBurst),
	}

	if cfg.MaxParallel < MinParallel {
		cfg.MaxParallel = MinParallel
	}
	if cfg.MaxParallel > MaxParallel {
		cfg.MaxParallel = MaxParallel
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = DefaultPort
	}
	if cfg.FileTTL <= 0 {
		cfg.FileTTL = DefaultFileTTL
	}
	if cfg.RequestsPerSec < 1 {
		cfg.RequestsPerSec = DefaultRequestsPerSec
	}
	if cfg.RequestBurst < cfg.RequestsPerSec {
		cfg.RequestBurst = cfg.RequestsPerSec
	}

	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
