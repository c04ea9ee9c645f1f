package server

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/ytget/yt-download-server/internal/config"
	"github.com/ytget/yt-download-server/internal/fetch"
	"github.com/ytget/yt-download-server/internal/platform"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
}

// handleGetFormats returns the metadata payload for a form-posted URL.
// Extraction-level failures answer 200 with an error object, matching the
// contract the page's script expects; only a missing URL is a 400.
func (s *Server) handleGetFormats(c *gin.Context) {
	videoURL := strings.TrimSpace(c.PostForm("url"))
	if videoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No URL provided"})
		return
	}

	details, err := s.info.VideoInfo(c.Request.Context(), videoURL)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": fetch.UserMessage(err)})
		return
	}

	c.JSON(http.StatusOK, details)
}

// handleDownload fetches the media and streams it back as an attachment.
func (s *Server) handleDownload(c *gin.Context) {
	videoURL := strings.TrimSpace(c.PostForm("url"))
	quality := strings.TrimSpace(c.PostForm("quality"))

	if videoURL == "" || quality == "" {
		c.String(http.StatusBadRequest, "Missing URL or quality")
		return
	}

	task, err := s.files.Fetch(c.Request.Context(), videoURL, quality)
	if err != nil {
		c.String(http.StatusInternalServerError, "Download failed: %s", fetch.UserMessage(err))
		return
	}

	filename := filepath.Base(task.OutputPath)
	c.FileAttachment(task.OutputPath, filename)
}

func (s *Server) handleHealth(c *gin.Context) {
	active, completed, failed := s.files.Counts()

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"uptime":          time.Since(s.startedAt).Round(time.Second).String(),
		"active_tasks":    active,
		"completed_tasks": completed,
		"failed_tasks":    failed,
		"downloads_size":  humanize.Bytes(uint64(platform.DirSize(s.cfg.DownloadDir))),
		"cookies_loaded":  s.cookiesLoaded(),
	})
}

func (s *Server) cookiesLoaded() bool {
	return s.cfg.CookieFile != "" && config.HasCookieFile(s.cfg.CookieFile)
}
