package model

import (
	"fmt"
	"strings"
	"time"
)

// DownloadTask represents a single download request being served
type DownloadTask struct {
	ID         string
	URL        string
	Quality    string // requested quality: "720p", "480p", ..., or "mp3"
	Status     TaskStatus
	Progress   float64   // 0.0 to 1.0
	Percent    int       // 0 to 100
	LastError  string    // last error message if any
	OutputPath string    // path to downloaded file
	StartedAt  time.Time // when download started
	FinishedAt time.Time // when download finished
	Title      string    // video title
	FileSize   int64     // file size in bytes
}

// IsAudio reports whether the task requests the MP3 audio path.
func (dt *DownloadTask) IsAudio() bool {
	return strings.EqualFold(dt.Quality, "mp3")
}

// HeightLimit returns the requested height ceiling parsed from a "NNNp"
// quality string, or 0 when the quality carries no height.
func (dt *DownloadTask) HeightLimit() int {
	q := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(dt.Quality)), "p")
	var h int
	if _, err := fmt.Sscanf(q, "%d", &h); err != nil {
		return 0
	}
	if h < 0 {
		return 0
	}
	return h
}

// GetDisplayTitle returns title, filename, or URL in order of preference
func (dt *DownloadTask) GetDisplayTitle() string {
	// First priority: video title (non-URL)
	if dt.Title != "" && !strings.HasPrefix(dt.Title, "http") {
		return dt.Title
	}

	// Second priority: filename from OutputPath
	if dt.OutputPath != "" {
		parts := strings.FieldsFunc(dt.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return dt.URL
}
