package download

import (
	"context"

	"github.com/ytget/yt-download-server/internal/model"
)

// Fetcher defines the interface for the download service.
type Fetcher interface {
	Fetch(ctx context.Context, videoURL, quality string) (*model.DownloadTask, error)
	GetTask(id string) (*model.DownloadTask, bool)
	GetAllTasks() []*model.DownloadTask
	Counts() (active, completed, failed int)
}

// Transcoder converts a downloaded media file into MP3 audio.
type Transcoder interface {
	ExtractAudio(ctx context.Context, inputPath string) (string, error)
}

var _ Fetcher = (*Service)(nil)
