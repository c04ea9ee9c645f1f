package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ytget/ytdlp/v2"
	"github.com/ytget/ytdlp/v2/downloader"

	"github.com/ytget/yt-download-server/internal/fetch"
	"github.com/ytget/yt-download-server/internal/model"
	"github.com/ytget/yt-download-server/internal/platform"
)

// Retry and format constants
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 2 * time.Second

	// Output container for the video path
	VideoContainerExt = "mp4"

	// Selector for the audio path: best available media, audio extracted after
	AudioSelector = "best"

	// The media downloader writes to <output>.tmp and renames on success
	TempSuffix = ".tmp"

	TaskIDPrefix = "task-"
)

// ErrUnsupportedQuality is returned for quality values that are neither a
// height label nor the audio option.
var ErrUnsupportedQuality = errors.New("unsupported quality")

// resolveMediaFunc resolves a video URL into a direct media URL using the
// given format selector and desired extension.
type resolveMediaFunc func(ctx context.Context, videoURL, selector, ext string) (string, *ytdlp.VideoInfo, error)

// fetchMediaFunc downloads a direct media URL to outputPath.
type fetchMediaFunc func(ctx context.Context, mediaURL, outputPath string, progress func(downloader.Progress)) error

// Service handles download operations: one task per request, bounded
// parallelism, retry with backoff, and the audio transcode path.
type Service struct {
	downloadDir string
	slots       chan struct{}
	transcoder  Transcoder
	maxRetries  int
	retryDelay  time.Duration

	resolveMedia resolveMediaFunc
	fetchMedia   fetchMediaFunc

	tasks      map[string]*model.DownloadTask
	tasksMutex sync.RWMutex
}

// NewService creates a new download service. The HTTP client is shared with
// the extraction library and the media downloader; pass nil for defaults.
func NewService(downloadDir string, maxParallel int, httpClient *http.Client, transcoder Transcoder) *Service {
	if maxParallel < 1 {
		maxParallel = 1
	}

	s := &Service{
		downloadDir: downloadDir,
		slots:       make(chan struct{}, maxParallel),
		transcoder:  transcoder,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		tasks:       make(map[string]*model.DownloadTask),
	}

	s.resolveMedia = func(ctx context.Context, videoURL, selector, ext string) (string, *ytdlp.VideoInfo, error) {
		d := ytdlp.New().WithFormat(selector, ext)
		if httpClient != nil {
			d.WithHTTPClient(httpClient)
		}
		return d.ResolveURL(ctx, videoURL)
	}
	s.fetchMedia = func(ctx context.Context, mediaURL, outputPath string, progress func(downloader.Progress)) error {
		return downloader.New(httpClient, progress, 0).Download(ctx, mediaURL, outputPath)
	}

	return s
}

// SetRetryPolicy overrides the retry count and base delay.
func (s *Service) SetRetryPolicy(maxRetries int, delay time.Duration) {
	s.maxRetries = maxRetries
	s.retryDelay = delay
}

// Fetch downloads the media for videoURL at the requested quality and returns
// the finished task with its output path. The call blocks until the file is
// on disk, an error occurs, or the context is canceled.
func (s *Service) Fetch(ctx context.Context, videoURL, quality string) (*model.DownloadTask, error) {
	if !platform.IsAllowedVideoURL(videoURL) {
		return nil, fetch.ErrInvalidURL
	}

	task := &model.DownloadTask{
		ID:        generateTaskID(),
		URL:       videoURL,
		Quality:   quality,
		Status:    model.TaskStatusPending,
		StartedAt: time.Now(),
	}

	if !task.IsAudio() && task.HeightLimit() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedQuality, quality)
	}

	s.tasksMutex.Lock()
	s.tasks[task.ID] = task
	s.tasksMutex.Unlock()

	// Bounded parallelism: wait for a free slot
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		s.fail(task, ctx.Err())
		return nil, ctx.Err()
	}
	defer func() { <-s.slots }()

	if err := s.run(ctx, task); err != nil {
		s.fail(task, err)
		return nil, err
	}

	return task, nil
}

// run performs resolution, download, and the optional transcode step.
func (s *Service) run(ctx context.Context, task *model.DownloadTask) error {
	s.setStatus(task, model.TaskStatusStarting)

	selector, ext := AudioSelector, ""
	if !task.IsAudio() {
		selector = fmt.Sprintf("height<=%d", task.HeightLimit())
		ext = VideoContainerExt
	}

	mediaURL, info, err := s.resolveWithRetry(ctx, task, selector, ext)
	if err != nil {
		return err
	}

	s.tasksMutex.Lock()
	task.Title = info.Title
	s.tasksMutex.Unlock()

	outputPath := filepath.Join(s.downloadDir, platform.ToSafeFilename(info.Title, VideoContainerExt))

	s.setStatus(task, model.TaskStatusDownloading)
	if err := s.downloadWithRetry(ctx, task, mediaURL, outputPath); err != nil {
		os.Remove(outputPath)
		os.Remove(outputPath + TempSuffix)
		return err
	}

	if task.IsAudio() {
		s.setStatus(task, model.TaskStatusTranscoding)
		audioPath, err := s.transcoder.ExtractAudio(ctx, outputPath)
		// The source container is no longer needed either way
		os.Remove(outputPath)
		if err != nil {
			return fmt.Errorf("audio transcode: %w", err)
		}
		outputPath = audioPath
	}

	s.tasksMutex.Lock()
	task.Status = model.TaskStatusCompleted
	task.Progress = 1.0
	task.Percent = 100
	task.OutputPath = outputPath
	if fi, statErr := os.Stat(outputPath); statErr == nil {
		task.FileSize = fi.Size()
	}
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()

	log.Printf("task %s completed: %s", task.ID, outputPath)
	return nil
}

// resolveWithRetry resolves the media URL with retry logic
func (s *Service) resolveWithRetry(ctx context.Context, task *model.DownloadTask, selector, ext string) (string, *ytdlp.VideoInfo, error) {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return "", nil, ctx.Err()
			}
			log.Printf("retrying resolve for task %s, attempt %d", task.ID, attempt+1)
		}

		mediaURL, info, err := s.resolveMedia(ctx, task.URL, selector, ext)
		if err == nil {
			return mediaURL, info, nil
		}

		lastErr = err
		log.Printf("resolve attempt %d failed for task %s: %v", attempt+1, task.ID, err)

		if !fetch.IsRetryable(err) || ctx.Err() != nil {
			return "", nil, err
		}
	}

	return "", nil, lastErr
}

// downloadWithRetry attempts the media download with retry logic
func (s *Service) downloadWithRetry(ctx context.Context, task *model.DownloadTask, mediaURL, outputPath string) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
			log.Printf("retrying download for task %s, attempt %d", task.ID, attempt+1)
		}

		err := s.fetchMedia(ctx, mediaURL, outputPath, func(p downloader.Progress) {
			s.updateTaskProgress(task, p)
		})
		if err == nil {
			return nil
		}

		lastErr = err
		log.Printf("download attempt %d failed for task %s: %v", attempt+1, task.ID, err)

		if !fetch.IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}

	return lastErr
}

// GetTask returns a task by ID
func (s *Service) GetTask(id string) (*model.DownloadTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[id]
	return task, exists
}

// GetAllTasks returns all tasks
func (s *Service) GetAllTasks() []*model.DownloadTask {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	tasks := make([]*model.DownloadTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	return tasks
}

// Counts returns the number of active, completed, and failed tasks.
func (s *Service) Counts() (active, completed, failed int) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	for _, task := range s.tasks {
		switch {
		case task.Status.IsActive():
			active++
		case task.Status == model.TaskStatusCompleted:
			completed++
		case task.Status == model.TaskStatusError:
			failed++
		}
	}
	return active, completed, failed
}

// updateTaskProgress updates task progress from downloader info
func (s *Service) updateTaskProgress(task *model.DownloadTask, p downloader.Progress) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	if p.TotalSize > 0 {
		task.Progress = float64(p.DownloadedSize) / float64(p.TotalSize)
		task.Percent = int(task.Progress * 100)
	}
}

// setStatus transitions the task status under lock
func (s *Service) setStatus(task *model.DownloadTask, status model.TaskStatus) {
	s.tasksMutex.Lock()
	task.Status = status
	s.tasksMutex.Unlock()
}

// fail records the error state for a task
func (s *Service) fail(task *model.DownloadTask, err error) {
	s.tasksMutex.Lock()
	task.Status = model.TaskStatusError
	task.LastError = err.Error()
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()
}

// generateTaskID generates a unique task ID using UUID v7 for better uniqueness and time ordering
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to timestamp if UUID generation fails
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
