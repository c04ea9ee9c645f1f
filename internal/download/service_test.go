package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ytget/ytdlp/errs"
	"github.com/ytget/ytdlp/v2"
	"github.com/ytget/ytdlp/v2/downloader"

	"github.com/ytget/yt-download-server/internal/fetch"
	"github.com/ytget/yt-download-server/internal/model"
)

type fakeTranscoder struct {
	calls int
	fail  bool
}

func (f *fakeTranscoder) ExtractAudio(ctx context.Context, inputPath string) (string, error) {
	f.calls++
	if f.fail {
		return "", errors.New("ffmpeg exploded")
	}
	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".mp3"
	if err := os.WriteFile(outputPath, []byte("mp3data"), 0644); err != nil {
		return "", err
	}
	return outputPath, nil
}

// newTestService wires a service with stubbed resolution and media fetch.
func newTestService(t *testing.T, resolveErrs []error, title string) (*Service, *fakeTranscoder, *int) {
	t.Helper()

	dir := t.TempDir()
	transcoder := &fakeTranscoder{}
	service := NewService(dir, 2, nil, transcoder)
	service.SetRetryPolicy(2, time.Millisecond)

	resolveCalls := 0
	service.resolveMedia = func(ctx context.Context, videoURL, selector, ext string) (string, *ytdlp.VideoInfo, error) {
		resolveCalls++
		if len(resolveErrs) > 0 {
			err := resolveErrs[0]
			resolveErrs = resolveErrs[1:]
			if err != nil {
				return "", nil, err
			}
		}
		return "https://cdn.example.com/media", &ytdlp.VideoInfo{ID: "abc", Title: title}, nil
	}
	service.fetchMedia = func(ctx context.Context, mediaURL, outputPath string, progress func(downloader.Progress)) error {
		progress(downloader.Progress{TotalSize: 100, DownloadedSize: 100, Percent: 100})
		return os.WriteFile(outputPath, []byte("mediadata"), 0644)
	}

	return service, transcoder, &resolveCalls
}

func TestFetch_VideoSuccess(t *testing.T) {
	service, transcoder, _ := newTestService(t, nil, "Test Clip")

	task, err := service.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc", "720p")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.Status != model.TaskStatusCompleted {
		t.Errorf("Expected status Completed, got %s", task.Status)
	}
	if !strings.HasSuffix(task.OutputPath, "Test Clip.mp4") {
		t.Errorf("Unexpected output path: %s", task.OutputPath)
	}
	if task.FileSize == 0 {
		t.Error("Expected non-zero file size")
	}
	if task.Percent != 100 {
		t.Errorf("Expected percent 100, got %d", task.Percent)
	}
	if transcoder.calls != 0 {
		t.Errorf("Expected no transcoder calls for video, got %d", transcoder.calls)
	}

	if _, err := os.Stat(task.OutputPath); err != nil {
		t.Errorf("Expected output file on disk: %v", err)
	}
}

func TestFetch_AudioSuccess(t *testing.T) {
	service, transcoder, _ := newTestService(t, nil, "Test Song")

	task, err := service.Fetch(context.Background(), "https://youtu.be/abc", "mp3")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if transcoder.calls != 1 {
		t.Errorf("Expected 1 transcoder call, got %d", transcoder.calls)
	}
	if !strings.HasSuffix(task.OutputPath, "Test Song.mp3") {
		t.Errorf("Unexpected output path: %s", task.OutputPath)
	}

	// The intermediate container must be gone
	source := strings.TrimSuffix(task.OutputPath, ".mp3") + ".mp4"
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Errorf("Expected source container to be removed: %s", source)
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	service, _, _ := newTestService(t, nil, "x")

	_, err := service.Fetch(context.Background(), "https://vimeo.com/123", "720p")
	if !errors.Is(err, fetch.ErrInvalidURL) {
		t.Errorf("Expected ErrInvalidURL, got %v", err)
	}
}

func TestFetch_UnsupportedQuality(t *testing.T) {
	service, _, _ := newTestService(t, nil, "x")

	_, err := service.Fetch(context.Background(), "https://youtu.be/abc", "shiny")
	if !errors.Is(err, ErrUnsupportedQuality) {
		t.Errorf("Expected ErrUnsupportedQuality, got %v", err)
	}
}

func TestFetch_FatalResolveErrorNoRetry(t *testing.T) {
	service, _, resolveCalls := newTestService(t, []error{errs.ErrPrivate, errs.ErrPrivate, errs.ErrPrivate}, "x")

	_, err := service.Fetch(context.Background(), "https://youtu.be/abc", "720p")
	if !errors.Is(err, errs.ErrPrivate) {
		t.Fatalf("Expected ErrPrivate, got %v", err)
	}
	if *resolveCalls != 1 {
		t.Errorf("Expected 1 resolve attempt for fatal error, got %d", *resolveCalls)
	}

	tasks := service.GetAllTasks()
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Status != model.TaskStatusError {
		t.Errorf("Expected status Error, got %s", tasks[0].Status)
	}
}

func TestFetch_RetryableResolveErrorRecovers(t *testing.T) {
	service, _, resolveCalls := newTestService(t, []error{fmt.Errorf("connection reset"), nil}, "Recovered")

	task, err := service.Fetch(context.Background(), "https://youtu.be/abc", "480p")
	if err != nil {
		t.Fatalf("Expected recovery after retry, got %v", err)
	}
	if *resolveCalls != 2 {
		t.Errorf("Expected 2 resolve attempts, got %d", *resolveCalls)
	}
	if task.Title != "Recovered" {
		t.Errorf("Expected title 'Recovered', got '%s'", task.Title)
	}
}

func TestFetch_FailedDownloadLeavesNoPartialFile(t *testing.T) {
	service, _, _ := newTestService(t, nil, "Doomed Clip")
	service.fetchMedia = func(ctx context.Context, mediaURL, outputPath string, progress func(downloader.Progress)) error {
		if err := os.WriteFile(outputPath+TempSuffix, []byte("partial"), 0644); err != nil {
			return err
		}
		return errors.New("connection reset")
	}

	_, err := service.Fetch(context.Background(), "https://youtu.be/abc", "720p")
	if err == nil {
		t.Fatal("Expected download error, got nil")
	}

	entries, err := os.ReadDir(service.downloadDir)
	if err != nil {
		t.Fatalf("Failed to read download dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), TempSuffix) {
			t.Errorf("Expected partial file to be removed, found %s", entry.Name())
		}
	}
}

func TestFetch_TranscodeFailure(t *testing.T) {
	service, transcoder, _ := newTestService(t, nil, "Broken Song")
	transcoder.fail = true

	_, err := service.Fetch(context.Background(), "https://youtu.be/abc", "mp3")
	if err == nil {
		t.Fatal("Expected transcode error, got nil")
	}
	if !strings.Contains(err.Error(), "audio transcode") {
		t.Errorf("Expected transcode error, got: %v", err)
	}
}

func TestCounts(t *testing.T) {
	service, _, _ := newTestService(t, nil, "Counted")

	if _, err := service.Fetch(context.Background(), "https://youtu.be/abc", "720p"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := service.Fetch(context.Background(), "https://vimeo.com/1", "720p"); err == nil {
		t.Fatal("Expected invalid URL error")
	}

	active, completed, failed := service.Counts()
	if active != 0 {
		t.Errorf("Expected 0 active, got %d", active)
	}
	if completed != 1 {
		t.Errorf("Expected 1 completed, got %d", completed)
	}
	// Invalid URLs are rejected before a task is registered
	if failed != 0 {
		t.Errorf("Expected 0 failed, got %d", failed)
	}
}

func TestGetTask(t *testing.T) {
	service, _, _ := newTestService(t, nil, "Lookup")

	task, err := service.Fetch(context.Background(), "https://youtu.be/abc", "360p")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	retrieved, exists := service.GetTask(task.ID)
	if !exists {
		t.Fatal("Expected task to exist")
	}
	if retrieved.ID != task.ID {
		t.Errorf("Expected task ID '%s', got '%s'", task.ID, retrieved.ID)
	}

	if _, exists := service.GetTask("non-existing-id"); exists {
		t.Error("Expected task to not exist")
	}
}

func TestGenerateTaskID(t *testing.T) {
	id1 := generateTaskID()
	id2 := generateTaskID()

	if !strings.HasPrefix(id1, TaskIDPrefix) {
		t.Errorf("Expected prefix %s, got %s", TaskIDPrefix, id1)
	}
	if id1 == id2 {
		t.Error("Expected unique task IDs")
	}
}
