package fetch

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ytget/ytdlp/types"
	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/yt-download-server/internal/model"
	"github.com/ytget/yt-download-server/internal/platform"
)

// Timeout and retry constants
const (
	DefaultResolveTimeout = 60 * time.Second
	DefaultMaxRetries     = 2
	DefaultRetryDelay     = 2 * time.Second
)

// Minimum height offered to clients; tiny preview formats are noise.
const MinResolutionHeight = 144

// AudioOption is always appended to the resolution list.
const AudioOption = "mp3"

// Defaults for fields the extractor may leave empty
const (
	DefaultTitle    = "Unknown Title"
	DefaultUploader = "Unknown"
)

var qualityLabelRe = regexp.MustCompile(`([0-9]{3,4})p`)

// Resolver is the slice of the extraction library used for metadata lookups.
type Resolver interface {
	ResolveURL(ctx context.Context, videoURL string) (string, *ytdlp.VideoInfo, error)
}

// Service retrieves video metadata through the extraction library.
// Concurrent requests for the same URL are collapsed into a single upstream
// call, and transient failures are retried with a bounded backoff.
type Service struct {
	timeout     time.Duration
	maxRetries  int
	retryDelay  time.Duration
	newResolver func() Resolver
	group       singleflight.Group
}

// NewService creates a new metadata service. The HTTP client is handed to the
// extraction library so cookie-carrying clients are honored; pass nil for the
// library default.
func NewService(httpClient *http.Client) *Service {
	return &Service{
		timeout:    DefaultResolveTimeout,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		newResolver: func() Resolver {
			d := ytdlp.New()
			if httpClient != nil {
				d.WithHTTPClient(httpClient)
			}
			return d
		},
	}
}

// SetTimeout sets the timeout for a single metadata lookup.
func (s *Service) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// SetRetryPolicy overrides the retry count and base delay.
func (s *Service) SetRetryPolicy(maxRetries int, delay time.Duration) {
	s.maxRetries = maxRetries
	s.retryDelay = delay
}

// VideoInfo validates the URL and returns the metadata payload for it.
func (s *Service) VideoInfo(ctx context.Context, videoURL string) (*model.VideoDetails, error) {
	if !platform.IsAllowedVideoURL(videoURL) {
		return nil, ErrInvalidURL
	}

	// The flight is shared between concurrent callers, so it must not die
	// with whichever request happened to start it. fetchInfo bounds the
	// detached call with its own timeout.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(videoURL, func() (interface{}, error) {
		return s.fetchInfo(flightCtx, videoURL)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Printf("info fetch for %s shared between concurrent requests", videoURL)
	}

	return v.(*model.VideoDetails), nil
}

// fetchInfo resolves metadata with retries and maps it onto the payload.
func (s *Service) fetchInfo(ctx context.Context, videoURL string) (*model.VideoDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var info *ytdlp.VideoInfo
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			log.Printf("retrying info fetch for %s, attempt %d", videoURL, attempt+1)
		}

		_, resolved, err := s.newResolver().ResolveURL(ctx, videoURL)
		if err == nil {
			info = resolved
			break
		}

		lastErr = err
		log.Printf("info fetch attempt %d failed for %s: %v", attempt+1, videoURL, err)

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}

	if info == nil {
		return nil, lastErr
	}

	details := &model.VideoDetails{
		ID:          info.ID,
		Title:       info.Title,
		Thumbnail:   platform.ThumbnailURL(info.ID),
		Duration:    info.Duration,
		Resolutions: ResolutionOptions(info.Formats),
		Uploader:    info.Author,
	}
	if details.Title == "" {
		details.Title = DefaultTitle
	}
	if details.Uploader == "" {
		details.Uploader = DefaultUploader
	}

	return details, nil
}

// ResolutionOptions derives the selectable quality labels from the available
// formats: distinct heights of at least MinResolutionHeight in descending
// order, with the audio option appended last.
func ResolutionOptions(formats []types.Format) []string {
	seen := make(map[int]bool)
	heights := make([]int, 0, len(formats))

	for _, f := range formats {
		h := parseHeight(f.Quality)
		if h < MinResolutionHeight || seen[h] {
			continue
		}
		seen[h] = true
		heights = append(heights, h)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(heights)))

	options := make([]string, 0, len(heights)+1)
	for _, h := range heights {
		options = append(options, strconv.Itoa(h)+"p")
	}
	return append(options, AudioOption)
}

// parseHeight extracts the numeric height from a quality label like "720p60".
func parseHeight(label string) int {
	m := qualityLabelRe.FindStringSubmatch(label)
	if len(m) >= 2 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	return 0
}
