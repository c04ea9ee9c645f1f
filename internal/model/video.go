package model

// VideoDetails is the metadata payload returned for a video URL before any
// download happens. Resolutions carries the selectable quality labels in
// descending order ("1080p", "720p", ...) with "mp3" always appended last.
type VideoDetails struct {
	ID          string   `json:"-"`
	Title       string   `json:"title"`
	Thumbnail   string   `json:"thumbnail"`
	Duration    int      `json:"duration"`
	Resolutions []string `json:"resolutions"`
	Uploader    string   `json:"uploader"`
}
