package platform

import (
	"fmt"
	"net/url"
	"strings"
)

// Allowed video hosts. Subdomains of the first entry are accepted too
// (www.youtube.com, m.youtube.com, music.youtube.com).
var (
	AllowedHosts = []string{"youtube.com", "youtu.be"}
)

// URL templates
const (
	ThumbnailURLTemplate = "https://i.ytimg.com/vi/%s/hqdefault.jpg"
)

// IsAllowedVideoURL reports whether rawURL parses and its host belongs to the
// video-site allow-list. Scheme-less and non-HTTP URLs are rejected.
func IsAllowedVideoURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, allowed := range AllowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// ExtractVideoID pulls the 11-character video ID out of the supported URL
// shapes: watch?v=, youtu.be/, shorts/ and embed/ paths.
func ExtractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		id := strings.Trim(u.Path, "/")
		if id == "" {
			return "", fmt.Errorf("no video id in url: %s", rawURL)
		}
		return id, nil
	}

	if v := u.Query().Get("v"); v != "" {
		return v, nil
	}

	for _, prefix := range []string{"/shorts/", "/embed/"} {
		if strings.HasPrefix(u.Path, prefix) {
			id := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
			if id != "" {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("no video id in url: %s", rawURL)
}

// ThumbnailURL returns the canonical thumbnail location for a video ID.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf(ThumbnailURLTemplate, videoID)
}
