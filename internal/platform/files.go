package platform

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Filename limits
const (
	MaxFilenameLength = 120
	DefaultName       = "video"
)

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]+`)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// ToSafeFilename builds a cross-platform safe filename from a title and an
// extension (without the dot). Unsafe path characters are replaced and the
// base name is truncated to MaxFilenameLength.
func ToSafeFilename(title, ext string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = DefaultName
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	// Truncate on a rune boundary so multi-byte titles stay valid UTF-8
	if utf8.RuneCountInString(name) > MaxFilenameLength {
		name = string([]rune(name)[:MaxFilenameLength])
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	return filepath.Clean(name + "." + ext)
}

// CleanupStaleFiles removes regular files in dir whose modification time is
// older than ttl. Partial download artifacts age out on the same clock: an
// active download keeps its temp file's modification time fresh, while
// orphans left behind by failed runs pass the cutoff and get reaped. The
// sweep is best-effort: unreadable entries are logged and left in place.
func CleanupStaleFiles(dir string, ttl time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("cleanup: failed to read %s: %v", dir, err)
		return 0
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Printf("cleanup: failed to stat %s: %v", entry.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("cleanup: failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}

	return removed
}

// DirSize returns the total size in bytes of regular files directly in dir.
func DirSize(dir string) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if info, err := entry.Info(); err == nil {
			total += info.Size()
		}
	}
	return total
}
