package transcode

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpeg constants for audio extraction
const (
	// Audio codec settings
	AudioCodec   = "libmp3lame"
	AudioBitrate = "192k"
	ID3Version   = "3"

	// Executable and I/O constants
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	OutputExtensionMP3  = ".mp3"

	// How much ffmpeg stderr is kept in error messages
	maxStderrBytes = 512
)

// Service converts downloaded media into MP3 audio using the external ffmpeg
// binary. Conversions run synchronously within the caller's context.
type Service struct{}

// NewService creates a new transcoding service
func NewService() *Service {
	return &Service{}
}

// Available reports whether the ffmpeg binary is on PATH.
func (s *Service) Available() bool {
	_, err := exec.LookPath(FFmpegCommand)
	return err == nil
}

// ExtractAudio transcodes the audio track of inputPath into an MP3 file next
// to it and returns the output path. The partial output file is removed when
// the conversion fails or is canceled.
func (s *Service) ExtractAudio(ctx context.Context, inputPath string) (string, error) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return "", fmt.Errorf("input file does not exist: %s", inputPath)
	}

	outputPath := generateOutputPath(inputPath)
	args := s.BuildFFmpegArgs(inputPath, outputPath)

	log.Printf("transcoding %s -> %s", inputPath, outputPath)

	cmd := exec.CommandContext(ctx, FFmpegCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String(), maxStderrBytes))
	}

	return outputPath, nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments for audio extraction
func (s *Service) BuildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",            // Overwrite output file
		"-i", inputPath, // Input file
		"-vn",              // Drop the video track
		"-c:a", AudioCodec, // Audio codec
		"-b:a", AudioBitrate, // Audio bitrate
		"-id3v2_version", ID3Version, // Tag compatibility
		"-nostats",
		outputPath, // Output file
	}
}

// MediaDuration returns the duration in seconds of a media file using ffprobe.
func (s *Service) MediaDuration(filePath string) (float64, error) {
	cmd := exec.Command(FFprobeCommand, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}

// generateOutputPath generates the output path for the extracted audio
func generateOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	baseName := strings.TrimSuffix(inputPath, ext)
	return baseName + OutputExtensionMP3
}

// tail returns at most n trailing bytes of s
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
