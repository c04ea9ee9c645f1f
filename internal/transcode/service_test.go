package transcode

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateOutputPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/path/to/video.mp4", "/path/to/video.mp3"},
		{"/path/to/video.webm", "/path/to/video.mp3"},
		{"audio.m4a", "audio.mp3"},
		{"/no/ext/file", "/no/ext/file.mp3"},
	}

	for _, test := range tests {
		result := generateOutputPath(test.input)
		if result != test.expected {
			t.Errorf("generateOutputPath(%s) = %s, expected %s", test.input, result, test.expected)
		}
	}
}

func TestBuildFFmpegArgs(t *testing.T) {
	service := NewService()
	args := service.BuildFFmpegArgs("/input.mp4", "/output.mp3")

	expectedArgs := []string{
		"-y",
		"-i", "/input.mp4",
		"-vn",
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-id3v2_version", ID3Version,
		"-nostats",
		"/output.mp3",
	}

	if len(args) != len(expectedArgs) {
		t.Fatalf("Expected %d args, got %d", len(expectedArgs), len(args))
	}

	for i, expected := range expectedArgs {
		if args[i] != expected {
			t.Errorf("Arg %d: expected %s, got %s", i, expected, args[i])
		}
	}
}

func TestExtractAudio_NonExistentFile(t *testing.T) {
	service := NewService()

	_, err := service.ExtractAudio(context.Background(), "/path/to/nonexistent/file.mp4")
	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}

	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected 'does not exist' error, got: %v", err)
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		input    string
		n        int
		expected string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"0123456789", 4, "6789"},
	}

	for _, test := range tests {
		result := tail(test.input, test.n)
		if result != test.expected {
			t.Errorf("tail(%q, %d) = %q, expected %q", test.input, test.n, result, test.expected)
		}
	}
}
