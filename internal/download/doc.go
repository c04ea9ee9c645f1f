// Package download turns a validated video URL and quality selection into a
// file on disk: media URL resolution, chunked download with retries, and the
// MP3 transcode path for audio requests.
package download
