// Package fetch wraps the extraction library for metadata lookups: URL
// validation, retry with backoff, request coalescing, and mapping the
// library's structured errors onto user-facing messages.
package fetch
