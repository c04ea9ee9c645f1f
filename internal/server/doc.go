// Package server exposes the HTTP surface: the static page, metadata lookup,
// file download streaming, and the liveness endpoint, with recovery, logging,
// and rate-limiting middleware.
package server
