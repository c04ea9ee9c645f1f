// Package platform contains filesystem helpers and URL plumbing shared by the
// services: directory creation, safe filenames, stale-file sweeping, and
// video URL validation.
package platform
