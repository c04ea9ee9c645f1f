// Package model defines domain data structures used across the app: download
// tasks, video metadata payloads, and status enums. Structures are designed
// for direct JSON serialization and explicit state transitions.
package model
