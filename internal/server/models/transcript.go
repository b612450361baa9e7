package models

import "time"

// Transcript holds the full transcription text for exactly one file. It is
// created once, after transcription succeeds, and is immutable afterwards.
type Transcript struct {
	ID        string
	FileID    string
	UserID    string
	Body      string
	CreatedAt time.Time
}
