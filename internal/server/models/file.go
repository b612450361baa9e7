// Package models defines server-side data models persisted in the database.
package models

import "time"

// Upload status values for File.UploadStatus. PENDING is never stored by the
// completion pipeline itself; it is the status reported for files the server
// has not observed yet. SUCCESS and FAILED are terminal.
const (
	UploadStatusPending    = "PENDING"
	UploadStatusProcessing = "PROCESSING"
	UploadStatusSuccess    = "SUCCESS"
	UploadStatusFailed     = "FAILED"
)

// File describes server-side metadata for an uploaded audio object. The audio
// bytes themselves live in object storage under StorageKey.
type File struct {
	// ID is the server-assigned row id.
	ID string
	// UserID is the owner of the file.
	UserID string
	// Name is the display name shown in file listings.
	Name string

	// StorageKey is the object-storage key of the uploaded audio. It is
	// unique and doubles as the idempotency token for upload-complete
	// events.
	StorageKey string
	// URL is the fetchable location of the audio at upload-complete time.
	URL string

	// UploadStatus tracks pipeline state (PROCESSING, SUCCESS, FAILED).
	UploadStatus string

	CreatedAt time.Time
	UpdatedAt time.Time
}
