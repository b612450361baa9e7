// Package transcribe submits remote speech-to-text jobs and polls them to
// completion.
package transcribe

import (
	"context"
	"errors"
)

var (
	// ErrJobFailed marks a job the remote service reported as failed.
	ErrJobFailed = errors.New("transcription job failed")

	// ErrPollTimeout marks a job that did not reach a terminal state within
	// the polling window.
	ErrPollTimeout = errors.New("transcription polling timed out")
)

// Client is implemented by speech-to-text providers.
type Client interface {
	// Transcribe submits a job for the audio at url and blocks until the
	// job completes, fails, times out, or ctx is cancelled. On success it
	// returns the full transcript text.
	Transcribe(ctx context.Context, url string) (string, error)
}
