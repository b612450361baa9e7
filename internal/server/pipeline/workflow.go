// Package pipeline runs the upload completion workflow: when object storage
// reports a finished upload, the workflow records the file, probes its audio
// duration, checks it against the owner's plan quota, requests transcription
// and persists the transcript.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dverbin/audiochat/internal/common"
	"github.com/dverbin/audiochat/internal/logging"
	"github.com/dverbin/audiochat/internal/server/billing"
	"github.com/dverbin/audiochat/internal/server/models"
	"github.com/dverbin/audiochat/internal/server/observability"
	"github.com/dverbin/audiochat/internal/server/transcribe"
)

var (
	// ErrDurationUnknown marks a file whose audio duration could not be
	// determined. The quota check fails closed on it.
	ErrDurationUnknown = errors.New("audio duration unknown")

	// ErrQuotaExceeded marks a file longer than the owner's plan allows.
	ErrQuotaExceeded = errors.New("per-file quota exceeded")
)

// UploadEvent is an upload completion notification. Key is the object-storage
// key of the finished upload and doubles as the idempotency token.
type UploadEvent struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

// Store is the persistence surface the workflow needs.
type Store interface {
	// FindFileByKey returns the file recorded for a storage key, or
	// common.ErrorNotFound.
	FindFileByKey(ctx context.Context, key string) (*models.File, error)
	// CreateFile inserts a new file row, returning
	// common.ErrorAlreadyExists when the storage key was recorded
	// concurrently.
	CreateFile(ctx context.Context, file *models.File) error
	// MarkFileFailed moves the file to its terminal FAILED status.
	MarkFileFailed(ctx context.Context, fileID string) error
	// CommitTranscript atomically stores the transcript and moves the file
	// to SUCCESS.
	CommitTranscript(ctx context.Context, transcript *models.Transcript) error
}

// Prober reports the playable duration of the audio at url, in seconds.
type Prober interface {
	Duration(ctx context.Context, url string) (float64, error)
}

// PlanResolver returns the subscription tier for a user.
type PlanResolver interface {
	SubscriptionFor(ctx context.Context, userID string) (billing.Subscription, error)
}

// Publisher is notified after a transcript is committed. Implementations must
// tolerate being called concurrently.
type Publisher interface {
	TranscriptCompleted(ctx context.Context, file *models.File, transcript *models.Transcript) error
}

// Workflow orchestrates one pipeline run per upload event.
type Workflow struct {
	store       Store
	prober      Prober
	transcriber transcribe.Client
	plans       PlanResolver
	publisher   Publisher
	metrics     *observability.Metrics
	logger      logging.Logger

	wg sync.WaitGroup
}

// NewWorkflow wires a workflow. publisher may be nil when no egress is
// configured.
func NewWorkflow(store Store, prober Prober, transcriber transcribe.Client,
	plans PlanResolver, publisher Publisher,
	metrics *observability.Metrics, logger logging.Logger) *Workflow {
	return &Workflow{
		store:       store,
		prober:      prober,
		transcriber: transcriber,
		plans:       plans,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
	}
}

// Dispatch starts a pipeline run for the event in the background and returns
// immediately. The run is detached from the caller's cancellation so an
// aborted HTTP request does not abandon a file in PROCESSING.
func (w *Workflow) Dispatch(ctx context.Context, event UploadEvent) {
	runCtx := context.WithoutCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Run(runCtx, event); err != nil {
			w.logger.Error(runCtx, "pipeline run failed",
				"key", event.Key, "error", err)
		}
	}()
}

// Wait blocks until all dispatched runs have finished.
func (w *Workflow) Wait() {
	w.wg.Wait()
}

// Run executes the pipeline synchronously for one event. Redelivered events
// for an already-recorded storage key are a no-op regardless of the earlier
// outcome.
func (w *Workflow) Run(ctx context.Context, event UploadEvent) error {
	w.metrics.RecordUploadReceived()

	log := w.logger.With("key", event.Key, "user_id", event.UserID)

	if _, err := w.store.FindFileByKey(ctx, event.Key); err == nil {
		log.Info(ctx, "upload already recorded, skipping")
		w.metrics.RecordUploadDuplicate()
		return nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error looking up storage key: %w", err)
	}

	file := &models.File{
		ID:           uuid.NewString(),
		UserID:       event.UserID,
		Name:         event.Name,
		StorageKey:   event.Key,
		URL:          event.URL,
		UploadStatus: models.UploadStatusProcessing,
	}
	if err := w.store.CreateFile(ctx, file); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			// lost a race with a concurrent delivery of the same key
			log.Info(ctx, "upload recorded concurrently, skipping")
			w.metrics.RecordUploadDuplicate()
			return nil
		}
		return fmt.Errorf("error creating file record: %w", err)
	}

	w.metrics.RecordPipelineStart()
	start := time.Now()

	err := w.process(ctx, file)
	if err == nil {
		w.metrics.RecordPipelineEnd("success", time.Since(start).Seconds())
		log.Info(ctx, "pipeline run succeeded", "file_id", file.ID)
		return nil
	}

	reason := failureReason(err)
	w.metrics.RecordPipelineEnd(reason, time.Since(start).Seconds())
	log.Warn(ctx, "pipeline run failed, marking file", "file_id", file.ID,
		"reason", reason, "error", err)

	if markErr := w.store.MarkFileFailed(ctx, file.ID); markErr != nil {
		// the row stays PROCESSING; surface both errors
		return errors.Join(err, fmt.Errorf("error marking file failed: %w", markErr))
	}
	return err
}

func (w *Workflow) process(ctx context.Context, file *models.File) error {
	sub, err := w.plans.SubscriptionFor(ctx, file.UserID)
	if err != nil {
		return fmt.Errorf("error resolving plan: %w", err)
	}

	probeStart := time.Now()
	duration, err := w.prober.Duration(ctx, file.URL)
	w.metrics.RecordProbe(err, time.Since(probeStart).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDurationUnknown, err)
	}

	if sub.Plan.ExceedsQuota(duration) {
		return fmt.Errorf("%w: %.0fs exceeds %d min on plan %s",
			ErrQuotaExceeded, duration, sub.Plan.MinutesPerFile, sub.Plan.Name)
	}

	jobStart := time.Now()
	body, err := w.transcriber.Transcribe(ctx, file.URL)
	if err != nil {
		w.metrics.RecordTranscriptionError(transcriptionErrorKind(err))
		return fmt.Errorf("error transcribing file: %w", err)
	}
	w.metrics.RecordTranscription(time.Since(jobStart).Seconds())

	transcript := &models.Transcript{
		ID:     uuid.NewString(),
		FileID: file.ID,
		UserID: file.UserID,
		Body:   body,
	}
	if err := w.store.CommitTranscript(ctx, transcript); err != nil {
		return fmt.Errorf("error committing transcript: %w", err)
	}

	if w.publisher != nil {
		if err := w.publisher.TranscriptCompleted(ctx, file, transcript); err != nil {
			// the transcript is committed; egress failure is not a
			// pipeline failure
			w.logger.Warn(ctx, "error publishing transcript event",
				"file_id", file.ID, "error", err)
		}
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrDurationUnknown):
		return "duration_unknown"
	case errors.Is(err, transcribe.ErrPollTimeout):
		return "transcription_timeout"
	case errors.Is(err, transcribe.ErrJobFailed):
		return "transcription_failed"
	default:
		return "internal"
	}
}

func transcriptionErrorKind(err error) string {
	switch {
	case errors.Is(err, transcribe.ErrJobFailed):
		return "job_failed"
	case errors.Is(err, transcribe.ErrPollTimeout):
		return "timeout"
	default:
		return "transport"
	}
}
