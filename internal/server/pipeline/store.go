package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dverbin/audiochat/internal/dbx"
	"github.com/dverbin/audiochat/internal/server/models"
	"github.com/dverbin/audiochat/internal/server/repositories/repomanager"
)

// PostgresStore implements Store over the repository layer.
type PostgresStore struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

// NewPostgresStore constructs a store bound to db.
func NewPostgresStore(db *sql.DB, repos repomanager.RepositoryManager) *PostgresStore {
	return &PostgresStore{db: db, repos: repos}
}

func (s *PostgresStore) FindFileByKey(ctx context.Context, key string) (*models.File, error) {
	return s.repos.Files(s.db).GetByKey(ctx, key)
}

func (s *PostgresStore) CreateFile(ctx context.Context, file *models.File) error {
	return s.repos.Files(s.db).Create(ctx, file)
}

func (s *PostgresStore) MarkFileFailed(ctx context.Context, fileID string) error {
	return s.repos.Files(s.db).UpdateStatus(ctx, fileID, models.UploadStatusFailed)
}

// CommitTranscript stores the transcript row and the SUCCESS status in one
// transaction, so a crash between the two cannot leave a successful file
// without its transcript.
func (s *PostgresStore) CommitTranscript(ctx context.Context, transcript *models.Transcript) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Transcripts(tx).Create(ctx, transcript); err != nil {
			return fmt.Errorf("error inserting transcript: %w", err)
		}
		if err := s.repos.Files(tx).UpdateStatus(ctx, transcript.FileID, models.UploadStatusSuccess); err != nil {
			return fmt.Errorf("error updating file status: %w", err)
		}
		return nil
	})
}
