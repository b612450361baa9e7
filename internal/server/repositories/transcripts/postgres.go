package transcripts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dverbin/audiochat/internal/common"
	"github.com/dverbin/audiochat/internal/dbx"
	"github.com/dverbin/audiochat/internal/server/models"
)

// PostgresRepository implements transcript storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the transcript for a file. file_id is UNIQUE; a second
// insert for the same file is reported as common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, transcript *models.Transcript) error {
	query := `
		INSERT INTO transcripts (id, file_id, user_id, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (file_id) DO NOTHING;
	`
	res, err := r.db.ExecContext(ctx, query,
		transcript.ID, transcript.FileID, transcript.UserID, transcript.Body)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorAlreadyExists
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// GetByFileID returns the transcript for the given file id, or
// common.ErrorNotFound.
func (r *PostgresRepository) GetByFileID(ctx context.Context, fileID string) (*models.Transcript, error) {
	query := `
		SELECT id, file_id, user_id, body, created_at
		FROM transcripts
		WHERE file_id = $1
	`
	result := &models.Transcript{}
	err := r.db.QueryRowContext(ctx, query, fileID).Scan(
		&result.ID, &result.FileID, &result.UserID, &result.Body, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// DeleteByFileID removes the transcript row for a file, if any.
func (r *PostgresRepository) DeleteByFileID(ctx context.Context, fileID string) error {
	query := `DELETE FROM transcripts WHERE file_id = $1`
	if _, err := r.db.ExecContext(ctx, query, fileID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
