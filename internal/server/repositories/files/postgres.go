package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dverbin/audiochat/internal/common"
	"github.com/dverbin/audiochat/internal/dbx"
	"github.com/dverbin/audiochat/internal/server/models"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a file record. storage_key carries a UNIQUE constraint; a
// conflicting insert affects zero rows and is reported as
// common.ErrorAlreadyExists, which is how the completion pipeline detects a
// concurrent duplicate delivery that slipped past the lookup.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, user_id, name, storage_key, url, upload_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (storage_key) DO NOTHING;
	`
	res, err := r.db.ExecContext(ctx, query,
		file.ID, file.UserID, file.Name, file.StorageKey, file.URL, file.UploadStatus)
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

// GetByKey returns the file with the given storage key, or
// common.ErrorNotFound.
func (r *PostgresRepository) GetByKey(ctx context.Context, storageKey string) (*models.File, error) {
	query := `
		SELECT id, user_id, name, storage_key, url, upload_status, created_at, updated_at
		FROM files
		WHERE storage_key = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, storageKey))
}

// GetByID returns the file with the given row id, or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `
		SELECT id, user_id, name, storage_key, url, upload_status, created_at, updated_at
		FROM files
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// ListByUser returns all files owned by userID, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	query := `
		SELECT id, user_id, name, storage_key, url, upload_status, created_at, updated_at
		FROM files
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var item models.File
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.StorageKey,
			&item.URL, &item.UploadStatus, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus sets upload_status for the file id. Exactly one row must be
// affected.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE files SET upload_status = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

// Delete removes a file row by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.File, error) {
	result := &models.File{}
	err := row.Scan(&result.ID, &result.UserID, &result.Name, &result.StorageKey,
		&result.URL, &result.UploadStatus, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
