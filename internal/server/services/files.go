package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dverbin/audiochat/internal/common"
	"github.com/dverbin/audiochat/internal/server/models"
	"github.com/dverbin/audiochat/internal/server/repositories/repomanager"
)

// ObjectStore is the object-storage surface the file service needs.
type ObjectStore interface {
	PresignedPutURL(ctx context.Context) (string, string, error)
	PresignedGetURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore) *FileService {
	return &FileService{db: db, repomanager: m, store: store}
}

// PresignUpload returns a storage key and a presigned PUT URL for a new
// upload.
func (s *FileService) PresignUpload(ctx context.Context) (string, string, error) {
	return s.store.PresignedPutURL(ctx)
}

// List returns the user's files, newest first.
func (s *FileService) List(ctx context.Context, userID string) ([]*models.File, error) {
	return s.repomanager.Files(s.db).ListByUser(ctx, userID)
}

// Get returns one of the user's files by row id. Files owned by other users
// are reported as not found.
func (s *FileService) Get(ctx context.Context, userID string, fileID string) (*models.File, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return file, nil
}

// UploadStatus reports the pipeline status for a storage key. A key the
// server has no row for yet is PENDING: the client may ask before the
// completion event has been processed.
func (s *FileService) UploadStatus(ctx context.Context, userID string, storageKey string) (string, error) {
	file, err := s.repomanager.Files(s.db).GetByKey(ctx, storageKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.UploadStatusPending, nil
		}
		return "", err
	}
	if file.UserID != userID {
		return models.UploadStatusPending, nil
	}
	return file.UploadStatus, nil
}

// Transcript returns the transcript for one of the user's files.
func (s *FileService) Transcript(ctx context.Context, userID string, fileID string) (*models.Transcript, error) {
	if _, err := s.Get(ctx, userID, fileID); err != nil {
		return nil, err
	}
	return s.repomanager.Transcripts(s.db).GetByFileID(ctx, fileID)
}

// DownloadURL returns a presigned GET URL for one of the user's files.
func (s *FileService) DownloadURL(ctx context.Context, userID string, fileID string) (string, error) {
	file, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	return s.store.PresignedGetURL(ctx, file.StorageKey)
}

// Delete removes one of the user's files: transcript row first, then the
// file row, then the stored object. The object is deleted last so a failure
// midway never leaves a row pointing at a missing object.
func (s *FileService) Delete(ctx context.Context, userID string, fileID string) error {
	file, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return err
	}

	if err := s.repomanager.Transcripts(s.db).DeleteByFileID(ctx, fileID); err != nil {
		return fmt.Errorf("error deleting transcript: %v", err)
	}

	if err := s.repomanager.Files(s.db).Delete(ctx, fileID); err != nil {
		return fmt.Errorf("error deleting file: %v", err)
	}

	if err := s.store.DeleteObject(ctx, file.StorageKey); err != nil {
		return fmt.Errorf("error deleting object: %v", err)
	}

	return nil
}
