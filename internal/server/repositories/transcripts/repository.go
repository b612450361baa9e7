package transcripts

import (
	"context"

	"github.com/dverbin/audiochat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, transcript *models.Transcript) error
	GetByFileID(ctx context.Context, fileID string) (*models.Transcript, error)
	DeleteByFileID(ctx context.Context, fileID string) error
}
