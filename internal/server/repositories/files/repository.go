package files

import (
	"context"

	"github.com/dverbin/audiochat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) error
	GetByKey(ctx context.Context, storageKey string) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	ListByUser(ctx context.Context, userID string) ([]*models.File, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	Delete(ctx context.Context, id string) error
}
