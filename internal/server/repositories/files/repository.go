package files

import (
	"context"

	"github.com/dmoliveira/docbox/internal/server/models"
)

// Repository is the persistence contract for file records. Every read,
// update and delete is scoped by the owning user so tenant isolation holds
// at the data-access boundary.
type Repository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, userID, id string) (*models.File, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.File, error)
	FindByIDs(ctx context.Context, userID string, ids []string) ([]*models.File, error)
	ListByContainerIDs(ctx context.Context, containerIDs []string) ([]*models.File, error)
	Update(ctx context.Context, file *models.File) error
	DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error)
	DeleteByContainerIDs(ctx context.Context, containerIDs []string) error
}
