package containers

import (
	"context"

	"github.com/dmoliveira/docbox/internal/server/models"
)

// Repository is the persistence contract for container records.
//
// GetByID is deliberately unscoped: the hierarchy resolver walks parent links
// that may cross into records whose owner was already verified at the walk's
// starting point. All externally-driven reads go through GetByIDAndOwner.
type Repository interface {
	Create(ctx context.Context, c *models.Container) error
	GetByID(ctx context.Context, id string) (*models.Container, error)
	GetByIDAndOwner(ctx context.Context, userID, id string) (*models.Container, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.ContainerListing, error)
	ListChildren(ctx context.Context, parentID string) ([]*models.Container, error)
	Update(ctx context.Context, c *models.Container) error
	DeleteByIDs(ctx context.Context, ids []string) error
}
