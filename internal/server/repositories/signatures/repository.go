package signatures

import (
	"context"

	"github.com/dmoliveira/docbox/internal/server/models"
)

// Repository reads signature records. Signatures are written by an external
// signing flow; this layer only joins them onto file detail reads.
type Repository interface {
	ListByFileID(ctx context.Context, fileID string) ([]*models.Signature, error)
}
