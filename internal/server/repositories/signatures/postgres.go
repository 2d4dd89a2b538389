package signatures

import (
	"context"

	"github.com/dmoliveira/docbox/internal/common"
	"github.com/dmoliveira/docbox/internal/dbx"
	"github.com/dmoliveira/docbox/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByFileID(ctx context.Context, fileID string) ([]*models.Signature, error) {
	query := `
		SELECT id, file_id, user_id, signature_type, signed_at
		FROM signatures
		WHERE file_id=$1
		ORDER BY signed_at
	`
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, &common.RepositoryError{Op: "signatures.list", Err: err}
	}
	defer rows.Close()

	var result []*models.Signature
	for rows.Next() {
		s := &models.Signature{}
		if err := rows.Scan(&s.ID, &s.FileID, &s.UserID, &s.SignatureType, &s.SignedAt); err != nil {
			return nil, &common.RepositoryError{Op: "signatures.list", Err: err}
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &common.RepositoryError{Op: "signatures.list", Err: err}
	}
	return result, nil
}
