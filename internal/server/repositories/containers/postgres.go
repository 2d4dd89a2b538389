package containers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmoliveira/docbox/internal/common"
	"github.com/dmoliveira/docbox/internal/dbx"
	"github.com/dmoliveira/docbox/internal/server/models"
)

// PostgresRepository implements container persistence over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Container) error {
	query := `
		INSERT INTO containers (id, user_id, name, description, parent_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.UserID, c.Name, c.Description, nullable(c.ParentID))
	if err != nil {
		return &common.RepositoryError{Op: "containers.create", Err: err}
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Container, error) {
	query := `
		SELECT id, user_id, name, description, COALESCE(parent_id, ''), created_at
		FROM containers
		WHERE id=$1
	`
	c := &models.Container{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.ParentID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, &common.RepositoryError{Op: "containers.get", Err: err}
	}
	return c, nil
}

func (r *PostgresRepository) GetByIDAndOwner(ctx context.Context, userID, id string) (*models.Container, error) {
	query := `
		SELECT id, user_id, name, description, COALESCE(parent_id, ''), created_at
		FROM containers
		WHERE id=$1 AND user_id=$2
	`
	c := &models.Container{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.ParentID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, &common.RepositoryError{Op: "containers.get", Err: err}
	}
	return c, nil
}

// ListByOwner returns the caller's containers together with the count of
// file records directly referencing each one.
func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.ContainerListing, error) {
	query := `
		SELECT c.id, c.user_id, c.name, c.description, COALESCE(c.parent_id, ''), c.created_at,
		       COUNT(f.id) AS files_count
		FROM containers c
		LEFT JOIN files f ON f.container_id = c.id
		WHERE c.user_id=$1
		GROUP BY c.id
		ORDER BY c.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, &common.RepositoryError{Op: "containers.list", Err: err}
	}
	defer rows.Close()

	var result []*models.ContainerListing
	for rows.Next() {
		c := &models.ContainerListing{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.ParentID, &c.CreatedAt, &c.FilesCount); err != nil {
			return nil, &common.RepositoryError{Op: "containers.list", Err: err}
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &common.RepositoryError{Op: "containers.list", Err: err}
	}
	return result, nil
}

func (r *PostgresRepository) ListChildren(ctx context.Context, parentID string) ([]*models.Container, error) {
	query := `
		SELECT id, user_id, name, description, COALESCE(parent_id, ''), created_at
		FROM containers
		WHERE parent_id=$1
	`
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, &common.RepositoryError{Op: "containers.children", Err: err}
	}
	defer rows.Close()

	var result []*models.Container
	for rows.Next() {
		c := &models.Container{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, &common.RepositoryError{Op: "containers.children", Err: err}
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &common.RepositoryError{Op: "containers.children", Err: err}
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Container) error {
	query := `
		UPDATE containers
		SET name=$1, description=$2, parent_id=$3
		WHERE id=$4 AND user_id=$5
	`
	res, err := r.db.ExecContext(ctx, query, c.Name, c.Description, nullable(c.ParentID), c.ID, c.UserID)
	if err != nil {
		return &common.RepositoryError{Op: "containers.update", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &common.RepositoryError{Op: "containers.update", Err: err}
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteByIDs removes the given container rows in one statement; the caller
// passes a whole subtree so the self-referential FK is satisfied.
func (r *PostgresRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM containers WHERE id IN (%s)`, placeholders(1, len(ids)))

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return &common.RepositoryError{Op: "containers.delete", Err: err}
	}
	return nil
}
