package files

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

// PostgresRepository implements file persistence over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// nullable maps an empty string to SQL NULL for optional reference columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// placeholders renders "$start, $start+1, ..." for n parameters.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, user_id, container_id, key, file_name, file_size, file_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.UserID, nullable(file.ContainerID), file.Key, file.FileName, file.FileSize, file.FileType)
	if err != nil {
		return &common.RepositoryError{Op: "files.create", Err: err}
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.File, error) {
	query := `
		SELECT id, user_id, COALESCE(container_id, ''), key, file_name, file_size, file_type, created_at
		FROM files
		WHERE id=$1 AND user_id=$2
	`
	f := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&f.ID, &f.UserID, &f.ContainerID, &f.Key, &f.FileName, &f.FileSize, &f.FileType, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, &common.RepositoryError{Op: "files.get", Err: err}
	}
	return f, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.File, error) {
	query := `
		SELECT id, user_id, COALESCE(container_id, ''), key, file_name, file_size, file_type, created_at
		FROM files
		WHERE user_id=$1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, &common.RepositoryError{Op: "files.list", Err: err}
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f := &models.File{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.ContainerID, &f.Key, &f.FileName, &f.FileSize, &f.FileType, &f.CreatedAt); err != nil {
			return nil, &common.RepositoryError{Op: "files.list", Err: err}
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &common.RepositoryError{Op: "files.list", Err: err}
	}
	return result, nil
}

func (r *PostgresRepository) FindByIDs(ctx context.Context, userID string, ids []string) ([]*models.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT id, user_id, COALESCE(container_id, ''), key, file_name, file_size, file_type, created_at
		FROM files
		WHERE user_id=$1 AND id IN (%s)
	`, placeholders(2, len(ids)))

	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &common.RepositoryError{Op: "files.find", Err: err}
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f := &models.File{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.ContainerID, &f.Key, &f.FileName, &f.FileSize, &f.FileType, &f.CreatedAt); err != nil {
			return nil, &common.RepositoryError{Op: "files.find", Err: err}
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &common.RepositoryError{Op: "files.find", Err: err}
	}
	return result, nil
}

// ListByContainerIDs returns every file record filed under one of the given
// containers. The container cascade enumerates blob keys from this set
// instead of listing the object store by path.
func (r *PostgresRepository) ListByContainerIDs(ctx context.Context, containerIDs []string) ([]*models.File, error) {
	if len(containerIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT id, user_id, COALESCE(container_id, ''), key, file_name, file_size, file_type, created_at
		FROM files
		WHERE container_id IN (%s)
	`, placeholders(1, len(containerIDs)))

	args := make([]any, 0, len(containerIDs))
	for _, id := range containerIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &common.RepositoryError{Op: "files.listByContainer", Err: err}
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f := &models.File{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.ContainerID, &f.Key, &f.FileName, &f.FileSize, &f.FileType, &f.CreatedAt); err != nil {
			return nil, &common.RepositoryError{Op: "files.listByContainer", Err: err}
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &common.RepositoryError{Op: "files.listByContainer", Err: err}
	}
	return result, nil
}

// Update persists the mutable fields of a file record. The row is matched by
// id and owner; zero affected rows surface as ErrNotFound.
func (r *PostgresRepository) Update(ctx context.Context, file *models.File) error {
	query := `
		UPDATE files
		SET container_id=$1, key=$2, file_name=$3, file_size=$4, file_type=$5
		WHERE id=$6 AND user_id=$7
	`
	res, err := r.db.ExecContext(ctx, query,
		nullable(file.ContainerID), file.Key, file.FileName, file.FileSize, file.FileType, file.ID, file.UserID)
	if err != nil {
		return &common.RepositoryError{Op: "files.update", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &common.RepositoryError{Op: "files.update", Err: err}
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM files WHERE user_id=$1 AND id IN (%s)`, placeholders(2, len(ids)))

	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &common.RepositoryError{Op: "files.delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &common.RepositoryError{Op: "files.delete", Err: err}
	}
	return n, nil
}

// DeleteByContainerIDs removes every file record referencing one of the given
// containers. Runs inside the container-delete transaction.
func (r *PostgresRepository) DeleteByContainerIDs(ctx context.Context, containerIDs []string) error {
	if len(containerIDs) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM files WHERE container_id IN (%s)`, placeholders(1, len(containerIDs)))

	args := make([]any, 0, len(containerIDs))
	for _, id := range containerIDs {
		args = append(args, id)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return &common.RepositoryError{Op: "files.deleteByContainer", Err: err}
	}
	return nil
}
