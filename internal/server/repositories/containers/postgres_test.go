package containers

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmoliveira/docbox/internal/common"
	"github.com/dmoliveira/docbox/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func containerColumns() []string {
	return []string{"id", "user_id", "name", "description", "parent_id", "created_at"}
}

func TestCreate_RootContainer(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+containers`).
		WithArgs("c1", "u1", "Root", "top level", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Container{
		ID: "c1", UserID: "u1", Name: "Root", Description: "top level",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_ChildContainer(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+containers`).
		WithArgs("c2", "u1", "Child", "", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Container{
		ID: "c2", UserID: "u1", Name: "Child", ParentID: "c1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+.*FROM\s+containers\s+WHERE\s+id=\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByIDAndOwner_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT\s+.*FROM\s+containers\s+WHERE\s+id=\$1\s+AND\s+user_id=\$2`).
		WithArgs("c1", "u1").
		WillReturnRows(sqlmock.NewRows(containerColumns()).
			AddRow("c1", "u1", "Root", "", "", now))

	c, err := repo.GetByIDAndOwner(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "Root" || c.ParentID != "" {
		t.Fatalf("unexpected record: %+v", c)
	}
}

func TestListByOwner_IncludesFilesCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT\s+.*COUNT\(f\.id\).*FROM\s+containers\s+c\s+LEFT\s+JOIN\s+files\s+f`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(append(containerColumns(), "files_count")).
			AddRow("c1", "u1", "Root", "", "", now, 3).
			AddRow("c2", "u1", "Empty", "", "c1", now, 0))

	listing, err := repo.ListByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listing) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(listing))
	}
	if listing[0].FilesCount != 3 || listing[1].FilesCount != 0 {
		t.Fatalf("unexpected counts: %d, %d", listing[0].FilesCount, listing[1].FilesCount)
	}
}

func TestListChildren(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT\s+.*FROM\s+containers\s+WHERE\s+parent_id=\$1`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(containerColumns()).
			AddRow("c2", "u1", "A", "", "c1", now).
			AddRow("c3", "u1", "B", "", "c1", now))

	children, err := repo.ListChildren(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
}

func TestUpdate_NotOwned(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+containers\s+SET\s+.*WHERE\s+id=\$4\s+AND\s+user_id=\$5`).
		WithArgs("New", "", nil, "c1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Container{ID: "c1", UserID: "intruder", Name: "New"})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteByIDs_Subtree(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+containers\s+WHERE\s+id\s+IN\s+\(\$1, \$2, \$3\)`).
		WithArgs("c1", "c2", "c3").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteByIDs(context.Background(), []string{"c1", "c2", "c3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteByIDs_EmptyInput(t *testing.T) {
	repo, _, db := newRepoWithMock(t)
	defer db.Close()

	if err := repo.DeleteByIDs(context.Background(), nil); err != nil {
		t.Fatalf("expected nil for empty input, got %v", err)
	}
}
