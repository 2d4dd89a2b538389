package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmoliveira/docbox/internal/dbx"
	"github.com/dmoliveira/docbox/internal/server/repositories/containers"
	"github.com/dmoliveira/docbox/internal/server/repositories/files"
	"github.com/dmoliveira/docbox/internal/server/repositories/signatures"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Containers(db dbx.DBTX) containers.Repository
	Signatures(db dbx.DBTX) signatures.Repository
}
