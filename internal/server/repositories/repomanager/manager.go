package repomanager

import (
	"context"
	"database/sql"

	"github.com/daianaegermichels/financas/internal/dbx"
	"github.com/daianaegermichels/financas/internal/server/repositories/entries"
	"github.com/daianaegermichels/financas/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Entries(db dbx.DBTX) entries.Repository
}
