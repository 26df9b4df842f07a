// Package repomanager vends repositories bound to a DB handle or transaction
// and runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/devlearning/devauth/internal/dbx"
	"github.com/devlearning/devauth/internal/server/repositories/principals"
	"github.com/devlearning/devauth/internal/server/repositories/refreshtokens"
)

// RepositoryManager lets services obtain repositories for either *sql.DB or
// a *sql.Tx, so the same code runs inside and outside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Principals(db dbx.DBTX) principals.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
