package repository

import (
	"context"
	"database/sql"

	"github.com/behrang/sqlbatch"
)

var (
	BatchOptionNormalReadOnly = sql.TxOptions{
		ReadOnly:  true,
		Isolation: sql.LevelReadCommitted,
	}
)

// BatchHandler is a database handler that executes a batch of SQL commands.
type BatchHandler interface {
	Batch(ctx context.Context, opts *sql.TxOptions, commands []sqlbatch.Command) ([]interface{}, error)
}
