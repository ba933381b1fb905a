package dbhandler

import (
	"context"
	"log"
	"time"

	"database/sql"

	"github.com/behrang/sqlbatch"
	"github.com/lib/pq"
)

const (
	retryPause = 50 * time.Millisecond
)

// DBHandler contains a connection to database.
type DBHandler struct {
	DB *sql.DB
}

// Open connects to the index database with the pool settings the service uses.
func Open(dbURI string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURI)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(1 * time.Minute)
	db.SetConnMaxLifetime(4 * time.Hour)
	return db, nil
}

// Batch creates a transaction and executes the batch of commands in that transaction.
// If a retryable error is received, the batch is retried until ctx is done.
func (handler DBHandler) Batch(ctx context.Context, opts *sql.TxOptions, commands []sqlbatch.Command) ([]interface{}, error) {

	for {
		results, err := handler.tryBatch(ctx, opts, commands)
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "40001" {
			log.Printf("🟡 Retryable Postgres error, retrying: %v", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryPause):
			}
			continue
		}
		return results, err
	}
}

func (handler DBHandler) tryBatch(ctx context.Context, opts *sql.TxOptions, commands []sqlbatch.Command) (results []interface{}, err error) {

	results = make([]interface{}, len(commands))

	tx, err := handler.DB.BeginTx(ctx, opts)
	if err != nil {
		return
	}
	defer tx.Rollback()

	results, err = sqlbatch.Batch(tx, commands)

	if err == nil {
		err = tx.Commit()
	}

	return
}
