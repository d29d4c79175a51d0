package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	// DBTxKey carries an open transaction so repositories participate in it.
	DBTxKey contextKey = "db_tx"
	// DBConnKey carries a request-scoped connection acquired by middleware.
	DBConnKey contextKey = "db_conn"
)

// TxFromContext retrieves the current transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// ConnFromContext retrieves a request-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// WithTx runs fn inside a transaction. The transaction is stored in the context
// passed to fn so that repositories using the querier pattern join it. Commit
// happens only when fn returns nil; any error rolls the transaction back.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, DBTxKey, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
