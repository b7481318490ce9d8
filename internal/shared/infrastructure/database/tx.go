package database

import (
	"context"
	"errors"
)

// InTx runs fn on the context transaction, or on a fresh transaction that is
// committed when fn succeeds. Multi-statement repository writes use it so they
// stay atomic with or without a surrounding unit of work.
func InTx(ctx context.Context, conn Connection, fn func(exec Executor) error) error {
	if tx := TxFromContext(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return WrapPersistence("begin", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, WrapPersistence("rollback", rbErr))
		}
		return err
	}
	return WrapPersistence("commit", tx.Commit(ctx))
}
