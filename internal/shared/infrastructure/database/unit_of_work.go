package database

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTransaction is returned by Commit or Rollback on a context without a unit of work.
var ErrNoTransaction = errors.New("no transaction in context")

// GenericUnitOfWork implements application.UnitOfWork for any Connection.
// A Begin on a context that already carries a transaction opens a SAVEPOINT,
// so a nested unit can fail and roll back without aborting its parent.
type GenericUnitOfWork struct {
	conn Connection
}

// NewUnitOfWork creates a new GenericUnitOfWork.
func NewUnitOfWork(conn Connection) *GenericUnitOfWork {
	return &GenericUnitOfWork{conn: conn}
}

// Begin starts a transaction, or a savepoint inside the current one.
func (u *GenericUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if parent, ok := TxInfoFromContext(ctx); ok {
		depth := parent.Depth + 1
		name := fmt.Sprintf("uow_sp_%d", depth)
		if _, err := parent.Tx.Exec(ctx, "SAVEPOINT "+name); err != nil {
			return nil, WrapPersistence("savepoint", err)
		}
		return WithTxInfo(ctx, TxInfo{Tx: parent.Tx, Savepoint: name, Depth: depth}), nil
	}

	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return nil, WrapPersistence("begin", err)
	}
	return WithTx(ctx, tx), nil
}

// Commit commits an owned transaction or releases a savepoint.
func (u *GenericUnitOfWork) Commit(ctx context.Context) error {
	info, ok := TxInfoFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if info.Owned {
		return WrapPersistence("commit", info.Tx.Commit(ctx))
	}
	if info.Savepoint == "" {
		return nil
	}
	_, err := info.Tx.Exec(ctx, "RELEASE SAVEPOINT "+info.Savepoint)
	return WrapPersistence("release savepoint", err)
}

// Rollback rolls back an owned transaction or returns to a savepoint.
func (u *GenericUnitOfWork) Rollback(ctx context.Context) error {
	info, ok := TxInfoFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if info.Owned {
		return WrapPersistence("rollback", info.Tx.Rollback(ctx))
	}
	if info.Savepoint == "" {
		return nil
	}
	if _, err := info.Tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+info.Savepoint); err != nil {
		return WrapPersistence("rollback to savepoint", err)
	}
	_, err := info.Tx.Exec(ctx, "RELEASE SAVEPOINT "+info.Savepoint)
	return WrapPersistence("release savepoint", err)
}
