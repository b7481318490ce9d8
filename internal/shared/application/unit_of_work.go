package application

import (
	"context"
	"errors"
	"fmt"
)

// UnitOfWork scopes a set of repository calls to one transaction.
// Begin returns a context that carries the transaction; repositories pick it up
// from there. Calling Begin on a context that already carries a transaction
// opens a nested unit that commits or rolls back independently of its parent.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkFunc is a function that executes within a unit of work.
type UnitOfWorkFunc func(ctx context.Context) error

// WithUnitOfWork runs fn inside a unit of work. It commits when fn returns nil
// and rolls back otherwise; a panic in fn rolls back before re-panicking.
// Rollback ignores cancellation of ctx so an expired deadline still releases
// the transaction.
func WithUnitOfWork(ctx context.Context, uow UnitOfWork, fn UnitOfWorkFunc) (err error) {
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback(context.WithoutCancel(txCtx))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := uow.Rollback(context.WithoutCancel(txCtx)); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	return uow.Commit(txCtx)
}
