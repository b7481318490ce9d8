package database

import "context"

type txKey struct{}

// TxInfo describes the transaction carried by a context.
// Owned is true for the unit of work that opened the transaction. Nested units
// hold a savepoint instead and release or roll back only that savepoint.
type TxInfo struct {
	Tx        Transaction
	Owned     bool
	Savepoint string
	Depth     int
}

// WithTxInfo stores transaction info in the context.
func WithTxInfo(ctx context.Context, info TxInfo) context.Context {
	return context.WithValue(ctx, txKey{}, info)
}

// WithTx stores an owned top-level transaction in the context.
func WithTx(ctx context.Context, tx Transaction) context.Context {
	return WithTxInfo(ctx, TxInfo{Tx: tx, Owned: true})
}

// TxFromContext extracts the transaction from the context, or nil.
func TxFromContext(ctx context.Context) Transaction {
	info, ok := TxInfoFromContext(ctx)
	if !ok {
		return nil
	}
	return info.Tx
}

// TxInfoFromContext extracts full transaction info from the context.
func TxInfoFromContext(ctx context.Context) (TxInfo, bool) {
	info, ok := ctx.Value(txKey{}).(TxInfo)
	if !ok || info.Tx == nil {
		return TxInfo{}, false
	}
	return info, true
}

// ExecutorFromContext returns the transaction if present, otherwise the connection.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return conn
}
