package database

import (
	"context"

	"gorm.io/gorm"
)

// Store.Transaction stashes the running *gorm.DB in the context and every
// store method routes through conn, so nested store calls join the same
// transaction instead of opening their own.

type txKey struct{}

func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFrom(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// InTransaction reports whether ctx carries an ambient transaction. Callers
// that must hold side effects until commit check this to decide who fires
// them.
func InTransaction(ctx context.Context) bool {
	return txFrom(ctx) != nil
}

// conn is the handle store methods operate on: the ambient transaction when
// one is running, otherwise the shared connection bound to ctx.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
