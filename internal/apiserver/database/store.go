package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/condoflow/condoflow/internal/common/errorx"
)

// defaultTxTimeout bounds every transaction so a stuck row lock aborts the
// caller instead of hanging the worker.
const defaultTxTimeout = 5 * time.Second

// Store implements the Database interface on top of a gorm connection. The
// dialect constructors in postgres.go, mysql.go and sqlite.go open the
// connection and run migrations before handing it over.
type Store struct {
	db        *gorm.DB
	txTimeout time.Duration
}

func newStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&User{}, &Company{}, &Condo{}, &Unit{},
		&UserRole{}, &Resident{}, &Invite{},
	); err != nil {
		return nil, err
	}
	return &Store{db: db, txTimeout: defaultTxTimeout}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn in one transaction with a bounded timeout. The
// transaction is carried in the context so nested Database calls join it.
// An already-running ambient transaction is reused rather than nested.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
	var apiErr *errorx.APIError
	if err != nil && !errors.As(err, &apiErr) {
		return translate(err)
	}
	return err
}

// forUpdate adds a pessimistic row lock. SQLite has no FOR UPDATE syntax;
// its transactions already serialize at the database level.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// translate maps storage errors onto the domain error taxonomy. Constraint
// violations become Conflict so a race losing to a concurrent insert is
// recoverable, not a crash.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorx.ErrNotFound
	case isDuplicateKey(err):
		return errorx.ErrConflict.WithDetail("cause", "unique constraint violation")
	case errors.Is(err, context.DeadlineExceeded):
		return errorx.ErrInternal.WithMessage("transaction timed out")
	default:
		return errorx.Internal(err)
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsDuplicateKey reports whether err stems from a uniqueness violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errorx.ErrConflict) {
		return true
	}
	return isDuplicateKey(err)
}
