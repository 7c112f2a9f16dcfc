// Package store defines the aggregate persistence interface of the gradebook.
// The student, grade and audit packages each define their own store
// interface; a backend provides all of them plus a transaction scope.
// Backends: memory, SQLite, Postgres, bbolt and MongoDB.
package store

import (
	"context"

	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/student"
)

// Transactor runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back when it returns an error or panics. The context
// passed to fn carries the transaction; store calls made with it take part in
// it. Calling InTx with a context that already carries a transaction of the
// same backend joins that transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxFunc adapts an ordinary function to the Transactor interface.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// InTx calls f(ctx, fn).
func (f TxFunc) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// Store is the aggregate persistence interface. A single backend implements
// the student store, one grade store per subject and the audit store, all
// sharing one transaction scope.
type Store interface {
	Transactor

	// Students returns the student store.
	Students() student.Store

	// Grades returns the grade store for subject, or nil when subject is
	// not a storable subject.
	Grades(subject grade.Subject) grade.Store

	// Audit returns the audit store.
	Audit() audit.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
