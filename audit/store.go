package audit

import (
	"context"
	"time"

	"github.com/xraph/gradebook/id"
)

// Store defines persistence operations for audit entries.
type Store interface {
	// CreateAuditEntry persists a new entry.
	CreateAuditEntry(ctx context.Context, e *Entry) error

	// GetAuditEntry retrieves an entry by ID.
	GetAuditEntry(ctx context.Context, entryID id.AuditID) (*Entry, error)

	// ListAuditEntries returns entries matching the filter, oldest first.
	ListAuditEntries(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountAuditEntries returns the number of entries matching the filter.
	CountAuditEntries(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeAuditEntries removes entries created before the given time and
	// reports how many were removed.
	PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error)
}
