package gradebook

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/gradebook/audit"
)

// AuditEntries returns audit entries matching filter, oldest first.
func (s *Service) AuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	if s.audit == nil {
		return nil, ErrAuditDisabled
	}
	entries, err := s.audit.ListAuditEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("gradebook: list audit entries: %w", err)
	}
	return entries, nil
}

// CountAuditEntries returns the number of audit entries matching filter.
func (s *Service) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	if s.audit == nil {
		return 0, ErrAuditDisabled
	}
	n, err := s.audit.CountAuditEntries(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("gradebook: count audit entries: %w", err)
	}
	return n, nil
}

// PurgeAuditEntries removes audit entries older than before.
func (s *Service) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	if s.audit == nil {
		return 0, ErrAuditDisabled
	}
	var n int64
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.audit.PurgeAuditEntries(ctx, before)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("gradebook: purge audit entries: %w", err)
	}
	s.logger.Info("audit_purged", "before", before, "count", n)
	return n, nil
}
