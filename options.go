package gradebook

import (
	"log/slog"
	"time"

	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/plugin"
)

// Option is a functional option for the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithConfig sets the service configuration.
func WithConfig(c Config) Option { return func(s *Service) { s.config = c } }

// WithAuditStore sets where audit entries are written. The store must take
// part in the same transactions as the student and grade stores.
func WithAuditStore(a audit.Store) Option { return func(s *Service) { s.audit = a } }

// WithClock overrides the time source used to stamp audit entries.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithPlugin registers a plugin with the service.
func WithPlugin(x plugin.Plugin) Option {
	return func(s *Service) {
		if s.plugins == nil {
			s.plugins = plugin.NewRegistry(s.logger)
		}
		s.plugins.Register(x)
	}
}
