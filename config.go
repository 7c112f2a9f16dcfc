package gradebook

import "time"

// Config holds configuration for the gradebook Service.
type Config struct {
	// EnableAudit records an audit entry for every mutating operation,
	// in the same transaction as the change.
	// Defaults to true.
	EnableAudit *bool `json:"enable_audit,omitempty" yaml:"enable_audit,omitempty"`

	// OperationTimeout bounds each operation, including its transaction.
	// Zero means no deadline beyond the caller's context.
	OperationTimeout time.Duration `json:"operation_timeout,omitempty" yaml:"operation_timeout,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		EnableAudit: &t,
	}
}

func (c Config) auditEnabled() bool { return c.EnableAudit == nil || *c.EnableAudit }
