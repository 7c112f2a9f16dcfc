package gradebook

import "github.com/xraph/gradebook/id"

// AuditID identifies an audit entry.
type AuditID = id.AuditID

// ParseAuditID parses an audit entry ID such as "audit_01h2xcejqtf2nbrexx3vqjhp41".
func ParseAuditID(s string) (AuditID, error) { return id.ParseAuditID(s) }
