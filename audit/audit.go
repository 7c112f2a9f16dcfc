// Package audit defines the gradebook audit Entry and its store interface.
//
// Every mutating gradebook operation appends one entry inside the same
// transaction as the change it describes, including operations that were
// rejected or turned out to be no-ops.
package audit

import (
	"errors"
	"time"

	"github.com/xraph/gradebook/id"
)

// ErrNotFound is returned when an audit entry does not exist.
var ErrNotFound = errors.New("gradebook: audit entry not found")

// Operation names the gradebook operation an entry describes.
type Operation string

// Operations.
const (
	OpCreateStudent Operation = "create_student"
	OpDeleteStudent Operation = "delete_student"
	OpCreateGrade   Operation = "create_grade"
	OpDeleteGrade   Operation = "delete_grade"
)

// Outcome is what the operation did.
type Outcome string

// Outcomes.
const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
	OutcomeNoop     Outcome = "noop"
)

// Entry is a single audit record.
type Entry struct {
	ID        id.AuditID `json:"id" db:"id"`
	AppID     string     `json:"app_id,omitempty" db:"app_id"`
	TenantID  string     `json:"tenant_id,omitempty" db:"tenant_id"`
	Actor     string     `json:"actor,omitempty" db:"actor"`
	Operation Operation  `json:"operation" db:"operation"`
	Outcome   Outcome    `json:"outcome" db:"outcome"`
	Reason    string     `json:"reason,omitempty" db:"reason"`
	StudentID int64      `json:"student_id,omitempty" db:"student_id"`
	GradeID   int64      `json:"grade_id,omitempty" db:"grade_id"`
	Subject   string     `json:"subject,omitempty" db:"subject"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// QueryFilter narrows ListAuditEntries and CountAuditEntries. Zero fields
// do not filter.
type QueryFilter struct {
	TenantID  string     `json:"tenant_id,omitempty"`
	Operation Operation  `json:"operation,omitempty"`
	Outcome   Outcome    `json:"outcome,omitempty"`
	StudentID int64      `json:"student_id,omitempty"`
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
}

// Match reports whether e satisfies f. A nil filter matches everything.
// After and Before are exclusive bounds.
func (f *QueryFilter) Match(e *Entry) bool {
	if f == nil {
		return true
	}
	if f.TenantID != "" && e.TenantID != f.TenantID {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.StudentID != 0 && e.StudentID != f.StudentID {
		return false
	}
	if f.After != nil && !e.CreatedAt.After(*f.After) {
		return false
	}
	if f.Before != nil && !e.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}
