package gradebook

import (
	"errors"

	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/student"
)

var (
	// ErrStudentNotFound is returned when a student cannot be found.
	ErrStudentNotFound = student.ErrNotFound

	// ErrDuplicateEmail is returned when a student's email address is
	// already taken.
	ErrDuplicateEmail = student.ErrDuplicateEmail

	// ErrGradeNotFound is returned when a grade cannot be found.
	ErrGradeNotFound = grade.ErrNotFound

	// ErrUnknownSubject is returned when a subject name is not recognised.
	ErrUnknownSubject = grade.ErrUnknownSubject

	// ErrAuditEntryNotFound is returned when an audit entry cannot be found.
	ErrAuditEntryNotFound = audit.ErrNotFound

	// ErrNoStore is returned by the constructors when a required store is
	// missing.
	ErrNoStore = errors.New("gradebook: store is required")

	// ErrSubjectMismatch is returned by New when a grade store is wired to
	// the wrong subject.
	ErrSubjectMismatch = errors.New("gradebook: grade store subject mismatch")

	// ErrAuditDisabled is returned by audit queries when no audit store is
	// configured.
	ErrAuditDisabled = errors.New("gradebook: audit store not configured")
)
