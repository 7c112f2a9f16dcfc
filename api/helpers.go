package api

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/xraph/forge"

	"github.com/xraph/gradebook"
	"github.com/xraph/gradebook/grade"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, gradebook.ErrDuplicateEmail) || errors.Is(err, gradebook.ErrUnknownSubject) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, gradebook.ErrAuditDisabled) {
		return forge.NotFound(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, gradebook.ErrStudentNotFound) ||
		errors.Is(err, gradebook.ErrGradeNotFound) ||
		errors.Is(err, gradebook.ErrAuditEntryNotFound)
}

// parseID reads a positive integer path parameter.
func parseID(ctx forge.Context, name string) (int64, error) {
	raw := ctx.Param(name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, forge.BadRequest(fmt.Sprintf("invalid %s: %q", name, raw))
	}
	return v, nil
}

// subjectParam maps a grade type name onto its subject. Unknown names yield
// SubjectUnknown so the service rejects them in its usual order.
func subjectParam(name string) grade.Subject {
	subject, err := grade.ParseSubject(name)
	if err != nil {
		return grade.SubjectUnknown
	}
	return subject
}
