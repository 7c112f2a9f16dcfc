package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/id"
	"github.com/xraph/gradebook/student"
)

// ──────────────────────────────────────────────────
// Student model
// ──────────────────────────────────────────────────

type studentModel struct {
	grove.BaseModel `grove:"table:student"`
	ID              int64  `grove:"id,pk,autoincrement"`
	FirstName       string `grove:"first_name,notnull"`
	LastName        string `grove:"last_name,notnull"`
	EmailAddress    string `grove:"email_address,notnull,unique"`
}

func studentToModel(s *student.Student) *studentModel {
	return &studentModel{
		ID:           s.ID,
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		EmailAddress: s.EmailAddress,
	}
}

func studentFromModel(m *studentModel) *student.Student {
	return &student.Student{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		EmailAddress: m.EmailAddress,
	}
}

// ──────────────────────────────────────────────────
// Grade models
// ──────────────────────────────────────────────────

// GradeRow holds the columns every subject table shares.
type GradeRow struct {
	ID        int64   `grove:"id,pk,autoincrement"`
	StudentID int64   `grove:"student_id,notnull"`
	Grade     float64 `grove:"grade,notnull"`
}

func (r *GradeRow) row() *GradeRow { return r }

type mathGradeModel struct {
	grove.BaseModel `grove:"table:math_grade"`
	GradeRow
}

type scienceGradeModel struct {
	grove.BaseModel `grove:"table:science_grade"`
	GradeRow
}

type historyGradeModel struct {
	grove.BaseModel `grove:"table:history_grade"`
	GradeRow
}

type gradeModel interface {
	row() *GradeRow
}

func newGradeModel(subject grade.Subject) gradeModel {
	switch subject {
	case grade.Math:
		return &mathGradeModel{}
	case grade.Science:
		return &scienceGradeModel{}
	default:
		return &historyGradeModel{}
	}
}

func gradeToModel(g *grade.Grade) gradeModel {
	m := newGradeModel(g.Subject)
	*m.row() = GradeRow{ID: g.ID, StudentID: g.StudentID, Grade: g.Value}
	return m
}

func gradeFromRow(r *GradeRow, subject grade.Subject) *grade.Grade {
	return &grade.Grade{ID: r.ID, StudentID: r.StudentID, Value: r.Grade, Subject: subject}
}

// ──────────────────────────────────────────────────
// Audit model
// ──────────────────────────────────────────────────

type auditModel struct {
	grove.BaseModel `grove:"table:gradebook_audit"`
	ID              string    `grove:"id,pk"`
	AppID           string    `grove:"app_id"`
	TenantID        string    `grove:"tenant_id"`
	Actor           string    `grove:"actor"`
	Operation       string    `grove:"operation,notnull"`
	Outcome         string    `grove:"outcome,notnull"`
	Reason          string    `grove:"reason"`
	StudentID       int64     `grove:"student_id"`
	GradeID         int64     `grove:"grade_id"`
	Subject         string    `grove:"subject"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func auditToModel(e *audit.Entry) *auditModel {
	return &auditModel{
		ID:        e.ID.String(),
		AppID:     e.AppID,
		TenantID:  e.TenantID,
		Actor:     e.Actor,
		Operation: string(e.Operation),
		Outcome:   string(e.Outcome),
		Reason:    e.Reason,
		StudentID: e.StudentID,
		GradeID:   e.GradeID,
		Subject:   e.Subject,
		CreatedAt: e.CreatedAt,
	}
}

func auditFromModel(m *auditModel) (*audit.Entry, error) {
	entryID, err := id.ParseAuditID(m.ID)
	if err != nil {
		return nil, err
	}
	return &audit.Entry{
		ID:        entryID,
		AppID:     m.AppID,
		TenantID:  m.TenantID,
		Actor:     m.Actor,
		Operation: audit.Operation(m.Operation),
		Outcome:   audit.Outcome(m.Outcome),
		Reason:    m.Reason,
		StudentID: m.StudentID,
		GradeID:   m.GradeID,
		Subject:   m.Subject,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}
