package mongo

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
	ID              int64  `grove:"id,pk"         bson:"_id"`
	FirstName       string `grove:"first_name"    bson:"first_name"`
	LastName        string `grove:"last_name"     bson:"last_name"`
	EmailAddress    string `grove:"email_address" bson:"email_address"`
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
// Grade model
// ──────────────────────────────────────────────────

// gradeModel is shared by the subject collections; queries name the
// collection explicitly.
type gradeModel struct {
	ID        int64   `grove:"id,pk"      bson:"_id"`
	StudentID int64   `grove:"student_id" bson:"student_id"`
	Grade     float64 `grove:"grade"      bson:"grade"`
}

func gradeToModel(g *grade.Grade) *gradeModel {
	return &gradeModel{ID: g.ID, StudentID: g.StudentID, Grade: g.Value}
}

func gradeFromModel(m *gradeModel, subject grade.Subject) *grade.Grade {
	return &grade.Grade{ID: m.ID, StudentID: m.StudentID, Value: m.Grade, Subject: subject}
}

// ──────────────────────────────────────────────────
// Audit model
// ──────────────────────────────────────────────────

type auditModel struct {
	grove.BaseModel `grove:"table:gradebook_audit"`
	ID              string    `grove:"id,pk"      bson:"_id"`
	AppID           string    `grove:"app_id"     bson:"app_id"`
	TenantID        string    `grove:"tenant_id"  bson:"tenant_id"`
	Actor           string    `grove:"actor"      bson:"actor"`
	Operation       string    `grove:"operation"  bson:"operation"`
	Outcome         string    `grove:"outcome"    bson:"outcome"`
	Reason          string    `grove:"reason"     bson:"reason,omitempty"`
	StudentID       int64     `grove:"student_id" bson:"student_id"`
	GradeID         int64     `grove:"grade_id"   bson:"grade_id"`
	Subject         string    `grove:"subject"    bson:"subject,omitempty"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
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
