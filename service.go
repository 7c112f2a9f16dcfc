package gradebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/id"
	"github.com/xraph/gradebook/plugin"
	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/student"
)

// Rejection reasons recorded when CreateGrade returns false.
const (
	ReasonStudentNotFound = "student_not_found"
	ReasonOutOfRange      = "grade_out_of_range"
	ReasonUnknownSubject  = "unknown_subject"
	ReasonGradeNotFound   = "grade_not_found"
)

// Service coordinates the student store and the three grade stores. It owns
// no data: every call re-reads state and runs in exactly one transaction.
type Service struct {
	tx       store.Transactor
	students student.Store
	math     grade.Store
	science  grade.Store
	history  grade.Store
	audit    audit.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	config   Config
	now      func() time.Time
}

// New creates a Service from its collaborators. The grade stores must report
// Math, Science and History respectively, and every store must take part in
// the transactions started by tx.
func New(tx store.Transactor, students student.Store, math, science, history grade.Store, opts ...Option) (*Service, error) {
	if tx == nil || students == nil || math == nil || science == nil || history == nil {
		return nil, ErrNoStore
	}
	for want, gs := range map[grade.Subject]grade.Store{grade.Math: math, grade.Science: science, grade.History: history} {
		if got := gs.Subject(); got != want {
			return nil, fmt.Errorf("%w: %s store reports %s", ErrSubjectMismatch, want, got)
		}
	}

	s := &Service{
		tx:       tx,
		students: students,
		math:     math,
		science:  science,
		history:  history,
		logger:   slog.Default(),
		config:   DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromStore creates a Service backed by a single composite store. The
// store's audit store is used unless WithAuditStore overrides it.
func NewFromStore(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, ErrNoStore
	}
	opts = append([]Option{WithAuditStore(st.Audit())}, opts...)
	return New(st, st.Students(),
		st.Grades(grade.Math), st.Grades(grade.Science), st.Grades(grade.History),
		opts...)
}

// Plugins returns the plugin registry (may be nil).
func (s *Service) Plugins() *plugin.Registry { return s.plugins }

// Shutdown notifies plugins that the service is stopping.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.plugins != nil {
		s.plugins.EmitShutdown(ctx)
	}
	return nil
}

// CreateStudent persists a new student. The store assigns the id. An email
// address that is already taken yields ErrDuplicateEmail.
func (s *Service) CreateStudent(ctx context.Context, firstName, lastName, emailAddress string) error {
	st := student.New(firstName, lastName, emailAddress)

	err := s.inTx(ctx, func(ctx context.Context) error {
		st.ID = 0
		if err := s.students.SaveStudent(ctx, st); err != nil {
			return fmt.Errorf("gradebook: create student: %w", err)
		}
		return s.record(ctx, &audit.Entry{
			Operation: audit.OpCreateStudent,
			Outcome:   audit.OutcomeApplied,
			StudentID: st.ID,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("student_created", "student_id", st.ID)
	if s.plugins != nil {
		s.plugins.EmitStudentCreated(ctx, st)
	}
	return nil
}

// CheckIfStudentIsNull reports whether a student with the given id EXISTS.
// The name is kept for callers that already branch on it.
func (s *Service) CheckIfStudentIsNull(ctx context.Context, studentID int64) (bool, error) {
	var exists bool
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		exists, err = s.studentExists(ctx, studentID)
		return err
	})
	return exists, err
}

// DeleteStudent removes a student and then every grade of that student in
// all three subjects. A missing student is a silent no-op.
func (s *Service) DeleteStudent(ctx context.Context, studentID int64) error {
	var deleted bool
	err := s.inTx(ctx, func(ctx context.Context) error {
		exists, err := s.studentExists(ctx, studentID)
		if err != nil {
			return err
		}
		if !exists {
			return s.record(ctx, &audit.Entry{
				Operation: audit.OpDeleteStudent,
				Outcome:   audit.OutcomeNoop,
				Reason:    ReasonStudentNotFound,
				StudentID: studentID,
			})
		}

		if err := s.students.DeleteStudent(ctx, studentID); err != nil {
			return fmt.Errorf("gradebook: delete student: %w", err)
		}
		for _, gs := range s.gradeStores() {
			if err := gs.DeleteGradesByStudent(ctx, studentID); err != nil {
				return fmt.Errorf("gradebook: delete %s grades: %w", gs.Subject(), err)
			}
		}
		deleted = true
		return s.record(ctx, &audit.Entry{
			Operation: audit.OpDeleteStudent,
			Outcome:   audit.OutcomeApplied,
			StudentID: studentID,
		})
	})
	if err != nil {
		return err
	}

	if !deleted {
		s.logger.Debug("student_delete_noop", "student_id", studentID)
		return nil
	}
	s.logger.Info("student_deleted", "student_id", studentID)
	if s.plugins != nil {
		s.plugins.EmitStudentDeleted(ctx, studentID)
	}
	return nil
}

// GetGradeBook returns every student ordered by id. Grades are not
// included; use StudentGrades for one student's grades.
func (s *Service) GetGradeBook(ctx context.Context) ([]*student.Student, error) {
	var out []*student.Student
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.students.ListStudents(ctx)
		if err != nil {
			return fmt.Errorf("gradebook: list students: %w", err)
		}
		return nil
	})
	return out, err
}

// CreateGrade records a grade for a student. It returns false without
// writing a grade when the student does not exist, when value is outside
// [0, 100], or when subject is not Math, Science or History, checked in
// that order.
func (s *Service) CreateGrade(ctx context.Context, value float64, studentID int64, subject grade.Subject) (bool, error) {
	var (
		created *grade.Grade
		reason  string
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		exists, err := s.studentExists(ctx, studentID)
		if err != nil {
			return err
		}

		var gs grade.Store
		switch {
		case !exists:
			reason = ReasonStudentNotFound
		case !grade.InRange(value):
			reason = ReasonOutOfRange
		default:
			var ok bool
			if gs, ok = s.gradeStore(subject); !ok {
				reason = ReasonUnknownSubject
			}
		}
		if reason != "" {
			return s.record(ctx, &audit.Entry{
				Operation: audit.OpCreateGrade,
				Outcome:   audit.OutcomeRejected,
				Reason:    reason,
				StudentID: studentID,
				Subject:   subject.String(),
			})
		}

		g := grade.New(subject, studentID, value)
		g.ID = 0
		if err := gs.SaveGrade(ctx, g); err != nil {
			return fmt.Errorf("gradebook: create %s grade: %w", subject, err)
		}
		created = g
		return s.record(ctx, &audit.Entry{
			Operation: audit.OpCreateGrade,
			Outcome:   audit.OutcomeApplied,
			StudentID: studentID,
			GradeID:   g.ID,
			Subject:   subject.String(),
		})
	})
	if err != nil {
		return false, err
	}

	if created == nil {
		s.logger.Debug("grade_rejected",
			"student_id", studentID,
			"subject", subject.String(),
			"reason", reason,
		)
		return false, nil
	}
	s.logger.Info("grade_created",
		"grade_id", created.ID,
		"student_id", studentID,
		"subject", subject.String(),
	)
	if s.plugins != nil {
		s.plugins.EmitGradeCreated(ctx, created)
	}
	return true, nil
}

// DeleteGrade removes a grade and returns the id of the student it belonged
// to. It returns 0 when subject is unknown, without consulting any store, or
// when no such grade exists.
func (s *Service) DeleteGrade(ctx context.Context, gradeID int64, subject grade.Subject) (int64, error) {
	gs, ok := s.gradeStore(subject)
	if !ok {
		s.logger.Debug("grade_delete_noop", "grade_id", gradeID, "reason", ReasonUnknownSubject)
		return 0, nil
	}

	var deleted *grade.Grade
	err := s.inTx(ctx, func(ctx context.Context) error {
		g, err := gs.GetGrade(ctx, gradeID)
		if errors.Is(err, grade.ErrNotFound) {
			return s.record(ctx, &audit.Entry{
				Operation: audit.OpDeleteGrade,
				Outcome:   audit.OutcomeNoop,
				Reason:    ReasonGradeNotFound,
				GradeID:   gradeID,
				Subject:   subject.String(),
			})
		}
		if err != nil {
			return fmt.Errorf("gradebook: get %s grade: %w", subject, err)
		}

		if err := gs.DeleteGrade(ctx, gradeID); err != nil {
			return fmt.Errorf("gradebook: delete %s grade: %w", subject, err)
		}
		deleted = g
		return s.record(ctx, &audit.Entry{
			Operation: audit.OpDeleteGrade,
			Outcome:   audit.OutcomeApplied,
			StudentID: g.StudentID,
			GradeID:   gradeID,
			Subject:   subject.String(),
		})
	})
	if err != nil {
		return 0, err
	}

	if deleted == nil {
		s.logger.Debug("grade_delete_noop", "grade_id", gradeID, "subject", subject.String())
		return 0, nil
	}
	s.logger.Info("grade_deleted",
		"grade_id", gradeID,
		"student_id", deleted.StudentID,
		"subject", subject.String(),
	)
	if s.plugins != nil {
		s.plugins.EmitGradeDeleted(ctx, deleted)
	}
	return deleted.StudentID, nil
}

// StudentGrades returns a student together with its grades in every
// subject. It returns ErrStudentNotFound when the student does not exist.
func (s *Service) StudentGrades(ctx context.Context, studentID int64) (*StudentGrades, error) {
	var out *StudentGrades
	err := s.inTx(ctx, func(ctx context.Context) error {
		st, err := s.students.GetStudent(ctx, studentID)
		if err != nil {
			return fmt.Errorf("gradebook: get student: %w", err)
		}
		sg := &StudentGrades{Student: st}
		for _, gs := range s.gradeStores() {
			grades, err := gs.ListGradesByStudent(ctx, studentID)
			if err != nil {
				return fmt.Errorf("gradebook: list %s grades: %w", gs.Subject(), err)
			}
			sg.set(gs.Subject(), grades)
		}
		out = sg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindStudentByEmail returns the student with the given email address, or
// ErrStudentNotFound.
func (s *Service) FindStudentByEmail(ctx context.Context, emailAddress string) (*student.Student, error) {
	var out *student.Student
	err := s.inTx(ctx, func(ctx context.Context) error {
		st, err := s.students.GetStudentByEmail(ctx, emailAddress)
		if err != nil {
			return fmt.Errorf("gradebook: find student: %w", err)
		}
		out = st
		return nil
	})
	return out, err
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// inTx runs fn in one transaction, bounded by OperationTimeout when set.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.config.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.OperationTimeout)
		defer cancel()
	}
	return s.tx.InTx(ctx, fn)
}

// studentExists must be called inside a transaction.
func (s *Service) studentExists(ctx context.Context, studentID int64) (bool, error) {
	_, err := s.students.GetStudent(ctx, studentID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, student.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("gradebook: get student: %w", err)
	}
}

// gradeStore maps a subject onto its store.
func (s *Service) gradeStore(subject grade.Subject) (grade.Store, bool) {
	switch subject {
	case grade.Math:
		return s.math, true
	case grade.Science:
		return s.science, true
	case grade.History:
		return s.history, true
	}
	return nil, false
}

// gradeStores returns the grade stores in cascade order.
func (s *Service) gradeStores() [3]grade.Store {
	return [3]grade.Store{s.math, s.science, s.history}
}

// record appends e to the audit log inside the current transaction.
func (s *Service) record(ctx context.Context, e *audit.Entry) error {
	if s.audit == nil || !s.config.auditEnabled() {
		return nil
	}
	scope := scopeFromContext(ctx)
	e.ID = id.NewAuditID()
	e.AppID = scope.appID
	e.TenantID = scope.tenantID
	e.Actor = ActorFromContext(ctx)
	e.CreatedAt = s.now().UTC()
	if err := s.audit.CreateAuditEntry(ctx, e); err != nil {
		return fmt.Errorf("gradebook: record audit entry: %w", err)
	}
	return nil
}
