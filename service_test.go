package gradebook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/store/memory"
	"github.com/xraph/gradebook/student"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	s := memory.New()
	svc, err := NewFromStore(s, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return svc, s
}

func mustCreateStudent(t *testing.T, svc *Service, s *memory.Store, first, last, email string) int64 {
	t.Helper()
	ctx := context.Background()
	if err := svc.CreateStudent(ctx, first, last, email); err != nil {
		t.Fatal(err)
	}
	st, err := s.GetStudentByEmail(ctx, email)
	if err != nil {
		t.Fatal(err)
	}
	return st.ID
}

func gradeCount(t *testing.T, s *memory.Store, subject grade.Subject, studentID int64) int {
	t.Helper()
	list, err := s.Grades(subject).ListGradesByStudent(context.Background(), studentID)
	if err != nil {
		t.Fatal(err)
	}
	return len(list)
}

func TestNewFromStore_RequiresStore(t *testing.T) {
	_, err := NewFromStore(nil)
	if !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestNew_RequiresAllStores(t *testing.T) {
	s := memory.New()
	_, err := New(s, s, s.Grades(grade.Math), nil, s.Grades(grade.History))
	if !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestNew_RejectsSwappedGradeStores(t *testing.T) {
	s := memory.New()
	_, err := New(s, s, s.Grades(grade.Science), s.Grades(grade.Math), s.Grades(grade.History))
	if !errors.Is(err, ErrSubjectMismatch) {
		t.Fatalf("expected ErrSubjectMismatch, got %v", err)
	}
}

func TestCreateStudent(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	if err := svc.CreateStudent(ctx, "Chad", "Darby", "chad.darby@luv2code_school.com"); err != nil {
		t.Fatal(err)
	}

	st, err := s.GetStudentByEmail(ctx, "chad.darby@luv2code_school.com")
	if err != nil {
		t.Fatal(err)
	}
	if st.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if st.FirstName != "Chad" || st.LastName != "Darby" {
		t.Fatalf("unexpected student %+v", st)
	}

	book, err := svc.GetGradeBook(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(book) != 1 {
		t.Fatalf("expected 1 student in gradebook, got %d", len(book))
	}
}

func TestCreateStudent_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.CreateStudent(ctx, "Chad", "Darby", "chad@example.com"); err != nil {
		t.Fatal(err)
	}
	err := svc.CreateStudent(ctx, "Chad", "Again", "chad@example.com")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	book, err := svc.GetGradeBook(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(book) != 1 {
		t.Fatalf("expected duplicate to be rejected, got %d students", len(book))
	}
}

func TestCheckIfStudentIsNull(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")

	exists, err := svc.CheckIfStudentIsNull(ctx, studentID)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected true for an existing student")
	}

	exists, err = svc.CheckIfStudentIsNull(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected false for id 0")
	}

	if err := svc.DeleteStudent(ctx, studentID); err != nil {
		t.Fatal(err)
	}
	exists, err = svc.CheckIfStudentIsNull(ctx, studentID)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected false after delete")
	}
}

func TestDeleteStudent_CascadesToAllSubjects(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")
	otherID := mustCreateStudent(t, svc, s, "Other", "Student", "other@example.com")

	for _, subj := range grade.Subjects {
		for _, id := range []int64{studentID, otherID} {
			ok, err := svc.CreateGrade(ctx, 100, id, subj)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Fatalf("expected grade to be created for %s", subj)
			}
		}
	}

	if err := svc.DeleteStudent(ctx, studentID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetStudent(ctx, studentID); !errors.Is(err, student.ErrNotFound) {
		t.Fatalf("expected student to be gone, got %v", err)
	}
	for _, subj := range grade.Subjects {
		if n := gradeCount(t, s, subj, studentID); n != 0 {
			t.Errorf("%s: expected 0 grades, got %d", subj, n)
		}
		if n := gradeCount(t, s, subj, otherID); n != 1 {
			t.Errorf("%s: other student's grades touched, got %d", subj, n)
		}
	}
}

func TestDeleteStudent_MissingIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")
	if ok, err := svc.CreateGrade(ctx, 50, studentID, grade.Math); err != nil || !ok {
		t.Fatalf("create grade: %v %v", ok, err)
	}

	if err := svc.DeleteStudent(ctx, studentID+100); err != nil {
		t.Fatal(err)
	}

	book, err := svc.GetGradeBook(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(book) != 1 {
		t.Fatalf("expected gradebook untouched, got %d students", len(book))
	}
	if n := gradeCount(t, s, grade.Math, studentID); n != 1 {
		t.Fatalf("expected grade untouched, got %d", n)
	}
}

func TestGetGradeBook(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	book, err := svc.GetGradeBook(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(book) != 0 {
		t.Fatalf("expected empty gradebook, got %d", len(book))
	}

	for i := range 6 {
		mustCreateStudent(t, svc, s, "Student", fmt.Sprint(i), fmt.Sprintf("s%d@example.com", i))
	}

	book, err = svc.GetGradeBook(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(book) != 6 {
		t.Fatalf("expected 6 students, got %d", len(book))
	}
	for i := 1; i < len(book); i++ {
		if book[i-1].ID >= book[i].ID {
			t.Fatalf("gradebook not ordered by id: %d before %d", book[i-1].ID, book[i].ID)
		}
	}
}

func TestCreateGrade_AllSubjects(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")

	for _, subj := range grade.Subjects {
		ok, err := svc.CreateGrade(ctx, 80.50, studentID, subj)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("%s: expected true", subj)
		}

		list, err := s.Grades(subj).ListGradesByStudent(ctx, studentID)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].Value != 80.50 {
			t.Fatalf("%s: unexpected grades %+v", subj, list)
		}
	}
}

func TestCreateGrade_Boundaries(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")

	for _, v := range []float64{0, 100} {
		ok, err := svc.CreateGrade(ctx, v, studentID, grade.History)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("expected %v to be accepted", v)
		}
	}
	if n := gradeCount(t, s, grade.History, studentID); n != 2 {
		t.Fatalf("expected 2 grades, got %d", n)
	}
}

func TestCreateGrade_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")

	literature, _ := grade.ParseSubject("literature")

	tests := []struct {
		name      string
		value     float64
		studentID int64
		subject   grade.Subject
	}{
		{"above range", 180.50, studentID, grade.Math},
		{"below range", -5, studentID, grade.Math},
		{"missing student", 80.50, studentID + 41, grade.Math},
		{"unknown subject", 80.50, studentID, literature},
		{"out-of-enum subject", 80.50, studentID, grade.Subject(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.CreateGrade(ctx, tt.value, tt.studentID, tt.subject)
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Fatal("expected false")
			}
		})
	}

	for _, subj := range grade.Subjects {
		if n := gradeCount(t, s, subj, studentID); n != 0 {
			t.Errorf("%s: expected nothing written, got %d", subj, n)
		}
	}
}

func TestCreateGrade_CheckOrder(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	// Missing student, out of range and unknown subject at once: the
	// student check comes first.
	if ok, err := svc.CreateGrade(ctx, 500, 99, grade.SubjectUnknown); err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}
	entries, err := s.ListAuditEntries(ctx, &audit.QueryFilter{Operation: audit.OpCreateGrade})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Reason != ReasonStudentNotFound {
		t.Fatalf("unexpected audit entries %+v", entries)
	}

	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")
	if ok, err := svc.CreateGrade(ctx, 500, studentID, grade.SubjectUnknown); err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}
	entries, err = s.ListAuditEntries(ctx, &audit.QueryFilter{Operation: audit.OpCreateGrade, StudentID: studentID})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Reason != ReasonOutOfRange {
		t.Fatalf("unexpected audit entries %+v", entries)
	}
}

func TestDeleteGrade(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")

	for _, subj := range grade.Subjects {
		if ok, err := svc.CreateGrade(ctx, 75, studentID, subj); err != nil || !ok {
			t.Fatalf("create %s grade: %v %v", subj, ok, err)
		}
		if ok, err := svc.CreateGrade(ctx, 85, studentID, subj); err != nil || !ok {
			t.Fatalf("create %s grade: %v %v", subj, ok, err)
		}
	}

	for _, subj := range grade.Subjects {
		list, err := s.Grades(subj).ListGradesByStudent(ctx, studentID)
		if err != nil {
			t.Fatal(err)
		}

		owner, err := svc.DeleteGrade(ctx, list[0].ID, subj)
		if err != nil {
			t.Fatal(err)
		}
		if owner != studentID {
			t.Fatalf("%s: expected owner %d, got %d", subj, studentID, owner)
		}
		if n := gradeCount(t, s, subj, studentID); n != 1 {
			t.Fatalf("%s: expected exactly one grade deleted, %d left", subj, n)
		}

		// Deleting again finds nothing.
		owner, err = svc.DeleteGrade(ctx, list[0].ID, subj)
		if err != nil {
			t.Fatal(err)
		}
		if owner != 0 {
			t.Fatalf("%s: expected 0 for a missing grade, got %d", subj, owner)
		}
	}
}

// spyGradeStore counts calls to detect whether a store was consulted.
type spyGradeStore struct {
	grade.Store
	calls int
}

func (s *spyGradeStore) GetGrade(ctx context.Context, gradeID int64) (*grade.Grade, error) {
	s.calls++
	return s.Store.GetGrade(ctx, gradeID)
}

func (s *spyGradeStore) DeleteGrade(ctx context.Context, gradeID int64) error {
	s.calls++
	return s.Store.DeleteGrade(ctx, gradeID)
}

func TestDeleteGrade_UnknownSubjectConsultsNoStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	spies := []*spyGradeStore{
		{Store: s.Grades(grade.Math)},
		{Store: s.Grades(grade.Science)},
		{Store: s.Grades(grade.History)},
	}
	svc, err := New(s, s, spies[0], spies[1], spies[2], WithAuditStore(s))
	if err != nil {
		t.Fatal(err)
	}

	owner, err := svc.DeleteGrade(ctx, 1, grade.SubjectUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if owner != 0 {
		t.Fatalf("expected 0, got %d", owner)
	}
	for _, spy := range spies {
		if spy.calls != 0 {
			t.Fatalf("%s store was consulted %d times", spy.Subject(), spy.calls)
		}
	}
}

func TestStudentGrades(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")

	for _, v := range []float64{80, 90} {
		if ok, err := svc.CreateGrade(ctx, v, studentID, grade.Math); err != nil || !ok {
			t.Fatalf("create grade: %v %v", ok, err)
		}
	}
	if ok, err := svc.CreateGrade(ctx, 70, studentID, grade.History); err != nil || !ok {
		t.Fatalf("create grade: %v %v", ok, err)
	}

	sg, err := svc.StudentGrades(ctx, studentID)
	if err != nil {
		t.Fatal(err)
	}
	if sg.Student.EmailAddress != "eric@example.com" {
		t.Fatalf("unexpected student %+v", sg.Student)
	}
	if len(sg.Math) != 2 || len(sg.Science) != 0 || len(sg.History) != 1 {
		t.Fatalf("unexpected grade counts %d/%d/%d", len(sg.Math), len(sg.Science), len(sg.History))
	}
	if sg.Science == nil {
		t.Fatal("empty subjects should be empty slices")
	}
	if got := sg.Average(grade.Math); got != 85 {
		t.Fatalf("math average = %v, want 85", got)
	}
	if got := sg.Average(grade.Science); got != 0 {
		t.Fatalf("science average = %v, want 0", got)
	}

	_, err = svc.StudentGrades(ctx, studentID+1)
	if !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestFindStudentByEmail(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")

	st, err := svc.FindStudentByEmail(ctx, "eric@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if st.ID != studentID {
		t.Fatalf("expected %d, got %d", studentID, st.ID)
	}

	if _, err := svc.FindStudentByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestAuditTrail(t *testing.T) {
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	svc, s := newTestService(t, WithClock(func() time.Time { return fixed }))
	ctx := WithActor(WithTenant(context.Background(), "school", "district-9"), "registrar@example.com")

	if err := svc.CreateStudent(ctx, "Eric", "Roby", "eric@example.com"); err != nil {
		t.Fatal(err)
	}
	st, err := s.GetStudentByEmail(ctx, "eric@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateGrade(ctx, 90, st.ID, grade.Science); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateGrade(ctx, 190, st.ID, grade.Science); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteStudent(ctx, st.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteStudent(ctx, st.ID); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.AuditEntries(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 audit entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Actor != "registrar@example.com" || e.AppID != "school" || e.TenantID != "district-9" {
			t.Fatalf("scope not recorded: %+v", e)
		}
		if !e.CreatedAt.Equal(fixed) {
			t.Fatalf("clock not used: %v", e.CreatedAt)
		}
	}

	count := func(f *audit.QueryFilter) int64 {
		t.Helper()
		n, err := svc.CountAuditEntries(ctx, f)
		if err != nil {
			t.Fatal(err)
		}
		return n
	}
	if n := count(&audit.QueryFilter{Operation: audit.OpCreateGrade, Outcome: audit.OutcomeRejected}); n != 1 {
		t.Fatalf("expected 1 rejected grade, got %d", n)
	}
	if n := count(&audit.QueryFilter{Operation: audit.OpDeleteStudent, Outcome: audit.OutcomeNoop}); n != 1 {
		t.Fatalf("expected 1 no-op delete, got %d", n)
	}

	purged, err := svc.PurgeAuditEntries(ctx, fixed.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 5 {
		t.Fatalf("expected 5 purged, got %d", purged)
	}
}

func TestAuditDisabled(t *testing.T) {
	ctx := context.Background()
	off := false
	svc, s := newTestService(t, WithConfig(Config{EnableAudit: &off}))

	if err := svc.CreateStudent(ctx, "Eric", "Roby", "eric@example.com"); err != nil {
		t.Fatal(err)
	}
	n, err := s.CountAuditEntries(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no audit entries, got %d", n)
	}
}

func TestAuditQueries_NoAuditStore(t *testing.T) {
	s := memory.New()
	svc, err := New(s, s, s.Grades(grade.Math), s.Grades(grade.Science), s.Grades(grade.History))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AuditEntries(context.Background(), nil); !errors.Is(err, ErrAuditDisabled) {
		t.Fatalf("expected ErrAuditDisabled, got %v", err)
	}
}

// recordingPlugin captures lifecycle events.
type recordingPlugin struct {
	events []string
}

func (p *recordingPlugin) Name() string { return "recorder" }

func (p *recordingPlugin) OnStudentCreated(_ context.Context, s *student.Student) error {
	p.events = append(p.events, "student_created:"+s.EmailAddress)
	return nil
}

func (p *recordingPlugin) OnStudentDeleted(_ context.Context, studentID int64) error {
	p.events = append(p.events, fmt.Sprintf("student_deleted:%d", studentID))
	return nil
}

func (p *recordingPlugin) OnGradeCreated(_ context.Context, g *grade.Grade) error {
	p.events = append(p.events, fmt.Sprintf("grade_created:%s:%v", g.Subject, g.Value))
	return nil
}

func (p *recordingPlugin) OnGradeDeleted(_ context.Context, g *grade.Grade) error {
	p.events = append(p.events, fmt.Sprintf("grade_deleted:%s:%d", g.Subject, g.StudentID))
	return nil
}

func TestPlugins_OnlyCommittedChanges(t *testing.T) {
	ctx := context.Background()
	rec := &recordingPlugin{}
	svc, s := newTestService(t, WithPlugin(rec))

	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")
	_ = svc.CreateStudent(ctx, "Dup", "Licate", "eric@example.com")
	_, _ = svc.CreateGrade(ctx, 60, studentID, grade.History)
	_, _ = svc.CreateGrade(ctx, -1, studentID, grade.History)
	list, _ := s.Grades(grade.History).ListGradesByStudent(ctx, studentID)
	_, _ = svc.DeleteGrade(ctx, list[0].ID, grade.History)
	_ = svc.DeleteStudent(ctx, studentID)
	_ = svc.DeleteStudent(ctx, studentID)

	want := []string{
		"student_created:eric@example.com",
		"grade_created:history:60",
		fmt.Sprintf("grade_deleted:history:%d", studentID),
		fmt.Sprintf("student_deleted:%d", studentID),
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event %d = %q, want %q", i, rec.events[i], want[i])
		}
	}
}

// failingStudents fails every read with an infrastructure error.
type failingStudents struct {
	student.Store
}

var errDiskOnFire = errors.New("disk on fire")

func (failingStudents) GetStudent(context.Context, int64) (*student.Student, error) {
	return nil, errDiskOnFire
}

func TestInfrastructureErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc, err := New(s, failingStudents{Store: s}, s.Grades(grade.Math), s.Grades(grade.Science), s.Grades(grade.History))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CheckIfStudentIsNull(ctx, 1); !errors.Is(err, errDiskOnFire) {
		t.Fatalf("CheckIfStudentIsNull: expected wrapped error, got %v", err)
	}
	if ok, err := svc.CreateGrade(ctx, 50, 1, grade.Math); !errors.Is(err, errDiskOnFire) || ok {
		t.Fatalf("CreateGrade: expected wrapped error, got %v %v", ok, err)
	}
	if err := svc.DeleteStudent(ctx, 1); !errors.Is(err, errDiskOnFire) {
		t.Fatalf("DeleteStudent: expected wrapped error, got %v", err)
	}
}

func TestOperationTimeout(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	var sawDeadline bool
	tx := store.TxFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
		_, sawDeadline = ctx.Deadline()
		return s.InTx(ctx, fn)
	})
	svc, err := New(tx, s, s.Grades(grade.Math), s.Grades(grade.Science), s.Grades(grade.History),
		WithConfig(Config{OperationTimeout: time.Second}),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetGradeBook(ctx); err != nil {
		t.Fatal(err)
	}
	if !sawDeadline {
		t.Fatal("expected the transaction context to carry a deadline")
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc, _ := newTestService(t, WithLogger(logger))

	if ok, err := svc.CreateGrade(context.Background(), 50, 7, grade.Math); err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("grade_rejected")) || !bytes.Contains(buf.Bytes(), []byte("reason="+ReasonStudentNotFound)) {
		t.Fatalf("expected rejection to be logged, got %q", buf.String())
	}
}

func TestStudentGrades_RereadsStore(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	studentID := mustCreateStudent(t, svc, s, "Eric", "Roby", "eric@example.com")

	if ok, err := svc.CreateGrade(ctx, 80, studentID, grade.Math); err != nil || !ok {
		t.Fatalf("create grade: %v %v", ok, err)
	}
	first, err := svc.StudentGrades(ctx, studentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Math) != 1 {
		t.Fatalf("expected 1 math grade, got %d", len(first.Math))
	}

	// A write that bypasses the Service is visible on the next read.
	if err := s.Grades(grade.Math).SaveGrade(ctx, &grade.Grade{StudentID: studentID, Value: 95}); err != nil {
		t.Fatal(err)
	}
	second, err := svc.StudentGrades(ctx, studentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Math) != 2 {
		t.Fatalf("expected 2 math grades after direct write, got %d", len(second.Math))
	}
	if second == first {
		t.Fatal("expected a fresh projection")
	}

	if err := s.DeleteStudent(ctx, studentID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StudentGrades(ctx, studentID); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound after direct delete, got %v", err)
	}
}

// failingGradeDeletes fails every bulk delete.
type failingGradeDeletes struct {
	grade.Store
}

func (failingGradeDeletes) DeleteGradesByStudent(context.Context, int64) error {
	return errDiskOnFire
}

func TestDeleteStudent_RollsBackOnGradeFailure(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc, err := New(s, s, s.Grades(grade.Math), s.Grades(grade.Science),
		failingGradeDeletes{Store: s.Grades(grade.History)}, WithAuditStore(s.Audit()))
	if err != nil {
		t.Fatal(err)
	}
	studentID := mustCreateStudent(t, svc, s, "Chad", "Darby", "chad@example.com")
	for _, subj := range []grade.Subject{grade.Math, grade.Science} {
		if ok, err := svc.CreateGrade(ctx, 70, studentID, subj); err != nil || !ok {
			t.Fatalf("create %s grade: %v %v", subj, ok, err)
		}
	}

	if err := svc.DeleteStudent(ctx, studentID); !errors.Is(err, errDiskOnFire) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	exists, err := svc.CheckIfStudentIsNull(ctx, studentID)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("student should survive a failed delete")
	}
	if n := gradeCount(t, s, grade.Math, studentID); n != 1 {
		t.Fatalf("expected math grade intact, got %d", n)
	}
	if n := gradeCount(t, s, grade.Science, studentID); n != 1 {
		t.Fatalf("expected science grade intact, got %d", n)
	}
	n, err := s.CountAuditEntries(ctx, &audit.QueryFilter{Operation: audit.OpDeleteStudent})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no delete audit entry, got %d", n)
	}
}

// failingAudit fails every append.
type failingAudit struct {
	audit.Store
}

func (failingAudit) CreateAuditEntry(context.Context, *audit.Entry) error {
	return errDiskOnFire
}

func TestCreateGrade_RollsBackOnAuditFailure(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	studentID := mustCreateStudentDirect(t, s, "eric@example.com")

	svc, err := NewFromStore(s, WithAuditStore(failingAudit{Store: s.Audit()}))
	if err != nil {
		t.Fatal(err)
	}

	ok, err := svc.CreateGrade(ctx, 88, studentID, grade.Math)
	if !errors.Is(err, errDiskOnFire) || ok {
		t.Fatalf("expected false with wrapped error, got %v %v", ok, err)
	}
	if n := gradeCount(t, s, grade.Math, studentID); n != 0 {
		t.Fatalf("expected no grade written, got %d", n)
	}
}

func mustCreateStudentDirect(t *testing.T, s *memory.Store, email string) int64 {
	t.Helper()
	st := student.New("Eric", "Roby", email)
	if err := s.SaveStudent(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	return st.ID
}
