// Package storetest provides a conformance suite that every gradebook
// backend runs from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/id"
	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/student"
)

// Factory returns a fresh, migrated, empty store. The factory is
// responsible for closing it when the test ends.
type Factory func(t *testing.T) store.Store

// Run runs the whole suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("StudentCRUD", func(t *testing.T) { testStudentCRUD(t, newStore(t)) })
	t.Run("StudentDuplicateEmail", func(t *testing.T) { testStudentDuplicateEmail(t, newStore(t)) })
	t.Run("StudentNotFound", func(t *testing.T) { testStudentNotFound(t, newStore(t)) })
	t.Run("ListStudentsOrdered", func(t *testing.T) { testListStudentsOrdered(t, newStore(t)) })
	t.Run("GradeCRUD", func(t *testing.T) { testGradeCRUD(t, newStore(t)) })
	t.Run("GradeIDSpacesIndependent", func(t *testing.T) { testGradeIDSpaces(t, newStore(t)) })
	t.Run("DeleteGradesByStudent", func(t *testing.T) { testDeleteGradesByStudent(t, newStore(t)) })
	t.Run("UnknownSubjectHasNoStore", func(t *testing.T) { testUnknownSubject(t, newStore(t)) })
	t.Run("TxCommit", func(t *testing.T) { testTxCommit(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
	t.Run("TxNested", func(t *testing.T) { testTxNested(t, newStore(t)) })
	t.Run("AuditEntries", func(t *testing.T) { testAuditEntries(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
	t.Run("MigrateIdempotent", func(t *testing.T) { testMigrateIdempotent(t, newStore(t)) })
	t.Run("Service", func(t *testing.T) { testService(t, newStore(t)) })
}

func testStudentCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	students := s.Students()

	st := student.New("Eric", "Roby", "eric.roby@luv2code_school.com")
	require.NoError(t, students.SaveStudent(ctx, st))
	require.NotZero(t, st.ID, "id should be assigned on insert")

	got, err := students.GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got)

	got, err = students.GetStudentByEmail(ctx, "eric.roby@luv2code_school.com")
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	st.FirstName = "Erik"
	st.EmailAddress = "erik.roby@luv2code_school.com"
	require.NoError(t, students.SaveStudent(ctx, st))

	got, err = students.GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Erik", got.FirstName)

	_, err = students.GetStudentByEmail(ctx, "eric.roby@luv2code_school.com")
	require.ErrorIs(t, err, student.ErrNotFound, "old email should be released")

	require.NoError(t, students.DeleteStudent(ctx, st.ID))
	_, err = students.GetStudent(ctx, st.ID)
	require.ErrorIs(t, err, student.ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, students.DeleteStudent(ctx, st.ID))
}

func testStudentDuplicateEmail(t *testing.T, s store.Store) {
	ctx := context.Background()
	students := s.Students()

	require.NoError(t, students.SaveStudent(ctx, student.New("Chad", "Darby", "chad@example.com")))

	err := students.SaveStudent(ctx, student.New("Chad", "Clone", "chad@example.com"))
	require.ErrorIs(t, err, student.ErrDuplicateEmail)

	other := student.New("Other", "Person", "other@example.com")
	require.NoError(t, students.SaveStudent(ctx, other))
	other.EmailAddress = "chad@example.com"
	require.ErrorIs(t, students.SaveStudent(ctx, other), student.ErrDuplicateEmail)

	all, err := students.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testStudentNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.Students().GetStudent(ctx, 404)
	require.ErrorIs(t, err, student.ErrNotFound)

	_, err = s.Students().GetStudentByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, student.ErrNotFound)

	ghost := &student.Student{ID: 404, FirstName: "No", LastName: "One", EmailAddress: "ghost@example.com"}
	require.ErrorIs(t, s.Students().SaveStudent(ctx, ghost), student.ErrNotFound)

	list, err := s.Students().ListStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testListStudentsOrdered(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, s.Students().SaveStudent(ctx, student.New("F", "L", email)))
	}

	list, err := s.Students().ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}
	assert.Equal(t, "a@example.com", list[0].EmailAddress)
}

func testGradeCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, subj := range grade.Subjects {
		t.Run(subj.String(), func(t *testing.T) {
			grades := s.Grades(subj)
			require.NotNil(t, grades)
			require.Equal(t, subj, grades.Subject())

			g := grade.New(grade.SubjectUnknown, 1, 80.5)
			require.NoError(t, grades.SaveGrade(ctx, g))
			require.NotZero(t, g.ID)
			assert.Equal(t, subj, g.Subject, "store should stamp its subject")

			got, err := grades.GetGrade(ctx, g.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.StudentID)
			assert.InDelta(t, 80.5, got.Value, 1e-9)
			assert.Equal(t, subj, got.Subject)

			g.Value = 95
			require.NoError(t, grades.SaveGrade(ctx, g))
			got, err = grades.GetGrade(ctx, g.ID)
			require.NoError(t, err)
			assert.InDelta(t, 95.0, got.Value, 1e-9)

			require.NoError(t, grades.DeleteGrade(ctx, g.ID))
			_, err = grades.GetGrade(ctx, g.ID)
			require.ErrorIs(t, err, grade.ErrNotFound)
			require.NoError(t, grades.DeleteGrade(ctx, g.ID))

			missing := &grade.Grade{ID: 9999, StudentID: 1, Value: 10}
			require.ErrorIs(t, grades.SaveGrade(ctx, missing), grade.ErrNotFound)
		})
	}
}

func testGradeIDSpaces(t *testing.T, s store.Store) {
	ctx := context.Background()

	m := grade.New(grade.Math, 1, 50)
	require.NoError(t, s.Grades(grade.Math).SaveGrade(ctx, m))

	h := grade.New(grade.History, 1, 60)
	require.NoError(t, s.Grades(grade.History).SaveGrade(ctx, h))

	// A history id must not resolve in the science store.
	_, err := s.Grades(grade.Science).GetGrade(ctx, h.ID)
	require.ErrorIs(t, err, grade.ErrNotFound)

	// Deleting the math grade leaves the history grade alone even if the
	// numeric ids coincide.
	require.NoError(t, s.Grades(grade.Math).DeleteGrade(ctx, m.ID))
	_, err = s.Grades(grade.History).GetGrade(ctx, h.ID)
	require.NoError(t, err)
}

func testDeleteGradesByStudent(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, subj := range grade.Subjects {
		gs := s.Grades(subj)
		require.NoError(t, gs.SaveGrade(ctx, grade.New(subj, 1, 70)))
		require.NoError(t, gs.SaveGrade(ctx, grade.New(subj, 1, 75)))
		require.NoError(t, gs.SaveGrade(ctx, grade.New(subj, 2, 90)))
	}

	list, err := s.Grades(grade.Science).ListGradesByStudent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Less(t, list[0].ID, list[1].ID)

	for _, subj := range grade.Subjects {
		require.NoError(t, s.Grades(subj).DeleteGradesByStudent(ctx, 1))
		// No grades left is a no-op.
		require.NoError(t, s.Grades(subj).DeleteGradesByStudent(ctx, 1))
	}

	for _, subj := range grade.Subjects {
		left, err := s.Grades(subj).ListGradesByStudent(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, left, "subject %s", subj)

		other, err := s.Grades(subj).ListGradesByStudent(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, other, 1, "subject %s", subj)
	}
}

func testUnknownSubject(t *testing.T, s store.Store) {
	assert.Nil(t, s.Grades(grade.SubjectUnknown))
	assert.Nil(t, s.Grades(grade.Subject(99)))
}

func testTxCommit(t *testing.T, s store.Store) {
	ctx := context.Background()

	var studentID int64
	err := s.InTx(ctx, func(ctx context.Context) error {
		st := student.New("Tx", "Commit", "commit@example.com")
		if err := s.Students().SaveStudent(ctx, st); err != nil {
			return err
		}
		studentID = st.ID

		// Reads inside the transaction see its own writes.
		if _, err := s.Students().GetStudent(ctx, st.ID); err != nil {
			return err
		}
		return s.Grades(grade.Math).SaveGrade(ctx, grade.New(grade.Math, st.ID, 88))
	})
	require.NoError(t, err)

	_, err = s.Students().GetStudent(ctx, studentID)
	require.NoError(t, err)
	grades, err := s.Grades(grade.Math).ListGradesByStudent(ctx, studentID)
	require.NoError(t, err)
	assert.Len(t, grades, 1)
}

func testTxRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context) error {
		st := student.New("Tx", "Rollback", "rollback@example.com")
		if err := s.Students().SaveStudent(ctx, st); err != nil {
			return err
		}
		if err := s.Grades(grade.History).SaveGrade(ctx, grade.New(grade.History, st.ID, 42)); err != nil {
			return err
		}
		entry := &audit.Entry{
			ID:        id.NewAuditID(),
			Operation: audit.OpCreateStudent,
			Outcome:   audit.OutcomeApplied,
			StudentID: st.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.Audit().CreateAuditEntry(ctx, entry); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	_, err = s.Students().GetStudentByEmail(ctx, "rollback@example.com")
	require.ErrorIs(t, err, student.ErrNotFound)

	list, err := s.Students().ListStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	n, err := s.Audit().CountAuditEntries(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testTxNested(t *testing.T, s store.Store) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context) error {
		inner := s.InTx(ctx, func(ctx context.Context) error {
			return s.Students().SaveStudent(ctx, student.New("In", "Ner", "inner@example.com"))
		})
		if inner != nil {
			return inner
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	// The inner scope joined the outer one, so its write is rolled back too.
	_, err = s.Students().GetStudentByEmail(ctx, "inner@example.com")
	require.ErrorIs(t, err, student.ErrNotFound)
}

func testAuditEntries(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := s.Audit()

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	entries := []*audit.Entry{
		{Operation: audit.OpCreateStudent, Outcome: audit.OutcomeApplied, StudentID: 1, TenantID: "t1", Actor: "alice", CreatedAt: base},
		{Operation: audit.OpCreateGrade, Outcome: audit.OutcomeApplied, StudentID: 1, GradeID: 1, Subject: "math", TenantID: "t1", CreatedAt: base.Add(time.Minute)},
		{Operation: audit.OpCreateGrade, Outcome: audit.OutcomeRejected, StudentID: 1, Reason: "grade_out_of_range", TenantID: "t1", CreatedAt: base.Add(2 * time.Minute)},
		{Operation: audit.OpDeleteStudent, Outcome: audit.OutcomeNoop, StudentID: 9, TenantID: "t2", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range entries {
		e.ID = id.NewAuditID()
		require.NoError(t, a.CreateAuditEntry(ctx, e))
	}

	got, err := a.GetAuditEntry(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Actor)
	assert.Equal(t, audit.OpCreateStudent, got.Operation)
	assert.True(t, got.CreatedAt.Equal(base), "created_at round trip: %v", got.CreatedAt)

	_, err = a.GetAuditEntry(ctx, id.NewAuditID())
	require.ErrorIs(t, err, audit.ErrNotFound)

	all, err := a.ListAuditEntries(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, e := range all {
		assert.Equal(t, entries[i].ID.String(), e.ID.String(), "entries must be oldest first")
	}

	grades, err := a.ListAuditEntries(ctx, &audit.QueryFilter{Operation: audit.OpCreateGrade})
	require.NoError(t, err)
	assert.Len(t, grades, 2)

	rejected, err := a.CountAuditEntries(ctx, &audit.QueryFilter{Outcome: audit.OutcomeRejected})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rejected)

	byTenant, err := a.CountAuditEntries(ctx, &audit.QueryFilter{TenantID: "t1", StudentID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), byTenant)

	after := base.Add(30 * time.Second)
	before := base.Add(150 * time.Second)
	window, err := a.ListAuditEntries(ctx, &audit.QueryFilter{After: &after, Before: &before})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	purged, err := a.PurgeAuditEntries(ctx, base.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	left, err := a.CountAuditEntries(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), left)
}

func testMigrateIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Students().SaveStudent(ctx, student.New("Keep", "Me", "keep@example.com")))
	require.NoError(t, s.Migrate(ctx))

	_, err := s.Students().GetStudentByEmail(ctx, "keep@example.com")
	require.NoError(t, err, "migrating twice must not drop data")
}
