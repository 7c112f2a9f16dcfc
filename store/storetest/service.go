package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/gradebook"
	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/store"
)

// testService drives the gradebook service end to end on the backend.
func testService(t *testing.T, s store.Store) {
	ctx := context.Background()
	svc, err := gradebook.NewFromStore(s)
	require.NoError(t, err)

	require.NoError(t, svc.CreateStudent(ctx, "Eric", "Roby", "eric@example.com"))
	require.NoError(t, svc.CreateStudent(ctx, "Chad", "Darby", "chad@example.com"))
	require.ErrorIs(t, svc.CreateStudent(ctx, "Chad", "Again", "chad@example.com"), gradebook.ErrDuplicateEmail)

	eric, err := svc.FindStudentByEmail(ctx, "eric@example.com")
	require.NoError(t, err)
	chad, err := svc.FindStudentByEmail(ctx, "chad@example.com")
	require.NoError(t, err)

	book, err := svc.GetGradeBook(ctx)
	require.NoError(t, err)
	require.Len(t, book, 2)
	assert.Equal(t, eric.ID, book[0].ID)

	exists, err := svc.CheckIfStudentIsNull(ctx, chad.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	for _, subj := range grade.Subjects {
		ok, err := svc.CreateGrade(ctx, 80.5, chad.ID, subj)
		require.NoError(t, err)
		assert.True(t, ok, subj.String())
	}
	ok, err := svc.CreateGrade(ctx, 100, eric.ID, grade.Math)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CreateGrade(ctx, 100.01, chad.ID, grade.Math)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.CreateGrade(ctx, 50, 9999, grade.Math)
	require.NoError(t, err)
	assert.False(t, ok)

	sg, err := svc.StudentGrades(ctx, chad.ID)
	require.NoError(t, err)
	require.Len(t, sg.Math, 1)
	require.Len(t, sg.Science, 1)
	require.Len(t, sg.History, 1)

	owner, err := svc.DeleteGrade(ctx, sg.Science[0].ID, grade.Science)
	require.NoError(t, err)
	assert.Equal(t, chad.ID, owner)

	owner, err = svc.DeleteGrade(ctx, sg.Science[0].ID, grade.Science)
	require.NoError(t, err)
	assert.Zero(t, owner)

	require.NoError(t, svc.DeleteStudent(ctx, chad.ID))
	exists, err = svc.CheckIfStudentIsNull(ctx, chad.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	for _, subj := range grade.Subjects {
		left, err := s.Grades(subj).ListGradesByStudent(ctx, chad.ID)
		require.NoError(t, err)
		assert.Empty(t, left, subj.String())
	}

	// Eric's grade survives Chad's cascade.
	sg, err = svc.StudentGrades(ctx, eric.ID)
	require.NoError(t, err)
	assert.Len(t, sg.Math, 1)

	rejected, err := svc.CountAuditEntries(ctx, &audit.QueryFilter{Outcome: audit.OutcomeRejected})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rejected)
}
