package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "gradebook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestMigrate_AppliesGroupOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	status, err := s.MigrationStatus(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, "gradebook", status[0].Name)
	assert.Len(t, status[0].Applied, 3)
	assert.Empty(t, status[0].Pending)

	// A second run finds nothing pending and keeps the data.
	gs := s.Grades(grade.Science)
	g := grade.New(grade.Science, 1, 77)
	require.NoError(t, gs.SaveGrade(ctx, g))

	require.NoError(t, s.Migrate(ctx))
	status, err = s.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, status[0].Applied, 3)

	got, err := gs.GetGrade(ctx, g.ID)
	require.NoError(t, err)
	assert.InDelta(t, 77.0, got.Value, 0.0001)
}

func TestGrades_SubjectTablesKeepSeparateIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := grade.New(grade.Math, 1, 90)
	h := grade.New(grade.History, 1, 60)
	require.NoError(t, s.Grades(grade.Math).SaveGrade(ctx, m))
	require.NoError(t, s.Grades(grade.History).SaveGrade(ctx, h))
	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, int64(1), h.ID)

	_, err := s.Grades(grade.Science).GetGrade(ctx, m.ID)
	require.ErrorIs(t, err, grade.ErrNotFound)
}

func TestOpen_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Ping(ctx))
	assert.Equal(t, "sqlite", s.DB().Driver().Name())
}
