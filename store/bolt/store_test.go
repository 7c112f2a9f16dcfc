package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/store/storetest"
	"github.com/xraph/gradebook/student"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gradebook.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestUnmigratedStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "empty.bolt"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetStudent(context.Background(), 1)
	require.ErrorIs(t, err, errNotOpen)
}

func TestEmailIndexFollowsUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	st := student.New("Eric", "Roby", "eric@example.com")
	require.NoError(t, s.SaveStudent(ctx, st))

	st.EmailAddress = "eric.roby@example.com"
	require.NoError(t, s.SaveStudent(ctx, st))

	_, err := s.GetStudentByEmail(ctx, "eric@example.com")
	assert.ErrorIs(t, err, student.ErrNotFound)

	got, err := s.GetStudentByEmail(ctx, "eric.roby@example.com")
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	// The old address is free again.
	require.NoError(t, s.SaveStudent(ctx, student.New("Other", "Eric", "eric@example.com")))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gradebook.bolt")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	st := student.New("Chad", "Darby", "chad@example.com")
	require.NoError(t, s.SaveStudent(ctx, st))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))

	got, err := s.GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got)
}
