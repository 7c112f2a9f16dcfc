package extension

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/gradebook/store/sqlite"
)

func TestStoreForDB_Sqlite(t *testing.T) {
	ctx := context.Background()

	drv := sqlitedriver.New()
	require.NoError(t, drv.Open(ctx, ":memory:"))
	db, err := grove.Open(drv)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := StoreForDB(db)
	require.NoError(t, err)

	ss, ok := s.(*sqlite.Store)
	require.True(t, ok, "got %T", s)
	assert.Same(t, db, ss.DB())
	require.NoError(t, s.Ping(ctx))
}

func TestWithGroveDatabase(t *testing.T) {
	e := New(WithGroveDatabase("primary"))
	assert.True(t, e.useGrove)
	assert.Equal(t, "primary", e.config.GroveDatabase)

	e = New(WithGroveDatabase(""))
	assert.True(t, e.useGrove)
	assert.Empty(t, e.config.GroveDatabase)
}
