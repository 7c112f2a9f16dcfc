package mongo

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/store/storetest"
)

// mongoURIEnv names a replica set to test against, e.g.
// mongodb://localhost:27017/?replicaSet=rs0. Tests are skipped without it.
const mongoURIEnv = "GRADEBOOK_MONGO_URI"

var dbSeq atomic.Int64

func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv(mongoURIEnv)
	if uri == "" {
		t.Skipf("%s not set", mongoURIEnv)
	}

	ctx := context.Background()
	name := fmt.Sprintf("gradebook_test_%d_%d", time.Now().UnixNano(), dbSeq.Add(1))
	s, err := Open(ctx, uri, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Database().Drop(context.Background())
		_ = s.Close()
	})
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestMigrateCreatesEmailIndex(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// The group is recorded as applied, so a second run is a no-op.
	require.NoError(t, s.Migrate(ctx))
	require.Equal(t, "mongo", s.DB().Driver().Name())

	specs, err := s.Database().Collection(colStudents).Indexes().ListSpecifications(ctx)
	require.NoError(t, err)

	var unique bool
	for _, spec := range specs {
		if spec.Unique != nil && *spec.Unique {
			unique = true
		}
	}
	require.True(t, unique, "email index should be unique")
}
