package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/gradebook"
	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/store/bolt"
	"github.com/xraph/gradebook/store/memory"
	"github.com/xraph/gradebook/store/mongo"
	"github.com/xraph/gradebook/store/postgres"
	"github.com/xraph/gradebook/store/sqlite"
)

// OpenStore opens the backend named by cfg. It does not migrate.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return memory.New(), nil
	case BackendSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case BackendBolt:
		return bolt.Open(cfg.DSN)
	case BackendPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case BackendMongo:
		return mongo.Open(ctx, cfg.DSN, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("invalid backend %q: must be one of %v", cfg.Backend, ValidBackends)
}

// session is an open, migrated store with a Service on top.
type session struct {
	store store.Store
	svc   *gradebook.Service
}

// openSession opens and migrates the configured store and builds a Service.
// The caller must Close the session.
func openSession(ctx context.Context, cfg Config, logger *slog.Logger) (*session, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate %s store: %w", cfg.Backend, err)
	}
	svc, err := gradebook.NewFromStore(st,
		gradebook.WithLogger(logger),
		gradebook.WithConfig(cfg.Service),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &session{store: st, svc: svc}, nil
}

func (s *session) Close(ctx context.Context) error {
	_ = s.svc.Shutdown(ctx)
	return s.store.Close()
}
