// Package extension provides a Forge extension entry point for the gradebook.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/gradebook"
	"github.com/xraph/gradebook/api"
	"github.com/xraph/gradebook/plugin"
	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/store/mongo"
	"github.com/xraph/gradebook/store/postgres"
	"github.com/xraph/gradebook/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "gradebook"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Student gradebook with math, science and history grades"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the gradebook Service as a Forge extension.
type Extension struct {
	config      Config
	store       store.Store
	svc         *gradebook.Service
	apiHandler  *api.API
	logger      *slog.Logger
	serviceOpts []gradebook.Option
	plugins     []plugin.Plugin
	useGrove    bool
}

// New creates a gradebook Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Service returns the underlying gradebook Service.
func (e *Extension) Service() *gradebook.Service { return e.svc }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It builds the Service, registers it
// in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*gradebook.Service, error) {
		return e.svc, nil
	}); err != nil {
		return fmt.Errorf("gradebook: register service in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	// An explicit WithStore wins over the container.
	if e.store == nil {
		s, err := e.resolveStore(fapp)
		if err != nil {
			return err
		}
		e.store = s
	}

	opts := make([]gradebook.Option, 0, len(e.serviceOpts)+len(e.plugins)+2)
	opts = append(opts, gradebook.WithLogger(logger), gradebook.WithConfig(e.config.Service))
	opts = append(opts, e.serviceOpts...)
	for _, x := range e.plugins {
		opts = append(opts, gradebook.WithPlugin(x))
	}

	svc, err := gradebook.NewFromStore(e.store, opts...)
	if err != nil {
		return fmt.Errorf("gradebook: create service: %w", err)
	}
	e.svc = svc

	e.apiHandler = api.New(svc, fapp.Router())

	if !e.config.DisableRoutes {
		if err := e.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("gradebook: register routes: %w", err)
		}
	}

	return nil
}

// resolveStore builds the store on a grove.DB when one is configured, and
// otherwise resolves a store.Store from the container.
func (e *Extension) resolveStore(fapp forge.App) (store.Store, error) {
	if !e.useGrove && e.config.GroveDatabase == "" {
		s, err := forge.Inject[store.Store](fapp.Container())
		if err != nil {
			return nil, fmt.Errorf("gradebook: resolve store: %w", err)
		}
		return s, nil
	}

	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = forge.InjectNamed[*grove.DB](fapp.Container(), e.config.GroveDatabase)
	} else {
		db, err = forge.Inject[*grove.DB](fapp.Container())
	}
	if err != nil {
		return nil, fmt.Errorf("gradebook: resolve grove database %q: %w", e.config.GroveDatabase, err)
	}
	return StoreForDB(db)
}

// StoreForDB constructs the store matching the driver of db.
func StoreForDB(db *grove.DB) (store.Store, error) {
	switch name := db.Driver().Name(); name {
	case "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("gradebook: unsupported grove driver %q", name)
	}
}

// Start runs migrations if enabled.
func (e *Extension) Start(ctx context.Context) error {
	if e.svc == nil {
		return errors.New("gradebook: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("gradebook: migration failed: %w", err)
		}
	}
	return nil
}

// Stop notifies plugins that the gradebook is shutting down.
func (e *Extension) Stop(ctx context.Context) error {
	if e.svc == nil {
		return nil
	}
	return e.svc.Shutdown(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.svc == nil {
		return errors.New("gradebook: extension not initialized")
	}
	return e.store.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all gradebook API routes into a Forge router,
// under BasePath when one is configured.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler == nil {
		return nil
	}
	if e.config.BasePath != "" {
		router = router.Group(e.config.BasePath)
	}
	return e.apiHandler.RegisterRoutes(router)
}
