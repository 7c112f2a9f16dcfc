package extension

import (
	"log/slog"

	"github.com/xraph/gradebook"
	"github.com/xraph/gradebook/plugin"
	"github.com/xraph/gradebook/store"
)

// ExtOption configures the gradebook Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend. Without it the extension resolves
// a store.Store from the DI container.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDatabase makes the extension build its store on a grove.DB from
// the DI container. An empty name selects the default (unnamed) database.
func WithGroveDatabase(name string) ExtOption {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithServiceOptions adds service-level options.
func WithServiceOptions(opts ...gradebook.Option) ExtOption {
	return func(e *Extension) {
		e.serviceOpts = append(e.serviceOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithBasePath mounts the routes under prefix.
func WithBasePath(prefix string) ExtOption {
	return func(e *Extension) {
		e.config.BasePath = prefix
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
