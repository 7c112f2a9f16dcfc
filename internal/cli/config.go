package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/xraph/gradebook"
)

// Backends the CLI can open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// ValidBackends lists the accepted backend names.
var ValidBackends = []string{BackendMemory, BackendSQLite, BackendBolt, BackendPostgres, BackendMongo}

// Environment variables read after the config file.
const (
	EnvBackend          = "GRADEBOOK_BACKEND"
	EnvDSN              = "GRADEBOOK_DSN"
	EnvMongoDatabase    = "GRADEBOOK_MONGO_DATABASE"
	EnvAddr             = "GRADEBOOK_ADDR"
	EnvActor            = "GRADEBOOK_ACTOR"
	EnvEnableAudit      = "GRADEBOOK_ENABLE_AUDIT"
	EnvOperationTimeout = "GRADEBOOK_OPERATION_TIMEOUT"
)

// Config is the CLI configuration. It is read from a YAML file, then
// GRADEBOOK_* environment variables (optionally from a .env file), then
// command-line flags, each layer overriding the previous one.
type Config struct {
	// Backend is one of ValidBackends.
	Backend string `yaml:"backend"`

	// DSN locates the database: a file path for sqlite and bolt, a
	// connection string for postgres and mongo. Unused for memory.
	DSN string `yaml:"dsn"`

	// MongoDatabase names the MongoDB database.
	MongoDatabase string `yaml:"mongo_database"`

	// Addr is the listen address of the serve command.
	Addr string `yaml:"addr"`

	// Actor is recorded on audit entries written by the CLI.
	Actor string `yaml:"actor"`

	// Service configures the gradebook Service.
	Service gradebook.Config `yaml:"service"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendSQLite,
		DSN:           "gradebook.db",
		MongoDatabase: "gradebook",
		Addr:          ":8080",
		Actor:         "cli",
		Service:       gradebook.DefaultConfig(),
	}
}

// LoadConfig builds a Config from defaults, the YAML file at path and the
// environment. An empty path skips the file; a missing envFile is ignored.
func LoadConfig(path, envFile string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvDSN); v != "" {
		c.DSN = v
	}
	if v := os.Getenv(EnvMongoDatabase); v != "" {
		c.MongoDatabase = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvActor); v != "" {
		c.Actor = v
	}
	if v := os.Getenv(EnvEnableAudit); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEnableAudit, err)
		}
		c.Service.EnableAudit = &b
	}
	if v := os.Getenv(EnvOperationTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvOperationTimeout, err)
		}
		c.Service.OperationTimeout = d
	}
	return nil
}

// Validate checks the backend name and that a DSN is present where one is
// needed.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendSQLite, BackendBolt, BackendPostgres:
	case BackendMongo:
		if c.MongoDatabase == "" {
			return errors.New("mongo backend needs mongo_database")
		}
	default:
		return fmt.Errorf("invalid backend %q: must be one of %v", c.Backend, ValidBackends)
	}
	if c.DSN == "" {
		return fmt.Errorf("%s backend needs a dsn", c.Backend)
	}
	return nil
}
