// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store kinds accepted by SESSION_STORE.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Backend transports accepted by BACKEND_TRANSPORT.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment ("development", "production", ...).
	Env string `mapstructure:"APP_ENV"`
	// HTTPAddr is the listen address of the dashboard shell.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// LogLevel is "debug" or "info".
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// BackendURL is the RPC base URL (http) or target (grpc). Empty means no backend is provisioned:
	// only demo accounts can sign in.
	BackendURL string `mapstructure:"BACKEND_URL"`
	// BackendAPIKey is sent as the apikey header/metadata on every RPC.
	BackendAPIKey string `mapstructure:"BACKEND_API_KEY"`
	// BackendTransport is "http" (PostgREST-style RPC) or "grpc".
	BackendTransport string `mapstructure:"BACKEND_TRANSPORT"`
	// BackendTimeout bounds each RPC.
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	// BackendGRPCInsecure disables TLS for the grpc transport (local development).
	BackendGRPCInsecure bool `mapstructure:"BACKEND_GRPC_INSECURE"`

	// DemoAccountsEnabled turns the demo phone/PIN table on. Must be false when Env is production.
	DemoAccountsEnabled bool `mapstructure:"DEMO_ACCOUNTS_ENABLED"`
	// DemoAccountsFile optionally replaces the built-in demo table with a YAML seed file.
	DemoAccountsFile string `mapstructure:"DEMO_ACCOUNTS_FILE"`
	// BcryptCost is the cost used to hash demo PINs at startup (4–31).
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// SessionStore selects where the current session is kept: memory, file, redis, postgres.
	SessionStore string `mapstructure:"SESSION_STORE"`
	// SessionFile is the file store path; empty selects the user config dir.
	SessionFile string `mapstructure:"SESSION_FILE"`
	// SessionClientID keys the session row/hash in shared stores (redis, postgres).
	SessionClientID string `mapstructure:"SESSION_CLIENT_ID"`
	// SessionStoreTTL optionally expires the redis key; 0 keeps it until logout.
	SessionStoreTTL time.Duration `mapstructure:"SESSION_STORE_TTL"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	// DatabaseURL is the Postgres DSN for SESSION_STORE=postgres and cmd/migrate.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// OTLPEndpoint enables OTLP export of traces, metrics, and logs when set.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`
	// KafkaBrokers is a comma-separated broker list; when set, session events are also written to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// SessionEventsTopic is the Kafka topic for session events.
	SessionEventsTopic string `mapstructure:"SESSION_EVENTS_TOPIC"`
	// KafkaGroupID is the consumer group of cmd/worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8090")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BACKEND_URL", "")
	v.SetDefault("BACKEND_API_KEY", "")
	v.SetDefault("BACKEND_TRANSPORT", TransportHTTP)
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("BACKEND_GRPC_INSECURE", false)
	v.SetDefault("DEMO_ACCOUNTS_ENABLED", true)
	v.SetDefault("DEMO_ACCOUNTS_FILE", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("SESSION_STORE", StoreFile)
	v.SetDefault("SESSION_FILE", "")
	v.SetDefault("SESSION_CLIENT_ID", "default")
	v.SetDefault("SESSION_STORE_TTL", "0s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "staff-dashboard")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SESSION_EVENTS_TOPIC", "staffdash-session-events")
	v.SetDefault("KAFKA_GROUP_ID", "staffdash-session-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	cfg.BackendTransport = strings.ToLower(strings.TrimSpace(cfg.BackendTransport))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules. Load calls it; it is exported for configs built in code.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.DemoAccountsEnabled && c.IsProduction() {
		return errors.New("config: DEMO_ACCOUNTS_ENABLED must not be true when APP_ENV=production")
	}
	switch c.BackendTransport {
	case TransportHTTP, TransportGRPC:
	default:
		return fmt.Errorf("config: BACKEND_TRANSPORT must be http or grpc, got %q", c.BackendTransport)
	}
	if c.BackendTimeout < 0 {
		return errors.New("config: BACKEND_TIMEOUT must not be negative")
	}
	switch c.SessionStore {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set when SESSION_STORE=redis")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when SESSION_STORE=postgres")
		}
	default:
		return fmt.Errorf("config: SESSION_STORE must be one of memory, file, redis, postgres; got %q", c.SessionStore)
	}
	if c.SessionClientID == "" {
		return errors.New("config: SESSION_CLIENT_ID must not be empty")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// BackendConfigured reports whether a backend URL is set.
func (c *Config) BackendConfigured() bool {
	return strings.TrimSpace(c.BackendURL) != ""
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
