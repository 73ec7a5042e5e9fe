// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), loads them into structured Go types and validates them so the
// app fails fast on bad config.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map platform variables (PORT, DATABASE_URL, ...) and prefixed
//     IBAN_* variables into a structured config.
//   - Provide sane defaults so a bare `ibanmanager serve` runs locally
//     against a SQLite file.
//   - Validate required values.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Keys are read from two sources, in order:

	1. Platform variables without prefix, the ones a PaaS injects:
	   PORT -> server.port, DATABASE_URL -> database.url, ...
	2. Prefixed variables, IBAN_<SECTION>__<KEY>. A double underscore is
	   the nesting delimiter, single underscores stay part of the key:
	   IBAN_SERVER__READ_TIMEOUT -> server.read_timeout
	   IBAN_OBSERVABILITY__LOGGING__LEVEL -> observability.logging.level

	Later sources win.
*/

// EnvPrefix is the prefix of application specific environment variables.
const EnvPrefix = "IBAN_"

// ServiceName identifies this service in logs and APM.
const ServiceName = "iban-manager"

// platformKeys maps unprefixed variables onto config keys.
var platformKeys = map[string]string{
	"PORT":                  "server.port",
	"DATABASE_URL":          "database.url",
	"REDIS_URL":             "redis.address",
	"REDIS_ADDRESS":         "redis.address",
	"NEW_RELIC_LICENSE_KEY": "observability.new_relic.license_key",
	"APP_ENV":               "primary.env",
}

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis"`
	RateLimit     RateLimitConfig      `koanf:"ratelimit"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required,numeric"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required,min=1"`

	// StaticDir is the directory served for every path outside the API.
	StaticDir string `koanf:"static_dir"`
}

// DatabaseConfig selects and tunes the relational store.
//
// An empty URL selects the local SQLite file at SQLitePath.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	SQLitePath      string `koanf:"sqlite_path" validate:"required"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"min=0"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"min=0"`
}

// RedisConfig contains Redis connection details.
// Address is either "host:port" or a redis:// URL. Empty disables Redis.
type RedisConfig struct {
	Address string `koanf:"address"`
}

// RateLimitConfig throttles the API per client IP.
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests" validate:"min=0"`
	Window   time.Duration `koanf:"window"`
}

// Driver names the store backing the repositories.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Driver reports which store the URL selects.
func (c DatabaseConfig) Driver() (Driver, error) {
	if c.URL == "" {
		return DriverSQLite, nil
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}
}

// defaultConfig is the base the environment is merged onto.
func defaultConfig() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:               "5000",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"*"},
			StaticDir:          "static",
		},
		Database: DatabaseConfig{
			SQLitePath:      "database/app.db",
			AutoMigrate:     true,
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 300,
			ConnMaxIdleTime: 300,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   time.Minute,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// LoadConfig loads configuration from environment variables, unmarshals it
// onto the defaults, validates it and returns the result.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	// Platform variables. Returning an empty key makes koanf skip the var,
	// which also keeps blank variables from wiping defaults.
	err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return platformKeys[key], value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load platform env variables: %w", err)
	}

	err = k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		return strings.ReplaceAll(key, "__", "."), value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load %s env variables: %w", EnvPrefix, err)
	}

	mainConfig := defaultConfig()

	// Unmarshal only overwrites keys that are present, so defaults survive.
	// Decoding is weak so "8080" lands in an int. Comma separated values
	// become slices and "30s" becomes a time.Duration.
	err = k.UnmarshalWithConf("", mainConfig, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           mainConfig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := mainConfig.Database.Driver(); err != nil {
		return nil, err
	}

	// Set default observability config if not provided.
	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment always follow the primary config so
	// logs and traces are labeled consistently.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
