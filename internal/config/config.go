// Package config loads service configuration in three layers: built-in
// defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/kdimtricp/cvat-api/internal/validation"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cvat-api/config.yaml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Storage  StorageConfig  `koanf:"storage"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

type DatabaseConfig struct {
	Type       string `koanf:"type" validate:"oneof=sqlite postgres"`
	Host       string `koanf:"host"`
	Port       int    `koanf:"port" validate:"min=0,max=65535"`
	User       string `koanf:"user"`
	Password   string `koanf:"password"`
	Name       string `koanf:"name"`
	SQLitePath string `koanf:"path"`
	Migrate    bool   `koanf:"migrate"`
}

type SecurityConfig struct {
	// APISecret lets trusted callers skip token and project checks.
	APISecret string        `koanf:"api_secret"`
	JWTSecret string        `koanf:"jwt_secret" validate:"required"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type StorageConfig struct {
	// FramesDir is the root the task data directories live under.
	FramesDir string `koanf:"frames_dir"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              5000,
			ReadHeaderTimeout: 10 * time.Second,
			CORSOrigins:       []string{},
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
		},
		Database: DatabaseConfig{
			Type:       "postgres",
			Host:       "localhost",
			Port:       5432,
			User:       "cvat",
			Name:       "cvat",
			SQLitePath: "./cvat.db",
			Migrate:    false,
		},
		Security: SecurityConfig{
			JWTSecret: "CVAT-API",
			TokenTTL:  365 * 24 * time.Hour,
		},
		Storage: StorageConfig{
			FramesDir: "/home/django/data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envKeys maps the environment variables the service has always read onto
// config paths.
var envKeys = map[string]string{
	"PORT":                "server.port",
	"CORS_ORIGINS":        "server.cors_origins",
	"RATE_LIMIT_REQUESTS": "server.rate_limit_requests",
	"RATE_LIMIT_WINDOW":   "server.rate_limit_window",
	"DB_TYPE":             "database.type",
	"DB_HOST":             "database.host",
	"DB_HOST_IP":          "database.host",
	"DB_PORT":             "database.port",
	"DB_USER":             "database.user",
	"DB_PASSWORD":         "database.password",
	"DB_NAME":             "database.name",
	"DB_PATH":             "database.path",
	"DB_MIGRATE":          "database.migrate",
	"API_SECRET":          "security.api_secret",
	"JWT_SECRET":          "security.jwt_secret",
	"TOKEN_TTL":           "security.token_ttl",
	"FRAMES_DIR":          "storage.frames_dir",
	"LOG_LEVEL":           "logging.level",
	"LOG_FORMAT":          "logging.format",
	"LOG_CALLER":          "logging.caller",
}

var sliceKeys = []string{"server.cors_origins"}

// Load builds the configuration: defaults, then the config file if one
// exists, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if c.Database.Type == "postgres" && c.Database.Host == "" {
		return fmt.Errorf("database.host is required for postgres")
	}
	return nil
}

func envTransform(key string) string {
	return envKeys[key]
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// splitSlices turns comma-separated env values into string slices.
func splitSlices(k *koanf.Koanf) error {
	for _, path := range sliceKeys {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
