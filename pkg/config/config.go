// Package config loads the gateway configuration: defaults, then a YAML or
// JSON file, then MTP_* environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Profiles
const (
	ProfileDev  = "dev"
	ProfileProd = "prod"
)

// Config is the gateway configuration
type Config struct {
	Profile string `yaml:"profile" json:"profile" env:"MTP_PROFILE"`

	Log      LogConfig      `yaml:"log" json:"log"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Push     PushConfig     `yaml:"push" json:"push"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	NATS     NATSConfig     `yaml:"nats" json:"nats"`
	I18n     I18nConfig     `yaml:"i18n" json:"i18n"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level string `yaml:"level" json:"level" env:"MTP_LOG_LEVEL"`
	JSON  bool   `yaml:"json" json:"json" env:"MTP_LOG_JSON"`
}

// HTTPConfig configures the API and static file server
type HTTPConfig struct {
	Addr         string        `yaml:"addr" json:"addr" env:"MTP_HTTP_ADDR"`
	WebRoot      string        `yaml:"webRoot" json:"webRoot" env:"MTP_HTTP_WEB_ROOT"`
	MaxInFlight  int           `yaml:"maxInFlight" json:"maxInFlight" env:"MTP_HTTP_MAX_IN_FLIGHT"`
	ReadTimeout  time.Duration `yaml:"readTimeout" json:"readTimeout" env:"MTP_HTTP_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"writeTimeout" json:"writeTimeout" env:"MTP_HTTP_WRITE_TIMEOUT"`
	// CacheTTL is the max-age of static assets in the prod profile
	CacheTTL       time.Duration `yaml:"cacheTTL" json:"cacheTTL" env:"MTP_HTTP_CACHE_TTL"`
	AllowedOrigins []string      `yaml:"allowedOrigins" json:"allowedOrigins" env:"MTP_HTTP_ALLOWED_ORIGINS" envSeparator:","`
}

// PushConfig configures the websocket listener
type PushConfig struct {
	Addr           string        `yaml:"addr" json:"addr" env:"MTP_PUSH_ADDR"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" json:"writeTimeout" env:"MTP_PUSH_WRITE_TIMEOUT"`
	PingInterval   time.Duration `yaml:"pingInterval" json:"pingInterval" env:"MTP_PUSH_PING_INTERVAL"`
	AllowedOrigins []string      `yaml:"allowedOrigins" json:"allowedOrigins" env:"MTP_PUSH_ALLOWED_ORIGINS" envSeparator:","`
}

// AuthConfig configures token issuing and the account list
type AuthConfig struct {
	Secret        string        `yaml:"secret" json:"secret" env:"MTP_AUTH_SECRET"`
	Issuer        string        `yaml:"issuer" json:"issuer" env:"MTP_AUTH_ISSUER"`
	TokenValidity time.Duration `yaml:"tokenValidity" json:"tokenValidity" env:"MTP_AUTH_TOKEN_VALIDITY"`
	Accounts      []Account     `yaml:"accounts" json:"accounts"`
}

// Account is a login with a bcrypt password hash
type Account struct {
	Login        string   `yaml:"login" json:"login"`
	PasswordHash string   `yaml:"passwordHash" json:"passwordHash"`
	Roles        []string `yaml:"roles" json:"roles"`
}

// DatabaseConfig selects the transaction store
type DatabaseConfig struct {
	Driver  string `yaml:"driver" json:"driver" env:"MTP_DATABASE_DRIVER"`
	DSN     string `yaml:"dsn" json:"dsn" env:"MTP_DATABASE_DSN"`
	Migrate bool   `yaml:"migrate" json:"migrate" env:"MTP_DATABASE_MIGRATE"`
}

// NATSConfig configures the status event bridge
type NATSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled" env:"MTP_NATS_ENABLED"`
	URL      string `yaml:"url" json:"url" env:"MTP_NATS_URL"`
	Subject  string `yaml:"subject" json:"subject" env:"MTP_NATS_SUBJECT"`
	Queue    string `yaml:"queue" json:"queue" env:"MTP_NATS_QUEUE"`
	Embedded bool   `yaml:"embedded" json:"embedded" env:"MTP_NATS_EMBEDDED"`
	// Record persists forwarded events to the store
	Record bool `yaml:"record" json:"record" env:"MTP_NATS_RECORD"`
}

// I18nConfig locates translation parts
type I18nConfig struct {
	Root      string   `yaml:"root" json:"root" env:"MTP_I18N_ROOT"`
	Languages []string `yaml:"languages" json:"languages" env:"MTP_I18N_LANGUAGES" envSeparator:","`
}

// TracingConfig configures OpenTelemetry
type TracingConfig struct {
	Exporter   string  `yaml:"exporter" json:"exporter" env:"MTP_TRACING_EXPORTER"`
	Endpoint   string  `yaml:"endpoint" json:"endpoint" env:"MTP_TRACING_ENDPOINT"`
	SampleRate float64 `yaml:"sampleRate" json:"sampleRate" env:"MTP_TRACING_SAMPLE_RATE"`
}

// Default returns the dev profile defaults
func Default() Config {
	return Config{
		Profile: ProfileDev,
		Log:     LogConfig{Level: "info"},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			WebRoot:      "src/main/webapp",
			MaxInFlight:  1000,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			CacheTTL:     1461 * 24 * time.Hour,
		},
		Push: PushConfig{
			Addr:         ":8081",
			WriteTimeout: 10 * time.Second,
			PingInterval: 30 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:        "mtp-frontend",
			TokenValidity: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Driver:  "sqlite3",
			DSN:     "file:mtp.db?_busy_timeout=5000",
			Migrate: true,
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "mtp.transactions.status",
		},
		I18n: I18nConfig{
			Root:      "src/main/webapp/i18n",
			Languages: []string{"en"},
		},
		Tracing: TracingConfig{
			Exporter:   "none",
			SampleRate: 1.0,
		},
	}
}

// Load builds the configuration from defaults, the file at path (skipped
// when empty) and the environment, then validates it
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = LoadYAML(path, &cfg)
		case ".json":
			err = LoadJSON(path, &cfg)
		default:
			err = fmt.Errorf("unsupported config file type: %s", path)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for missing or inconsistent values
func (c *Config) Validate() error {
	switch c.Profile {
	case ProfileDev, ProfileProd:
	default:
		return fmt.Errorf("unknown profile %q", c.Profile)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.Push.Addr == "" {
		return fmt.Errorf("push.addr is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.IsProd() && len(c.Auth.Secret) < 32 {
		return fmt.Errorf("auth.secret must be at least 32 bytes in the prod profile")
	}
	if c.Auth.TokenValidity <= 0 {
		return fmt.Errorf("auth.tokenValidity must be positive")
	}
	for i, a := range c.Auth.Accounts {
		if a.Login == "" || a.PasswordHash == "" {
			return fmt.Errorf("auth.accounts[%d]: login and passwordHash are required", i)
		}
	}
	if c.Database.Driver == "" || c.Database.DSN == "" {
		return fmt.Errorf("database.driver and database.dsn are required")
	}
	if len(c.I18n.Languages) == 0 {
		return fmt.Errorf("i18n.languages cannot be empty")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sampleRate must be between 0 and 1")
	}
	return nil
}

// IsProd reports whether the prod profile is active
func (c *Config) IsProd() bool {
	return c.Profile == ProfileProd
}
