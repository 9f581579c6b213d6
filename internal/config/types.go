package config

import (
	"time"

	"github.com/TakashiAihara/preppin-sub000/internal/naming"
)

// Config holds the application configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Registry      RegistryConfig      `mapstructure:"registry"`
	Naming        naming.Config       `mapstructure:"naming"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// PoolConfig holds connection pool parameters.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open" validate:"gte=0"`
	MaxIdle     int           `mapstructure:"max_idle" validate:"gte=0"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime" validate:"gte=0"`
}

// DatabaseConfig holds Postgres connection parameters. The database is
// optional: with neither a DSN nor a host, entity queries are disabled.
type DatabaseConfig struct {
	// DSN is a complete Postgres URL or keyword/value string. It overrides
	// the discrete fields.
	DSN string `mapstructure:"dsn"`
	// DSNFile is a path to a file holding the DSN. "@-" reads stdin.
	DSNFile string `mapstructure:"dsn_file"`

	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	PasswordFile   string `mapstructure:"password_file"`
	PasswordPrompt bool   `mapstructure:"password_prompt"`
	Database       string `mapstructure:"database"`
	SSLMode        string `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	Pool PoolConfig `mapstructure:"pool"`

	// ConnectionTimeout is the max time to wait for the database on startup.
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout" validate:"gte=0"`
	// ConnectionRetryInterval is the initial interval between connection retries.
	ConnectionRetryInterval time.Duration `mapstructure:"connection_retry_interval" validate:"gte=0"`

	MigrateOnStart bool `mapstructure:"migrate_on_start"`
}

// AuthConfig holds bearer token verification parameters.
type AuthConfig struct {
	OIDCEnabled       bool          `mapstructure:"oidc_enabled"`
	OIDCIssuerURL     string        `mapstructure:"oidc_issuer_url"`
	OIDCAudience      string        `mapstructure:"oidc_audience"`
	OIDCClockSkew     time.Duration `mapstructure:"oidc_clock_skew" validate:"gte=0"`
	OIDCSkipTLSVerify bool          `mapstructure:"oidc_skip_tls_verify"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes" validate:"gte=0"`
	GraphQLEnabled     bool          `mapstructure:"graphql_enabled"`
	PlaygroundEnabled  bool          `mapstructure:"playground_enabled"`
	Auth               AuthConfig    `mapstructure:"auth"`
	RateLimitEnabled   bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRPS       float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	CORSEnabled        bool          `mapstructure:"cors_enabled"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	CORSAllowedMethods []string      `mapstructure:"cors_allowed_methods"`
	CORSAllowedHeaders []string      `mapstructure:"cors_allowed_headers"`
	CORSExposeHeaders  []string      `mapstructure:"cors_expose_headers"`
	CORSAllowCreds     bool          `mapstructure:"cors_allow_credentials"`
	CORSMaxAge         int           `mapstructure:"cors_max_age" validate:"gte=0"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
	HealthCheckTimeout time.Duration `mapstructure:"health_check_timeout" validate:"gte=0"`
}

// RegistryConfig controls the schema registry.
type RegistryConfig struct {
	// WarmOnStart builds every schema before the server accepts traffic.
	WarmOnStart bool `mapstructure:"warm_on_start"`
	// MaterializeDefaults fills defaulted fields into validated create
	// payloads unless the request overrides it.
	MaterializeDefaults bool `mapstructure:"materialize_defaults"`
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	Level          string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format         string `mapstructure:"format" validate:"oneof=json text"`
	ExportsEnabled bool   `mapstructure:"exports_enabled"` // OTLP log export
}

// ObservabilityConfig holds observability parameters.
type ObservabilityConfig struct {
	ServiceName         string        `mapstructure:"service_name" validate:"required"`
	ServiceVersion      string        `mapstructure:"service_version"`
	Environment         string        `mapstructure:"environment"`
	MetricsEnabled      bool          `mapstructure:"metrics_enabled"`
	TracingEnabled      bool          `mapstructure:"tracing_enabled"`
	TraceSampleRatio    float64       `mapstructure:"trace_sample_ratio" validate:"gte=0,lte=1"`
	SQLCommenterEnabled bool          `mapstructure:"sqlcommenter_enabled"`
	Logging             LoggingConfig `mapstructure:"logging"`

	// OTLP holds defaults for every exported signal.
	OTLP OTLPConfig `mapstructure:"otlp"`

	Traces *OTLPConfig `mapstructure:"traces,omitempty"`
	Logs   *OTLPConfig `mapstructure:"logs,omitempty"`
}

// OTLPConfig holds OTLP exporter configuration.
type OTLPConfig struct {
	Endpoint          string            `mapstructure:"endpoint"`
	Protocol          string            `mapstructure:"protocol" validate:"omitempty,oneof=grpc http/protobuf"`
	Insecure          bool              `mapstructure:"insecure"`
	TLSCertFile       string            `mapstructure:"tls_cert_file"`
	TLSClientCertFile string            `mapstructure:"tls_client_cert_file"`
	TLSClientKeyFile  string            `mapstructure:"tls_client_key_file"`
	Headers           map[string]string `mapstructure:"headers"`
	Timeout           time.Duration     `mapstructure:"timeout" validate:"gte=0"`
	Compression       string            `mapstructure:"compression" validate:"omitempty,oneof=none gzip"`
	RetryEnabled      bool              `mapstructure:"retry_enabled"`
	RetryMaxAttempts  int               `mapstructure:"retry_max_attempts" validate:"gte=0"`
}

// TracesConfig returns the effective OTLP config for traces.
func (c *ObservabilityConfig) TracesConfig() OTLPConfig {
	if c.Traces != nil {
		return mergeOTLPConfigs(c.OTLP, *c.Traces)
	}
	return c.OTLP
}

// LogsConfig returns the effective OTLP config for logs.
func (c *ObservabilityConfig) LogsConfig() OTLPConfig {
	if c.Logs != nil {
		return mergeOTLPConfigs(c.OTLP, *c.Logs)
	}
	return c.OTLP
}

// mergeOTLPConfigs lays the non-zero settings of a signal override over
// the global defaults. Insecure always comes from the override.
func mergeOTLPConfigs(base, override OTLPConfig) OTLPConfig {
	out := base
	if override.Endpoint != "" {
		out.Endpoint = override.Endpoint
	}
	if override.Protocol != "" {
		out.Protocol = override.Protocol
	}
	out.Insecure = override.Insecure
	if override.TLSCertFile != "" {
		out.TLSCertFile = override.TLSCertFile
	}
	if override.TLSClientCertFile != "" {
		out.TLSClientCertFile = override.TLSClientCertFile
	}
	if override.TLSClientKeyFile != "" {
		out.TLSClientKeyFile = override.TLSClientKeyFile
	}
	if override.Headers != nil {
		out.Headers = make(map[string]string, len(base.Headers)+len(override.Headers))
		for k, v := range base.Headers {
			out.Headers[k] = v
		}
		for k, v := range override.Headers {
			out.Headers[k] = v
		}
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	if override.Compression != "" {
		out.Compression = override.Compression
	}
	if override.RetryMaxAttempts != 0 {
		out.RetryEnabled = override.RetryEnabled
		out.RetryMaxAttempts = override.RetryMaxAttempts
	}
	return out
}
