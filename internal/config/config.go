// Package config provides typed configuration for the bootstrap core. Each
// resource variant has an explicit struct listing exactly its required and
// optional fields; validation tags are enforced by the variant's
// ValidateConfiguration phase, which reports every invalid field in one
// pass.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the root configuration for a bootstrap run.
type Config struct {
	Environment Environment   `yaml:"environment" json:"environment"`
	Logging     LoggingConfig `yaml:"logging" json:"logging"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics" json:"metrics"`
	Resources   Resources     `yaml:"resources" json:"resources"`

	// LoadedFrom records which sources contributed to this configuration.
	LoadedFrom []string `yaml:"-" json:"-"`
}

// LoggingConfig controls the zap logger construction.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // "json" or "console"
}

// TracingConfig controls the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// Resources declares the external resources to bring online. A nil entry
// means the variant is not part of this deployment.
type Resources struct {
	Database   *DatabaseConfig    `yaml:"database,omitempty" json:"database,omitempty"`
	Cache      *CacheConfig       `yaml:"cache,omitempty" json:"cache,omitempty"`
	Queue      *QueueConfig       `yaml:"queue,omitempty" json:"queue,omitempty"`
	API        *ExternalAPIConfig `yaml:"external_api,omitempty" json:"external_api,omitempty"`
	FileSystem *FileSystemConfig  `yaml:"filesystem,omitempty" json:"filesystem,omitempty"`
	Network    *NetworkConfig     `yaml:"network,omitempty" json:"network,omitempty"`
}

// RetryConfig configures the exponential backoff retry policy shared by the
// database, external API, and network variants. The delay before attempt n
// is InitialDelay * 2^n.
type RetryConfig struct {
	MaxRetries   int      `yaml:"max_retries" json:"max_retries" validate:"min=0"`
	InitialDelay Duration `yaml:"initial_delay" json:"initial_delay"`
}

// DatabaseConfig configures the relational datastore variant.
type DatabaseConfig struct {
	Host           string      `yaml:"host" json:"host" validate:"required"`
	Port           int         `yaml:"port" json:"port" validate:"required,min=1,max=65535"`
	User           string      `yaml:"user" json:"user" validate:"required"`
	Password       string      `yaml:"password" json:"password"`
	Database       string      `yaml:"database" json:"database" validate:"required"`
	SSLMode        string      `yaml:"ssl_mode" json:"ssl_mode"`
	MaxConns       int32       `yaml:"max_conns" json:"max_conns" validate:"min=0"`
	ConnectTimeout Duration    `yaml:"connect_timeout" json:"connect_timeout"`
	Retry          RetryConfig `yaml:"retry" json:"retry"`
	DependsOn      []string    `yaml:"depends_on" json:"depends_on"`
}

// DSN returns the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode)
}

// CacheConfig configures the in-memory cache service variant.
type CacheConfig struct {
	Addr      string   `yaml:"addr" json:"addr" validate:"required,hostname_port"`
	Password  string   `yaml:"password" json:"password"`
	DB        int      `yaml:"db" json:"db" validate:"min=0"`
	PoolSize  int      `yaml:"pool_size" json:"pool_size" validate:"min=0"`
	DependsOn []string `yaml:"depends_on" json:"depends_on"`
}

// QueueConfig configures the message queue variant (EventBridge bus).
type QueueConfig struct {
	EventBusName string   `yaml:"event_bus_name" json:"event_bus_name" validate:"required"`
	Region       string   `yaml:"region" json:"region" validate:"required"`
	DependsOn    []string `yaml:"depends_on" json:"depends_on"`
}

// BreakerConfig configures the circuit breaker guarding external API probes.
type BreakerConfig struct {
	MaxRequests      uint32   `yaml:"max_requests" json:"max_requests"`
	Interval         Duration `yaml:"interval" json:"interval"`
	Timeout          Duration `yaml:"timeout" json:"timeout"`
	FailureThreshold float64  `yaml:"failure_threshold" json:"failure_threshold" validate:"min=0,max=1"`
	MinRequests      uint32   `yaml:"min_requests" json:"min_requests"`
}

// ExternalAPIConfig configures the external HTTP API variant.
type ExternalAPIConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	HealthPath string        `yaml:"health_path" json:"health_path"`
	Timeout    Duration      `yaml:"timeout" json:"timeout"`
	Retry      RetryConfig   `yaml:"retry" json:"retry"`
	Breaker    BreakerConfig `yaml:"breaker" json:"breaker"`
	DependsOn  []string      `yaml:"depends_on" json:"depends_on"`
}

// FileSystemConfig configures the filesystem tree variant. Modes are POSIX
// permission bits; the variant verifies the actual resulting permissions
// after applying them.
type FileSystemConfig struct {
	BasePath  string   `yaml:"base_path" json:"base_path" validate:"required"`
	SubDirs   []string `yaml:"sub_dirs" json:"sub_dirs"`
	DirMode   uint32   `yaml:"dir_mode" json:"dir_mode" validate:"max=511"`
	DependsOn []string `yaml:"depends_on" json:"depends_on"`
}

// NetworkConfig configures the raw network endpoint variant.
type NetworkConfig struct {
	Host      string      `yaml:"host" json:"host" validate:"required"`
	Port      int         `yaml:"port" json:"port" validate:"required,min=1,max=65535"`
	Timeout   Duration    `yaml:"timeout" json:"timeout"`
	Retry     RetryConfig `yaml:"retry" json:"retry"`
	DependsOn []string    `yaml:"depends_on" json:"depends_on"`
}

// getEnvironment resolves the deployment environment from ENVIRONMENT.
func getEnvironment() Environment {
	switch strings.ToLower(os.Getenv("ENVIRONMENT")) {
	case "production", "prod":
		return Production
	case "staging":
		return Staging
	default:
		return Development
	}
}
