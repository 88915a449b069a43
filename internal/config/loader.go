package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration from multiple sources. The loading
// order, lowest to highest priority:
//  1. defaults (in code)
//  2. base file (base.yaml / base.json)
//  3. environment-specific file (e.g. production.yaml)
//  4. local overrides (development only)
//  5. environment variables
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
	fileLoaders map[string]FileLoader
	extensions  []string // registration order; resolves format precedence
}

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a configuration loader rooted at basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	loader := &Loader{
		basePath:    basePath,
		environment: env,
		fileLoaders: make(map[string]FileLoader),
	}
	loader.RegisterLoader(&YAMLLoader{})
	loader.RegisterLoader(&JSONLoader{})
	return loader
}

// RegisterLoader registers a loader for one file extension. When several
// formats exist for the same name, the one registered first wins.
func (l *Loader) RegisterLoader(loader FileLoader) {
	ext := loader.Extension()
	if _, exists := l.fileLoaders[ext]; !exists {
		l.extensions = append(l.extensions, ext)
	}
	l.fileLoaders[ext] = loader
}

// Load assembles the configuration from all sources.
func (l *Loader) Load() (*Config, error) {
	cfg := l.defaultConfig()
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load local config: %v\n", err)
		}
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = l.sources
	return cfg, nil
}

// loadFile loads one named file with automatic format detection, trying
// extensions in registration order so the chosen file is deterministic.
func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, ext := range l.extensions {
		loader := l.fileLoaders[ext]
		filename := fmt.Sprintf("%s.%s", name, ext)
		path := filepath.Join(l.basePath, filename)

		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		defer file.Close()

		if err := loader.Load(file, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		l.sources = append(l.sources, path)
		return nil
	}
	return os.ErrNotExist
}

// loadEnvironmentVariables overlays environment variables, the highest
// priority source.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv("TRACING_ENDPOINT"); val != "" {
		cfg.Tracing.Endpoint = val
		cfg.Tracing.Enabled = true
	}

	if db := cfg.Resources.Database; db != nil {
		if val := os.Getenv("DATABASE_HOST"); val != "" {
			db.Host = val
		}
		if val := os.Getenv("DATABASE_PORT"); val != "" {
			if port := parseInt(val); port > 0 {
				db.Port = port
			}
		}
		if val := os.Getenv("DATABASE_USER"); val != "" {
			db.User = val
		}
		if val := os.Getenv("DATABASE_PASSWORD"); val != "" {
			db.Password = val
		}
		if val := os.Getenv("DATABASE_NAME"); val != "" {
			db.Database = val
		}
	}
	if cache := cfg.Resources.Cache; cache != nil {
		if val := os.Getenv("CACHE_ADDR"); val != "" {
			cache.Addr = val
		}
		if val := os.Getenv("CACHE_PASSWORD"); val != "" {
			cache.Password = val
		}
	}
	if queue := cfg.Resources.Queue; queue != nil {
		if val := os.Getenv("AWS_REGION"); val != "" {
			queue.Region = val
		}
		if val := os.Getenv("EVENT_BUS_NAME"); val != "" {
			queue.EventBusName = val
		}
	}
	if api := cfg.Resources.API; api != nil {
		if val := os.Getenv("EXTERNAL_API_URL"); val != "" {
			api.BaseURL = val
		}
	}
	if fs := cfg.Resources.FileSystem; fs != nil {
		if val := os.Getenv("FILESYSTEM_BASE_PATH"); val != "" {
			fs.BasePath = val
		}
	}
}

// defaultConfig returns the defaults applied before any file is read.
func (l *Loader) defaultConfig() *Config {
	return &Config{
		Environment: l.environment,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "preflight",
			Endpoint:    "localhost:4317",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "preflight",
		},
	}
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	decoder := yaml.NewDecoder(reader)
	return decoder.Decode(target)
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader loads configuration from JSON files.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	decoder := json.NewDecoder(reader)
	return decoder.Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}

func parseInt(s string) int {
	val, _ := strconv.Atoi(s)
	return val
}

// Load loads configuration from the default location for the current
// environment.
func Load(basePath string) (*Config, error) {
	return NewLoader(basePath, getEnvironment()).Load()
}
