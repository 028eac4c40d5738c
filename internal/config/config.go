// Package config loads runtime settings from an optional YAML file overlaid
// by FORMSCHEMA_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvPrefix = "FORMSCHEMA_"

// Database drivers understood by the server.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Compiler   CompilerConfig   `yaml:"compiler"`
	Validation ValidationConfig `yaml:"validation"`
	Loader     LoaderConfig     `yaml:"loader"`
}

type ServerConfig struct {
	Address     string        `yaml:"address"`
	BasePath    string        `yaml:"basePath"`
	ServiceName string        `yaml:"serviceName"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Path is a sqlite file used when DSN is empty.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type CompilerConfig struct {
	StepOrder           bool `yaml:"stepOrder"`
	FieldTypeAnnotation bool `yaml:"fieldTypeAnnotation"`
}

type ValidationConfig struct {
	CacheEnabled bool `yaml:"cacheEnabled"`
}

type LoaderConfig struct {
	AllowHTTP   bool          `yaml:"allowHTTP"`
	HTTPTimeout time.Duration `yaml:"httpTimeout"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:     ":8080",
			BasePath:    "/api",
			ServiceName: "form-validation-api",
			ReadTimeout: 15 * time.Second,
		},
		Database:   DatabaseConfig{Driver: DriverMemory},
		Log:        LogConfig{Level: "info"},
		Validation: ValidationConfig{CacheEnabled: true},
		Loader:     LoaderConfig{HTTPTimeout: 10 * time.Second},
	}
}

// Load applies, in order, the defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// ApplyEnv overlays variables found through lookup. Malformed values are
// reported together.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	c.Server.Address = env.String("ADDRESS", c.Server.Address)
	c.Server.BasePath = env.String("BASE_PATH", c.Server.BasePath)
	c.Server.ServiceName = env.String("SERVICE_NAME", c.Server.ServiceName)
	c.Server.ReadTimeout = env.Duration("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Database.Driver = env.String("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = env.String("DB_DSN", c.Database.DSN)
	c.Database.Path = env.String("DB_PATH", c.Database.Path)
	c.Log.Level = env.String("LOG_LEVEL", c.Log.Level)
	c.Compiler.StepOrder = env.Bool("STEP_ORDER", c.Compiler.StepOrder)
	c.Compiler.FieldTypeAnnotation = env.Bool("FIELD_TYPE_ANNOTATION", c.Compiler.FieldTypeAnnotation)
	c.Validation.CacheEnabled = env.Bool("CACHE_ENABLED", c.Validation.CacheEnabled)
	c.Loader.AllowHTTP = env.Bool("ALLOW_HTTP", c.Loader.AllowHTTP)
	c.Loader.HTTPTimeout = env.Duration("HTTP_TIMEOUT", c.Loader.HTTPTimeout)

	return errors.Join(env.errs...)
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Database.DSN == "" && c.Database.Path == "" {
			errs = append(errs, errors.New("sqlite needs database.dsn or database.path"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("postgres needs database.dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, fmt.Errorf("server.basePath %q must start with /", c.Server.BasePath))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// DataSource returns the DSN handed to database/sql.
func (d DatabaseConfig) DataSource() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == DriverSQLite && d.Path != "" {
		return "file:" + d.Path
	}
	return ""
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) String(key, fallback string) string {
	if v, ok := e.get(key); ok {
		return v
	}
	return fallback
}

func (e *envReader) Bool(key string, fallback bool) bool {
	v, ok := e.get(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s%s: invalid bool %q", EnvPrefix, key, v))
		return fallback
	}
	return b
}

func (e *envReader) Duration(key string, fallback time.Duration) time.Duration {
	v, ok := e.get(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		e.errs = append(e.errs, fmt.Errorf("config: %s%s: invalid duration %q", EnvPrefix, key, v))
		return fallback
	}
	return d
}
