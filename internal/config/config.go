package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/entrydex/internal/domain/access"
)

// Config holds the entrydex service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Views    ViewsConfig    `yaml:"views"`
	Auth     AuthConfig     `yaml:"auth"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig binds a bearer token to a principal and its capabilities.
type APIKeyConfig struct {
	Key          string   `yaml:"key"`
	Principal    string   `yaml:"principal"`
	Capabilities []string `yaml:"capabilities"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	BaseURL         string `yaml:"base_url"` // prefix for links to single entries
}

// DatabaseConfig holds entry store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	SeedPath         string   `yaml:"seed_path"` // JSON entries loaded into the memory driver
}

// ViewsConfig locates view definitions.
type ViewsConfig struct {
	Path string `yaml:"path"`
}

// ExportConfig holds paging and CSV/TSV export settings.
type ExportConfig struct {
	BOM             *bool  `yaml:"bom"`
	NonceSecret     string `yaml:"nonce_secret"`
	NonceTTLSec     int    `yaml:"nonce_ttl_sec"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

// WithBOM reports whether CSV/TSV output starts with a UTF-8 byte-order mark.
func (e ExportConfig) WithBOM() bool {
	return e.BOM == nil || *e.BOM
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, expanding ${VAR} references, then applies
// defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "entrydex:"
	}
	if c.Views.Path == "" {
		c.Views.Path = filepath.Join("config", "views.yaml")
	}
	if c.Export.NonceTTLSec <= 0 {
		c.Export.NonceTTLSec = 3600
	}
	if c.Export.DefaultPageSize <= 0 {
		c.Export.DefaultPageSize = 25
	}
	if c.Export.MaxPageSize <= 0 {
		c.Export.MaxPageSize = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Export.DefaultPageSize > c.Export.MaxPageSize {
		return fmt.Errorf(
			"export.default_page_size (%d) exceeds export.max_page_size (%d)",
			c.Export.DefaultPageSize, c.Export.MaxPageSize,
		)
	}
	seen := make(map[string]bool, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("auth.api_keys[%d].key is required", i)
		}
		if seen[k.Key] {
			return fmt.Errorf("auth.api_keys[%d]: duplicate key", i)
		}
		seen[k.Key] = true
		for _, capName := range k.Capabilities {
			switch access.Capability(capName) {
			case access.CapEditViews, access.CapApproveEntries:
			default:
				return fmt.Errorf("auth.api_keys[%d]: unknown capability %q", i, capName)
			}
		}
	}
	return nil
}

// Principals maps each configured bearer token to its principal.
func (c *Config) Principals() map[string]access.Principal {
	out := make(map[string]access.Principal, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		id := k.Principal
		if id == "" {
			id = fmt.Sprintf("key-%d", i)
		}
		caps := make([]access.Capability, len(k.Capabilities))
		for j, capName := range k.Capabilities {
			caps[j] = access.Capability(capName)
		}
		out[k.Key] = access.NewPrincipal(id, caps...)
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
