package entrydex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	viewsPath string
	viewsYAML []byte

	driver    string // "memory" or "redis"
	addrs     []string
	password  string
	keyPrefix string
	entries   []Entry

	baseURL         string
	defaultPageSize int
	maxPageSize     int
	bom             bool
	nonceSecret     string
	nonceTTL        time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		driver:          "memory",
		defaultPageSize: 25,
		maxPageSize:     300,
		bom:             true,
		nonceTTL:        time.Hour,
	}
}

// WithViewsFile loads view definitions from a YAML file.
func WithViewsFile(path string) Option {
	return optionFunc(func(c *engineConfig) {
		c.viewsPath = path
	})
}

// WithViews loads view definitions from a YAML document.
// Takes precedence over WithViewsFile.
func WithViews(doc []byte) Option {
	return optionFunc(func(c *engineConfig) {
		c.viewsYAML = doc
	})
}

// WithMemory keeps entries in process memory, seeded with the given entries.
// This is the default store.
func WithMemory(entries ...Entry) Option {
	return optionFunc(func(c *engineConfig) {
		c.driver = "memory"
		c.entries = entries
	})
}

// WithRedis reads entries from a Redis 8 (or Redis Stack) instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *engineConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the Redis key prefix of entry hashes and indexes.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *engineConfig) {
		c.keyPrefix = prefix
	})
}

// WithBaseURL sets the prefix of links to single entries.
func WithBaseURL(u string) Option {
	return optionFunc(func(c *engineConfig) {
		c.baseURL = u
	})
}

// WithPageSizes sets the fallback page size and the upper bound on limit.
// Defaults: 25 and 300.
func WithPageSizes(defaultSize, maxSize int) Option {
	return optionFunc(func(c *engineConfig) {
		c.defaultPageSize = defaultSize
		c.maxPageSize = maxSize
	})
}

// WithBOM toggles the UTF-8 byte-order mark on CSV/TSV output. Default: on.
func WithBOM(on bool) Option {
	return optionFunc(func(c *engineConfig) {
		c.bom = on
	})
}

// WithExportNonces sets the HMAC secret and lifetime of export nonces.
// An empty secret generates a random one.
func WithExportNonces(secret string, ttl time.Duration) Option {
	return optionFunc(func(c *engineConfig) {
		c.nonceSecret = secret
		c.nonceTTL = ttl
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}

// WithPrometheus registers engine metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *engineConfig) {
		c.metricsReg = reg
	})
}
