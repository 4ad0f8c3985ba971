package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the taarya configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Graph      GraphConfig      `yaml:"graph"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Reasoner   ReasonerConfig   `yaml:"reasoner"`
	Router     RouterConfig     `yaml:"router"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json or console (default: json in prod)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"`
}

// CatalogConfig selects the catalog store.
type CatalogConfig struct {
	Driver           string `yaml:"driver"` // postgres, sqlite3
	DSN              string `yaml:"dsn"`
	Table            string `yaml:"table"`
	Q3C              bool   `yaml:"q3c"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// SimilarityConfig selects the vector store and the paper collection.
type SimilarityConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Collection       string   `yaml:"collection"`
	Dimension        int      `yaml:"dimension"`
	BatchSize        int      `yaml:"batch_size"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// GraphConfig selects the graph store. Neo4j uses URI/User/Password/Database; SQL drivers use DSN.
type GraphConfig struct {
	Driver   string `yaml:"driver"` // neo4j, sqlite3, postgres
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	DSN      string `yaml:"dsn"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider   string      `yaml:"provider"` // openai, hash
	APIKey     string      `yaml:"api_key"`
	BaseURL    string      `yaml:"base_url"`
	Model      string      `yaml:"model"`
	Dimensions int         `yaml:"dimensions"`
	MaxBatch   int         `yaml:"max_batch"` // texts per provider request
	Cache      CacheConfig `yaml:"cache"`
}

// CacheConfig controls the Redis embedding cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// ReasonerConfig holds the generative reasoner settings. Disabled means fallback only.
type ReasonerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Model         string `yaml:"model"`
	MaxIterations int    `yaml:"max_iterations"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// RouterConfig holds query router settings.
type RouterConfig struct {
	BackendTimeoutMS int `yaml:"backend_timeout_ms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	loadDotEnv()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands environment references in data and decodes it.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	loadDotEnv()
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
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

	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "sqlite3"
	}
	if c.Catalog.DSN == "" && c.Catalog.Driver == "sqlite3" {
		c.Catalog.DSN = "file:taarya.db?_journal_mode=WAL"
	}
	if c.Catalog.Table == "" {
		c.Catalog.Table = "gaia_stars"
	}
	if c.Catalog.ReadinessTimeout <= 0 {
		c.Catalog.ReadinessTimeout = 10
	}

	if c.Similarity.Driver == "" {
		c.Similarity.Driver = "memory"
	}
	if c.Similarity.KeyPrefix == "" {
		c.Similarity.KeyPrefix = "taarya:"
	}
	if c.Similarity.Collection == "" {
		c.Similarity.Collection = "papers"
	}
	if c.Similarity.Dimension <= 0 {
		c.Similarity.Dimension = 384
	}
	if c.Similarity.BatchSize <= 0 {
		c.Similarity.BatchSize = 100
	}
	if c.Similarity.HNSWM <= 0 {
		c.Similarity.HNSWM = 16
	}
	if c.Similarity.HNSWEFConstruct <= 0 {
		c.Similarity.HNSWEFConstruct = 200
	}
	if c.Similarity.ReadinessTimeout <= 0 {
		c.Similarity.ReadinessTimeout = 10
	}

	if c.Graph.Driver == "" {
		c.Graph.Driver = "sqlite3"
	}
	if c.Graph.DSN == "" && c.Graph.Driver == "sqlite3" {
		c.Graph.DSN = c.Catalog.DSN
	}
	if c.Graph.Database == "" {
		c.Graph.Database = "neo4j"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "hash"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = c.Similarity.Dimension
	}
	if c.Embedding.MaxBatch <= 0 {
		c.Embedding.MaxBatch = 256
	}
	if c.Embedding.Cache.TTLSec <= 0 {
		c.Embedding.Cache.TTLSec = 7 * 24 * 3600
	}

	if c.Reasoner.Model == "" {
		c.Reasoner.Model = "gpt-4o-mini"
	}
	if c.Reasoner.MaxIterations <= 0 {
		c.Reasoner.MaxIterations = 5
	}
	if c.Reasoner.TimeoutSec <= 0 {
		c.Reasoner.TimeoutSec = 60
	}

	if c.Router.BackendTimeoutMS <= 0 {
		c.Router.BackendTimeoutMS = 5000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Catalog.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("catalog.driver must be \"postgres\" or \"sqlite3\", got %q", c.Catalog.Driver)
	}
	if c.Catalog.DSN == "" {
		return errors.New("catalog.dsn is required")
	}
	if c.Catalog.Q3C && c.Catalog.Driver != "postgres" {
		return errors.New("catalog.q3c requires the postgres driver")
	}

	switch c.Similarity.Driver {
	case "memory":
	case "redis":
		if len(c.Similarity.Addrs) == 0 {
			return errors.New("similarity.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("similarity.driver must be \"redis\" or \"memory\", got %q", c.Similarity.Driver)
	}
	if c.Similarity.Dimension <= 0 {
		return fmt.Errorf("similarity.dimension must be positive, got %d", c.Similarity.Dimension)
	}
	if c.Similarity.BatchSize <= 0 {
		return fmt.Errorf("similarity.batch_size must be positive, got %d", c.Similarity.BatchSize)
	}

	switch c.Graph.Driver {
	case "neo4j":
		if c.Graph.URI == "" {
			return errors.New("graph.uri is required for the neo4j driver")
		}
	case "postgres", "sqlite3":
		if c.Graph.DSN == "" {
			return errors.New("graph.dsn is required for SQL graph drivers")
		}
	default:
		return fmt.Errorf("graph.driver must be \"neo4j\", \"postgres\" or \"sqlite3\", got %q", c.Graph.Driver)
	}

	switch c.Embedding.Provider {
	case "hash":
	case "openai":
		if c.Embedding.Model == "" {
			return errors.New("embedding.model is required for the openai provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"hash\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions != c.Similarity.Dimension {
		return fmt.Errorf("embedding.dimensions (%d) must match similarity.dimension (%d)",
			c.Embedding.Dimensions, c.Similarity.Dimension)
	}
	if c.Embedding.Cache.Enabled && c.Similarity.Driver != "redis" {
		return errors.New("embedding.cache requires the redis similarity driver")
	}

	if c.Reasoner.Enabled && c.Reasoner.APIKey == "" && c.Reasoner.BaseURL == "" {
		return errors.New("reasoner.api_key or reasoner.base_url is required when the reasoner is enabled")
	}
	return nil
}

// loadDotEnv loads .env files from the working directory and its parents.
// Variables already set in the process environment are never overridden.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if fileExists(path) {
			_ = godotenv.Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
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
