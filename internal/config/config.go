package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete partsearchd configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Paths     PathsConfig     `yaml:"paths" json:"paths"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Upload    UploadConfig    `yaml:"upload" json:"upload"`
	Batch     BatchConfig     `yaml:"batch" json:"batch"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Auth      AuthConfig      `yaml:"auth" json:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Vector    VectorConfig    `yaml:"vector" json:"vector"`
	LLM       LLMConfig       `yaml:"llm" json:"llm"`
	Progress  ProgressConfig  `yaml:"progress" json:"progress"`
}

// PathsConfig configures on-disk locations for staging and working data.
type PathsConfig struct {
	// DataDir holds dataset tables, indexes, and query logs.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// UploadDir holds in-progress chunked upload sessions.
	UploadDir string `yaml:"upload_dir" json:"upload_dir"`
	// DropFolder, if set, is watched for files to ingest automatically
	// instead of requiring a chunked upload call. Empty disables it.
	DropFolder string `yaml:"drop_folder" json:"drop_folder"`
}

// DatabaseConfig configures the two dataset stores: the relational backend
// (G2, used by the fallback search path and for ingestion itself) and its
// concurrency tuning.
type DatabaseConfig struct {
	// Driver selects the SQL driver: "sqlite" (modernc.org/sqlite, pure Go)
	// or "sqlite3" (mattn/go-sqlite3, cgo, required for the simhash UDF).
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the data source name. Empty uses <data_dir>/partsearch.db.
	DSN string `yaml:"dsn" json:"dsn"`
	// CacheMB is the SQLite page cache size in MB.
	CacheMB int `yaml:"cache_mb" json:"cache_mb"`
	// BusyTimeoutMS is the SQLite busy_timeout in milliseconds.
	BusyTimeoutMS int `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
	// MaxOpenConns bounds concurrent connections (WAL mode permits >1 reader).
	MaxOpenConns int `yaml:"max_open_conns" json:"max_open_conns"`
}

// IndexConfig configures the search index backends and the unified engine's
// fallback and fusion behavior.
type IndexConfig struct {
	// Backend selects the primary search backend: "bleve" (G1) or
	// "relational" (G2). The other is used as fallback.
	Backend string `yaml:"backend" json:"backend"`
	// IndexDir holds the bleve full-text index.
	IndexDir string `yaml:"index_dir" json:"index_dir"`
	// ChunkRows is the number of part numbers per chunk when the search
	// engine splits a large bulk search (the engine's ChunkSize).
	ChunkRows int `yaml:"chunk_rows" json:"chunk_rows"`
	// SyncWorkers bounds how many bulk-search chunks the engine runs at once
	// (the engine's WorkerPoolSize).
	SyncWorkers int `yaml:"sync_workers" json:"sync_workers"`
	// BreakerMaxFailures is loaded and validated but not passed to the
	// engine; the engine's circuit breakers use NewCircuitBreaker's defaults.
	BreakerMaxFailures int `yaml:"breaker_max_failures" json:"breaker_max_failures"`
	// BreakerResetTimeout is loaded but not passed to the engine; the
	// engine's circuit breakers use NewCircuitBreaker's defaults.
	BreakerResetTimeout time.Duration `yaml:"breaker_reset_timeout" json:"breaker_reset_timeout"`
	// SearchTimeout bounds each chunk of a chunked bulk search (the engine's
	// ChunkTimeout).
	SearchTimeout time.Duration `yaml:"search_timeout" json:"search_timeout"`
	// PartNumberBoost is loaded and validated; no search backend reads it.
	PartNumberBoost float64 `yaml:"part_number_boost" json:"part_number_boost"`
}

// CacheConfig configures the result cache (J).
type CacheConfig struct {
	// MaxEntries bounds the in-memory LRU.
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
	// TTL is loaded but not passed to the cache, which uses its own fixed
	// TTL classes (cache.ColumnMappingTTL, ResultTTL, WarmUpTTL).
	TTL time.Duration `yaml:"ttl" json:"ttl"`
	// SummaryThresholdBytes is loaded and validated but not passed to the
	// cache, which summarizes payloads over cache.MaxFullValueBytes.
	SummaryThresholdBytes int `yaml:"summary_threshold_bytes" json:"summary_threshold_bytes"`
}

// UploadConfig configures the chunked upload protocol (I).
type UploadConfig struct {
	// MaxChunkBytes bounds a single chunk's size.
	MaxChunkBytes int64 `yaml:"max_chunk_bytes" json:"max_chunk_bytes"`
	// SessionExpiry is how long an idle upload session lives before GC.
	SessionExpiry time.Duration `yaml:"session_expiry" json:"session_expiry"`
	// GCInterval is how often expired sessions are swept.
	GCInterval time.Duration `yaml:"gc_interval" json:"gc_interval"`
}

// BatchConfig configures adaptive ingestion batch sizing.
type BatchConfig struct {
	// MassiveFileThresholdMB selects the smaller streaming batch size above this size.
	MassiveFileThresholdMB int `yaml:"massive_file_threshold_mb" json:"massive_file_threshold_mb"`
	// StreamingBatchSize is used for files over the massive-file threshold.
	StreamingBatchSize int `yaml:"streaming_batch_size" json:"streaming_batch_size"`
	// DefaultBatchSize is used otherwise, capped at MaxBatchSize.
	DefaultBatchSize int `yaml:"default_batch_size" json:"default_batch_size"`
	// MaxBatchSize is the hard upper bound on any single insert batch.
	MaxBatchSize int `yaml:"max_batch_size" json:"max_batch_size"`
	// ProgressEveryNBatches controls how often progress events are published.
	ProgressEveryNBatches int `yaml:"progress_every_n_batches" json:"progress_every_n_batches"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// AuthConfig configures request authentication (the AuthVerifier
// collaborator). By default serve verifies bearer tokens issued by
// /auth/login (authsvc); when Enabled is true and Secret is set it uses
// collab.HeaderTokenAuth with HeaderKey and Secret instead.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	HeaderKey string `yaml:"header_key" json:"header_key"`
	// Secret signs/verifies bearer tokens when Enabled is true.
	Secret string `yaml:"secret" json:"secret"`
}

// RateLimitConfig configures the opaque RateLimiter collaborator.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int  `yaml:"burst" json:"burst"`
}

// VectorConfig configures the opaque vector-upsert hook (Non-goal exception:
// a concrete fire-and-forget implementation is wired so the hook is
// exercised, not just declared).
type VectorConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	Dimensions int  `yaml:"dimensions" json:"dimensions"`
	M          int  `yaml:"m" json:"m"`
	EfSearch   int  `yaml:"ef_search" json:"ef_search"`
}

// LLMConfig configures the opaque natural-language QueryTranslator collaborator.
type LLMConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	Model    string        `yaml:"model" json:"model"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// ProgressConfig configures the progress pub-sub channel (K).
type ProgressConfig struct {
	// DeliveryTimeout is the best-effort publish timeout per subscriber.
	DeliveryTimeout time.Duration `yaml:"delivery_timeout" json:"delivery_timeout"`
	// BufferSize is the per-subscriber channel buffer.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir:   defaultDataDir(),
			UploadDir: filepath.Join(defaultDataDir(), "uploads"),
		},
		Database: DatabaseConfig{
			Driver:        "sqlite",
			DSN:           "",
			CacheMB:       64,
			BusyTimeoutMS: 5000,
			MaxOpenConns:  1,
		},
		Index: IndexConfig{
			Backend:             "bleve",
			IndexDir:            filepath.Join(defaultDataDir(), "index"),
			ChunkRows:           1000,
			SyncWorkers:         runtime.NumCPU(),
			BreakerMaxFailures:  5,
			BreakerResetTimeout: 30 * time.Second,
			SearchTimeout:       3 * time.Second,
			PartNumberBoost:     3.0,
		},
		Cache: CacheConfig{
			MaxEntries:            1000,
			TTL:                   5 * time.Minute,
			SummaryThresholdBytes: 1 << 20, // 1 MiB
		},
		Upload: UploadConfig{
			MaxChunkBytes: 8 << 20, // 8 MiB
			SessionExpiry: 30 * time.Minute,
			GCInterval:    5 * time.Minute,
		},
		Batch: BatchConfig{
			MassiveFileThresholdMB: 50,
			StreamingBatchSize:     500,
			DefaultBatchSize:       2000,
			MaxBatchSize:           10000,
			ProgressEveryNBatches:  5,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			LogLevel:        "info",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Enabled:   false,
			HeaderKey: "Authorization",
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 600,
			Burst:             50,
		},
		Vector: VectorConfig{
			Enabled:    false,
			Dimensions: 128,
			M:          16,
			EfSearch:   64,
		},
		LLM: LLMConfig{
			Enabled: false,
			Timeout: 5 * time.Second,
		},
		Progress: ProgressConfig{
			DeliveryTimeout: 5 * time.Second,
			BufferSize:      64,
		},
	}
}

// defaultDataDir returns ~/.partsearch/data, falling back to the temp dir.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".partsearch", "data")
	}
	return filepath.Join(home, ".partsearch", "data")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/partsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/partsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "partsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "partsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "partsearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration from the specified directory, applying
// configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/partsearch/config.yaml)
//  3. Deployment config (partsearch.yaml in dir)
//  4. Environment variables (PARTSEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from partsearch.yaml or partsearch.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, "partsearch.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, "partsearch.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}
	if other.Paths.UploadDir != "" {
		c.Paths.UploadDir = other.Paths.UploadDir
	}
	if other.Paths.DropFolder != "" {
		c.Paths.DropFolder = other.Paths.DropFolder
	}

	if other.Database.Driver != "" {
		c.Database.Driver = other.Database.Driver
	}
	if other.Database.DSN != "" {
		c.Database.DSN = other.Database.DSN
	}
	if other.Database.CacheMB != 0 {
		c.Database.CacheMB = other.Database.CacheMB
	}
	if other.Database.BusyTimeoutMS != 0 {
		c.Database.BusyTimeoutMS = other.Database.BusyTimeoutMS
	}
	if other.Database.MaxOpenConns != 0 {
		c.Database.MaxOpenConns = other.Database.MaxOpenConns
	}

	if other.Index.Backend != "" {
		c.Index.Backend = other.Index.Backend
	}
	if other.Index.IndexDir != "" {
		c.Index.IndexDir = other.Index.IndexDir
	}
	if other.Index.ChunkRows != 0 {
		c.Index.ChunkRows = other.Index.ChunkRows
	}
	if other.Index.SyncWorkers != 0 {
		c.Index.SyncWorkers = other.Index.SyncWorkers
	}
	if other.Index.BreakerMaxFailures != 0 {
		c.Index.BreakerMaxFailures = other.Index.BreakerMaxFailures
	}
	if other.Index.BreakerResetTimeout != 0 {
		c.Index.BreakerResetTimeout = other.Index.BreakerResetTimeout
	}
	if other.Index.SearchTimeout != 0 {
		c.Index.SearchTimeout = other.Index.SearchTimeout
	}
	if other.Index.PartNumberBoost != 0 {
		c.Index.PartNumberBoost = other.Index.PartNumberBoost
	}

	if other.Cache.MaxEntries != 0 {
		c.Cache.MaxEntries = other.Cache.MaxEntries
	}
	if other.Cache.TTL != 0 {
		c.Cache.TTL = other.Cache.TTL
	}
	if other.Cache.SummaryThresholdBytes != 0 {
		c.Cache.SummaryThresholdBytes = other.Cache.SummaryThresholdBytes
	}

	if other.Upload.MaxChunkBytes != 0 {
		c.Upload.MaxChunkBytes = other.Upload.MaxChunkBytes
	}
	if other.Upload.SessionExpiry != 0 {
		c.Upload.SessionExpiry = other.Upload.SessionExpiry
	}
	if other.Upload.GCInterval != 0 {
		c.Upload.GCInterval = other.Upload.GCInterval
	}

	if other.Batch.MassiveFileThresholdMB != 0 {
		c.Batch.MassiveFileThresholdMB = other.Batch.MassiveFileThresholdMB
	}
	if other.Batch.StreamingBatchSize != 0 {
		c.Batch.StreamingBatchSize = other.Batch.StreamingBatchSize
	}
	if other.Batch.DefaultBatchSize != 0 {
		c.Batch.DefaultBatchSize = other.Batch.DefaultBatchSize
	}
	if other.Batch.MaxBatchSize != 0 {
		c.Batch.MaxBatchSize = other.Batch.MaxBatchSize
	}
	if other.Batch.ProgressEveryNBatches != 0 {
		c.Batch.ProgressEveryNBatches = other.Batch.ProgressEveryNBatches
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	if other.Auth.Enabled {
		c.Auth.Enabled = other.Auth.Enabled
	}
	if other.Auth.HeaderKey != "" {
		c.Auth.HeaderKey = other.Auth.HeaderKey
	}
	if other.Auth.Secret != "" {
		c.Auth.Secret = other.Auth.Secret
	}

	if other.RateLimit.Enabled {
		c.RateLimit.Enabled = other.RateLimit.Enabled
	}
	if other.RateLimit.RequestsPerMinute != 0 {
		c.RateLimit.RequestsPerMinute = other.RateLimit.RequestsPerMinute
	}
	if other.RateLimit.Burst != 0 {
		c.RateLimit.Burst = other.RateLimit.Burst
	}

	if other.Vector.Enabled {
		c.Vector.Enabled = other.Vector.Enabled
	}
	if other.Vector.Dimensions != 0 {
		c.Vector.Dimensions = other.Vector.Dimensions
	}
	if other.Vector.M != 0 {
		c.Vector.M = other.Vector.M
	}
	if other.Vector.EfSearch != 0 {
		c.Vector.EfSearch = other.Vector.EfSearch
	}

	if other.LLM.Enabled {
		c.LLM.Enabled = other.LLM.Enabled
	}
	if other.LLM.Endpoint != "" {
		c.LLM.Endpoint = other.LLM.Endpoint
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}

	if other.Progress.DeliveryTimeout != 0 {
		c.Progress.DeliveryTimeout = other.Progress.DeliveryTimeout
	}
	if other.Progress.BufferSize != 0 {
		c.Progress.BufferSize = other.Progress.BufferSize
	}
}

// applyEnvOverrides applies PARTSEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PARTSEARCH_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("PARTSEARCH_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("PARTSEARCH_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("PARTSEARCH_INDEX_BACKEND"); v != "" {
		c.Index.Backend = v
	}
	if v := os.Getenv("PARTSEARCH_CHUNK_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.ChunkRows = n
		}
	}
	if v := os.Getenv("PARTSEARCH_PART_NUMBER_BOOST"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 {
			c.Index.PartNumberBoost = f
		}
	}
	if v := os.Getenv("PARTSEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("PARTSEARCH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PARTSEARCH_AUTH_ENABLED"); v != "" {
		c.Auth.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("PARTSEARCH_AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("PARTSEARCH_RATE_LIMIT_ENABLED"); v != "" {
		c.RateLimit.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("PARTSEARCH_RATE_LIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("PARTSEARCH_LLM_ENDPOINT"); v != "" {
		c.LLM.Endpoint = v
		c.LLM.Enabled = true
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Index.ChunkRows <= 0 {
		return fmt.Errorf("index.chunk_rows must be positive, got %d", c.Index.ChunkRows)
	}
	if c.Index.PartNumberBoost < 0 {
		return fmt.Errorf("index.part_number_boost must be non-negative, got %f", c.Index.PartNumberBoost)
	}

	validBackends := map[string]bool{"bleve": true, "relational": true}
	if !validBackends[strings.ToLower(c.Index.Backend)] {
		return fmt.Errorf("index.backend must be 'bleve' or 'relational', got %s", c.Index.Backend)
	}

	validDrivers := map[string]bool{"sqlite": true, "sqlite3": true}
	if !validDrivers[strings.ToLower(c.Database.Driver)] {
		return fmt.Errorf("database.driver must be 'sqlite' or 'sqlite3', got %s", c.Database.Driver)
	}

	if c.Batch.DefaultBatchSize > c.Batch.MaxBatchSize {
		return fmt.Errorf("batch.default_batch_size (%d) must not exceed batch.max_batch_size (%d)",
			c.Batch.DefaultBatchSize, c.Batch.MaxBatchSize)
	}
	if c.Batch.StreamingBatchSize <= 0 || c.Batch.DefaultBatchSize <= 0 || c.Batch.MaxBatchSize <= 0 {
		return fmt.Errorf("batch sizes must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	if c.Cache.SummaryThresholdBytes < 0 {
		return fmt.Errorf("cache.summary_threshold_bytes must be non-negative, got %d", c.Cache.SummaryThresholdBytes)
	}

	if math.IsNaN(c.Index.PartNumberBoost) {
		return fmt.Errorf("index.part_number_boost must not be NaN")
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns the list of field names that were added with their default values,
// for reporting during a config upgrade.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Index.PartNumberBoost == 0 {
		c.Index.PartNumberBoost = defaults.Index.PartNumberBoost
		added = append(added, "index.part_number_boost")
	}
	if c.Index.BreakerMaxFailures == 0 {
		c.Index.BreakerMaxFailures = defaults.Index.BreakerMaxFailures
		added = append(added, "index.breaker_max_failures")
	}
	if c.Cache.SummaryThresholdBytes == 0 {
		c.Cache.SummaryThresholdBytes = defaults.Cache.SummaryThresholdBytes
		added = append(added, "cache.summary_threshold_bytes")
	}
	if c.Batch.ProgressEveryNBatches == 0 {
		c.Batch.ProgressEveryNBatches = defaults.Batch.ProgressEveryNBatches
		added = append(added, "batch.progress_every_n_batches")
	}
	if c.Progress.BufferSize == 0 {
		c.Progress.BufferSize = defaults.Progress.BufferSize
		added = append(added, "progress.buffer_size")
	}

	return added
}
