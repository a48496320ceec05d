package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	AI            AIConfig         `json:"ai"`
	Embedding     EmbeddingConfig  `json:"embedding"`
	Chunking      ChunkingConfig   `json:"chunking"`
	Retrieval     RetrievalConfig  `json:"retrieval"`
	IndexStore    IndexStoreConfig `json:"index_store"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Database      DatabaseConfig   `json:"database"`
	Upload        UploadConfig     `json:"upload"`
	CORSAllowlist []string         `json:"cors_allowlist"`
}

type AIConfig struct {
	Embedders     []ProviderConfig `json:"embedders"`
	Generators    []ProviderConfig `json:"generators"`
	Timeout       int              `json:"timeout"`
	MaxInputChars int              `json:"max_input_chars"`
}

// ProviderConfig selects a registered provider; Data is handed to the
// provider factory as-is.
type ProviderConfig struct {
	Name     string                 `json:"name"`
	Provider string                 `json:"provider"`
	Model    string                 `json:"model"`
	Data     map[string]interface{} `json:"data"`
}

type EmbeddingConfig struct {
	BatchSize       int  `json:"batch_size"`
	Concurrency     int  `json:"concurrency"`
	MaxRetries      *int `json:"max_retries"`
	RetryBaseMs     int  `json:"retry_base_ms"`
	CacheSize       int  `json:"cache_size"`
	CacheTTLMinutes int  `json:"cache_ttl_minutes"`
	DBCache         bool `json:"db_cache"`
}

// MaxRetriesOrDefault treats an explicit 0 as "no retries".
func (c EmbeddingConfig) MaxRetriesOrDefault() int {
	if c.MaxRetries == nil {
		return 3
	}
	return *c.MaxRetries
}

type ChunkingConfig struct {
	ChunkSize int    `json:"chunk_size"`
	Overlap   *int   `json:"overlap"`
	Encoding  string `json:"encoding"`
}

func (c ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap == nil {
		return 100
	}
	return *c.Overlap
}

type RetrievalConfig struct {
	TopK int `json:"top_k"`
}

type IndexStoreConfig struct {
	Type            string   `json:"type"`
	Dir             string   `json:"dir"`
	S3              S3Config `json:"s3"`
	CacheSize       int      `json:"cache_size"`
	CacheTTLMinutes int      `json:"cache_ttl_minutes"`
}

// BlobStore returns the file store config used by blob-backed index stores.
func (c IndexStoreConfig) BlobStore() FileStoreConfig {
	return FileStoreConfig{Type: c.Type, Dir: c.Dir, S3: c.S3}
}

type FileStoreConfig struct {
	Type string   `json:"type"`
	Dir  string   `json:"dir"`
	S3   S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	UseSSL    bool   `json:"use_ssl"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

func (c DatabaseConfig) Configured() bool {
	return c.DSN != "" || c.Host != ""
}

type UploadConfig struct {
	MaxBytes         int64 `json:"max_bytes"`
	RateLimitSeconds int   `json:"rate_limit_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if len(cfg.AI.Embedders) == 0 {
		return fmt.Errorf("ai.embedders is required")
	}
	if len(cfg.AI.Generators) == 0 {
		return fmt.Errorf("ai.generators is required")
	}
	for _, p := range append(append([]ProviderConfig{}, cfg.AI.Embedders...), cfg.AI.Generators...) {
		if strings.TrimSpace(p.Provider) == "" || strings.TrimSpace(p.Model) == "" {
			return fmt.Errorf("ai provider and model are required for every entry")
		}
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 16
	}
	if cfg.Embedding.Concurrency <= 0 {
		cfg.Embedding.Concurrency = 4
	}
	if cfg.Embedding.MaxRetriesOrDefault() < 0 {
		return fmt.Errorf("embedding.max_retries must be >= 0")
	}
	if cfg.Embedding.RetryBaseMs <= 0 {
		cfg.Embedding.RetryBaseMs = 500
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 500
	}
	overlap := cfg.Chunking.OverlapOrDefault()
	if cfg.Chunking.ChunkSize < 0 || overlap < 0 || overlap >= cfg.Chunking.ChunkSize {
		return fmt.Errorf("chunking.overlap must be >= 0 and < chunking.chunk_size")
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.IndexStore.Type == "" {
		cfg.IndexStore.Type = "local"
	}
	if cfg.IndexStore.CacheSize <= 0 {
		cfg.IndexStore.CacheSize = 64
	}
	if cfg.IndexStore.CacheTTLMinutes <= 0 {
		cfg.IndexStore.CacheTTLMinutes = 30
	}
	switch cfg.IndexStore.Type {
	case "local":
		if cfg.IndexStore.Dir == "" {
			cfg.IndexStore.Dir = "vectors"
		}
	case "s3":
		if err := validateS3(cfg.IndexStore.S3, "index_store"); err != nil {
			return err
		}
	case "postgres":
		if !cfg.Database.Configured() {
			return fmt.Errorf("database is required for postgres index store")
		}
	default:
		return fmt.Errorf("index_store.type must be local, s3 or postgres")
	}
	if cfg.Embedding.DBCache && !cfg.Database.Configured() {
		return fmt.Errorf("database is required when embedding.db_cache is enabled")
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	switch cfg.FileStore.Type {
	case "local":
		if cfg.FileStore.Dir == "" {
			cfg.FileStore.Dir = "uploads"
		}
	case "s3":
		if err := validateS3(cfg.FileStore.S3, "file_store"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}
	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = 50 << 20
	}
	return nil
}

func validateS3(c S3Config, section string) error {
	if c.Endpoint == "" || c.Bucket == "" || c.SecretID == "" || c.SecretKey == "" {
		return fmt.Errorf("%s.s3 endpoint/bucket/secret_id/secret_key are required for s3 store", section)
	}
	return nil
}
