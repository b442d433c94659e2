// Package config defines all configuration structures for the ChemScribe
// platform.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.  Redis backs the per-session
// transition lock and short-lived caches.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer parameters for session lifecycle
// events.  Events are best-effort; a broker outage never fails a workflow.
type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	TopicPrefix     string   `mapstructure:"topic_prefix"`
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchSize       int      `mapstructure:"batch_size"`
	TimeoutMS       int      `mapstructure:"timeout_ms"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.  Object
// storage keeps uploaded corpus files and assembled document bundles.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	CorpusBucket  string        `mapstructure:"corpus_bucket"`
	OutputBucket  string        `mapstructure:"output_bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// ProviderConfig holds per-provider credentials and endpoints for the AI
// gateway.  A provider with an empty key (or, for ollama, an empty base URL)
// is considered unconfigured and rejected at call time.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// AIConfig holds AI gateway parameters.
type AIConfig struct {
	// DefaultProvider names the provider used when a request does not specify
	// one: "openai", "gemini" or "ollama".
	DefaultProvider string `mapstructure:"default_provider"`

	// RequestTimeout bounds a single remote-provider call.  Local ollama runs
	// use OllamaTimeout instead because local inference is slower.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	OllamaTimeout  time.Duration `mapstructure:"ollama_timeout"`

	OpenAI ProviderConfig `mapstructure:"openai"`
	Gemini ProviderConfig `mapstructure:"gemini"`
	Ollama ProviderConfig `mapstructure:"ollama"`
}

// LiteratureConfig holds literature retrieval parameters.
type LiteratureConfig struct {
	// DefaultSource names the source used when a request does not specify one:
	// "semantic_scholar", "arxiv" or "local".
	DefaultSource string `mapstructure:"default_source"`

	// MaxPapers caps the number of papers included in a digest.
	MaxPapers int `mapstructure:"max_papers"`

	SemanticScholarURL string        `mapstructure:"semantic_scholar_url"`
	ArxivURL           string        `mapstructure:"arxiv_url"`
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`

	// CorpusDir is the directory scanned by the local knowledge store.
	CorpusDir string `mapstructure:"corpus_dir"`
}

// StructureConfig holds molecule generation parameters.
type StructureConfig struct {
	// MaxAttempts bounds the generate-validate loop per structure run.
	MaxAttempts int `mapstructure:"max_attempts"`

	// DepictionWidth / DepictionHeight size the rendered PNG in pixels.
	DepictionWidth  int `mapstructure:"depiction_width"`
	DepictionHeight int `mapstructure:"depiction_height"`

	// AvailabilityLookup toggles the external PubChem / Cactus availability
	// scoring.  When disabled, candidates are marked with an unknown verdict.
	AvailabilityLookup bool          `mapstructure:"availability_lookup"`
	PubChemURL         string        `mapstructure:"pubchem_url"`
	CactusURL          string        `mapstructure:"cactus_url"`
	LookupTimeout      time.Duration `mapstructure:"lookup_timeout"`
}

// UploadConfig holds corpus upload restrictions.
type UploadConfig struct {
	MaxSizeBytes int64    `mapstructure:"max_size_bytes"`
	AllowedExts  []string `mapstructure:"allowed_exts"`
}

// HistoryConfig holds session history retention parameters.
type HistoryConfig struct {
	// MaxEntries caps both the listing size and the number of retained
	// sessions: saving a session prunes rows beyond the newest MaxEntries.
	MaxEntries int `mapstructure:"max_entries"`
}

// LogConfig mirrors logging.LogConfig so that the config package does not
// import the logging package.
type LogConfig struct {
	Level            string   `mapstructure:"level"`
	Format           string   `mapstructure:"format"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the platform.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	AI         AIConfig         `mapstructure:"ai"`
	Literature LiteratureConfig `mapstructure:"literature"`
	Structure  StructureConfig  `mapstructure:"structure"`
	Upload     UploadConfig     `mapstructure:"upload"`
	History    HistoryConfig    `mapstructure:"history"`
	Log        LogConfig        `mapstructure:"log"`
}

// DSN builds the PostgreSQL connection string for pgx.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// Validate checks invariants that, if violated, would cause runtime failures
// long after startup.  It is called by the loader after defaults are applied.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug|release|test, got %q", c.Server.Mode)
	}
	switch c.AI.DefaultProvider {
	case "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("ai.default_provider must be openai|gemini|ollama, got %q", c.AI.DefaultProvider)
	}
	if c.AI.RequestTimeout <= 0 {
		return fmt.Errorf("ai.request_timeout must be positive, got %s", c.AI.RequestTimeout)
	}
	switch c.Literature.DefaultSource {
	case "semantic_scholar", "arxiv", "local":
	default:
		return fmt.Errorf("literature.default_source must be semantic_scholar|arxiv|local, got %q", c.Literature.DefaultSource)
	}
	if c.Literature.MaxPapers <= 0 {
		return fmt.Errorf("literature.max_papers must be positive, got %d", c.Literature.MaxPapers)
	}
	if c.Structure.MaxAttempts <= 0 {
		return fmt.Errorf("structure.max_attempts must be positive, got %d", c.Structure.MaxAttempts)
	}
	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("upload.max_size_bytes must be positive, got %d", c.Upload.MaxSizeBytes)
	}
	if c.History.MaxEntries <= 0 {
		return fmt.Errorf("history.max_entries must be positive, got %d", c.History.MaxEntries)
	}
	return nil
}
