package config

import "time"

// ApplyDefaults fills every unset field of cfg with the platform default.
// Only zero values are overwritten; explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Document assembly and AI calls can keep a response open for minutes.
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 64 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "chemscribe"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "chemscribe"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "file://migrations"
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.MinIdleConns == 0 {
		cfg.Redis.MinIdleConns = 2
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.LockTTL == 0 {
		// Long enough for any single transition, short enough that a crashed
		// process does not block its session for long.
		cfg.Redis.LockTTL = 10 * time.Minute
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "chemscribe:"
	}

	// Kafka
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.TopicPrefix == "" {
		cfg.Kafka.TopicPrefix = "chemscribe"
	}
	if cfg.Kafka.ProducerRetries == 0 {
		cfg.Kafka.ProducerRetries = 3
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.TimeoutMS == 0 {
		cfg.Kafka.TimeoutMS = 10000
	}

	// MinIO
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = "localhost:9000"
	}
	if cfg.MinIO.CorpusBucket == "" {
		cfg.MinIO.CorpusBucket = "chemscribe-corpus"
	}
	if cfg.MinIO.OutputBucket == "" {
		cfg.MinIO.OutputBucket = "chemscribe-documents"
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = 24 * time.Hour
	}

	// AI
	if cfg.AI.DefaultProvider == "" {
		cfg.AI.DefaultProvider = "openai"
	}
	if cfg.AI.RequestTimeout == 0 {
		cfg.AI.RequestTimeout = 30 * time.Second
	}
	if cfg.AI.OllamaTimeout == 0 {
		// Local inference is slow; give it far more headroom than remote APIs.
		cfg.AI.OllamaTimeout = 120 * time.Second
	}
	if cfg.AI.OpenAI.BaseURL == "" {
		cfg.AI.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.AI.OpenAI.Model == "" {
		cfg.AI.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.AI.Gemini.BaseURL == "" {
		cfg.AI.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.AI.Gemini.Model == "" {
		cfg.AI.Gemini.Model = "gemini-1.5-flash"
	}
	if cfg.AI.Ollama.BaseURL == "" {
		cfg.AI.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.AI.Ollama.Model == "" {
		cfg.AI.Ollama.Model = "llama3"
	}

	// Literature
	if cfg.Literature.DefaultSource == "" {
		cfg.Literature.DefaultSource = "semantic_scholar"
	}
	if cfg.Literature.MaxPapers == 0 {
		cfg.Literature.MaxPapers = 5
	}
	if cfg.Literature.SemanticScholarURL == "" {
		cfg.Literature.SemanticScholarURL = "https://api.semanticscholar.org/graph/v1"
	}
	if cfg.Literature.ArxivURL == "" {
		cfg.Literature.ArxivURL = "http://export.arxiv.org/api/query"
	}
	if cfg.Literature.FetchTimeout == 0 {
		cfg.Literature.FetchTimeout = 20 * time.Second
	}
	if cfg.Literature.CorpusDir == "" {
		cfg.Literature.CorpusDir = "./corpus"
	}

	// Structure
	if cfg.Structure.MaxAttempts == 0 {
		cfg.Structure.MaxAttempts = 3
	}
	if cfg.Structure.DepictionWidth == 0 {
		cfg.Structure.DepictionWidth = 640
	}
	if cfg.Structure.DepictionHeight == 0 {
		cfg.Structure.DepictionHeight = 480
	}
	if cfg.Structure.PubChemURL == "" {
		cfg.Structure.PubChemURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	}
	if cfg.Structure.CactusURL == "" {
		cfg.Structure.CactusURL = "https://cactus.nci.nih.gov/chemical/structure"
	}
	if cfg.Structure.LookupTimeout == 0 {
		cfg.Structure.LookupTimeout = 10 * time.Second
	}

	// Upload
	if cfg.Upload.MaxSizeBytes == 0 {
		cfg.Upload.MaxSizeBytes = 50 << 20
	}
	if len(cfg.Upload.AllowedExts) == 0 {
		cfg.Upload.AllowedExts = []string{".pdf", ".docx", ".txt"}
	}

	// History
	if cfg.History.MaxEntries == 0 {
		cfg.History.MaxEntries = 100
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
	if len(cfg.Log.ErrorOutputPaths) == 0 {
		cfg.Log.ErrorOutputPaths = []string{"stderr"}
	}
}
