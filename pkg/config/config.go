// Package config loads and validates application configuration from YAML files
// with .env and environment-variable overrides. It provides typed structs for
// every subsystem (Index, Experiment, Data, Search, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Index      IndexConfig      `yaml:"index"`
	Experiment ExperimentConfig `yaml:"experiment"`
	Data       DataConfig       `yaml:"data"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the search API.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the experiment
// run store.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds broker settings for publishing evaluation records.
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	Topics        KafkaTopics   `yaml:"topics"`
	BatchSize     int           `yaml:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	EvaluationRecords string `yaml:"evaluationRecords"`
}

// RedisConfig holds Redis connection and ranked-result caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexConfig controls text normalization and where per-variant index files
// are persisted.
type IndexConfig struct {
	DataDir         string   `yaml:"dataDir"`
	Variants        []string `yaml:"variants"`
	StopWords       bool     `yaml:"stopWords"`
	MinTokenLength  int      `yaml:"minTokenLength"`
	LemmaDictionary string   `yaml:"lemmaDictionary"`
}

// ModelConfig selects one weighting model by name. Label is the name used in
// reports; it defaults to Name so two configurations of the same model can be
// told apart.
type ModelConfig struct {
	Name   string             `yaml:"name"`
	Label  string             `yaml:"label"`
	Params map[string]float64 `yaml:"params"`
}

func (m ModelConfig) DisplayName() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Name
}

// ExperimentConfig controls the evaluation batch.
type ExperimentConfig struct {
	Workers    int           `yaml:"workers"`
	TopN       int           `yaml:"topN"`
	ReportTopK int           `yaml:"reportTopK"`
	Timeout    time.Duration `yaml:"timeout"`
	Models     []ModelConfig `yaml:"models"`
}

// DataConfig points at the externally produced collection files.
type DataConfig struct {
	Documents string `yaml:"documents"`
	Queries   string `yaml:"queries"`
	Qrels     string `yaml:"qrels"`
	OutputDir string `yaml:"outputDir"`
}

// SearchConfig controls the HTTP search API defaults and limits.
type SearchConfig struct {
	DefaultLimit   int    `yaml:"defaultLimit"`
	MaxResults     int    `yaml:"maxResults"`
	DefaultVariant string `yaml:"defaultVariant"`
	DefaultModel   string `yaml:"defaultModel"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a .env file and a YAML config file (both optional) and applies
// environment-variable overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration, used by tests and when no file
// is given.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects settings that would make a run meaningless.
func (c *Config) Validate() error {
	if c.Experiment.Workers < 1 {
		return fmt.Errorf("experiment.workers must be at least 1, got %d", c.Experiment.Workers)
	}
	if c.Experiment.TopN < 1 {
		return fmt.Errorf("experiment.topN must be at least 1, got %d", c.Experiment.TopN)
	}
	if c.Experiment.ReportTopK < 0 {
		return fmt.Errorf("experiment.reportTopK must not be negative, got %d", c.Experiment.ReportTopK)
	}
	if len(c.Experiment.Models) == 0 {
		return fmt.Errorf("experiment.models must list at least one model")
	}
	if len(c.Index.Variants) == 0 {
		return fmt.Errorf("index.variants must list at least one variant")
	}
	if c.Index.MinTokenLength < 1 {
		return fmt.Errorf("index.minTokenLength must be at least 1, got %d", c.Index.MinTokenLength)
	}
	seen := make(map[string]struct{}, len(c.Experiment.Models))
	for _, m := range c.Experiment.Models {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("experiment.models: model name is required")
		}
		label := m.DisplayName()
		if _, dup := seen[label]; dup {
			return fmt.Errorf("experiment.models: duplicate label %q", label)
		}
		seen[label] = struct{}{}
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.maxResults (%d) must be >= search.defaultLimit (%d)", c.Search.MaxResults, c.Search.DefaultLimit)
	}
	return nil
}

// DefaultModels is the model list compared by a standard run: the
// eight weighting functions with their published defaults plus a tuned BM25.
func DefaultModels() []ModelConfig {
	return []ModelConfig{
		{Name: "BM25"},
		{Name: "TF-IDF"},
		{Name: "PL2"},
		{Name: "DLH"},
		{Name: "DFRee"},
		{Name: "DirichletLM"},
		{Name: "DFIZ"},
		{Name: "LGD"},
		{Name: "BM25", Label: "BM25 (k1=0.9,b=0.3)", Params: map[string]float64{"k1": 0.9, "b": 0.3}},
	}
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "retrievaleval",
			User:            "retrievaleval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				EvaluationRecords: "evaluation-records",
			},
			BatchSize:     100,
			FlushInterval: 2 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Index: IndexConfig{
			DataDir:        "data/index",
			Variants:       []string{"original", "stemmed", "lemmatized"},
			StopWords:      true,
			MinTokenLength: 1,
		},
		Experiment: ExperimentConfig{
			Workers:    runtime.NumCPU(),
			TopN:       1000,
			ReportTopK: 3,
			Models:     DefaultModels(),
		},
		Data: DataConfig{
			Documents: "tweets.tsv",
			Qrels:     "qrels.tsv",
			OutputDir: "results",
		},
		Search: SearchConfig{
			DefaultLimit:   10,
			MaxResults:     100,
			DefaultVariant: "original",
			DefaultModel:   "BM25",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// applyEnvOverrides reads RE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RE_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("RE_INDEX_VARIANTS"); v != "" {
		cfg.Index.Variants = strings.Split(v, ",")
	}
	if v := os.Getenv("RE_INDEX_STOPWORDS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Index.StopWords = b
		}
	}
	if v := os.Getenv("RE_INDEX_LEMMA_DICTIONARY"); v != "" {
		cfg.Index.LemmaDictionary = v
	}
	if v := os.Getenv("RE_EXPERIMENT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Experiment.Workers = n
		}
	}
	if v := os.Getenv("RE_EXPERIMENT_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Experiment.TopN = n
		}
	}
	if v := os.Getenv("RE_EXPERIMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Experiment.Timeout = d
		}
	}
	if v := os.Getenv("RE_DATA_DOCUMENTS"); v != "" {
		cfg.Data.Documents = v
	}
	if v := os.Getenv("RE_DATA_QUERIES"); v != "" {
		cfg.Data.Queries = v
	}
	if v := os.Getenv("RE_DATA_QRELS"); v != "" {
		cfg.Data.Qrels = v
	}
	if v := os.Getenv("RE_DATA_OUTPUT_DIR"); v != "" {
		cfg.Data.OutputDir = v
	}
	if v := os.Getenv("RE_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("RE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("RE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("RE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("RE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("RE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("RE_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("RE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RE_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("RE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RE_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}
