// Package config loads gateway settings from the environment (optionally
// seeded from a .env file) and pipeline tuning from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docqa-gateway/internal/ingest"
	"docqa-gateway/internal/pipeline"
	"docqa-gateway/internal/retrieval"
)

// IntentConfig lists the words that mean "the user wants a chart".
type IntentConfig struct {
	ChartKeywords []string `yaml:"chart_keywords"`
}

// Tuning is the YAML pipeline file.
type Tuning struct {
	Retrieval retrieval.Config     `yaml:"retrieval"`
	Pipeline  pipeline.Config      `yaml:"pipeline"`
	Intent    IntentConfig         `yaml:"intent"`
	Chunking  ingest.ChunkerConfig `yaml:"chunking"`
}

type Config struct {
	Port string

	CacheBackend         string // "memory" or "redis"
	CacheCapacity        int
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration
	CachePrefix          string
	RedisAddr            string
	RedisPassword        string

	LLMBaseURL     string
	LLMAPIKey      string
	ChatModel      string
	EmbeddingModel string

	VectorStore      string // "memory" or "qdrant"
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	VectorSize       int

	DocsDir        string
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int

	TuningFile string
	Tuning     Tuning
}

// Load reads .env (if present), the environment and the tuning file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := Config{
		Port: getenv("PORT", "8080"),

		CacheBackend:         getenv("CACHE_BACKEND", "memory"),
		CacheCapacity:        getenvInt("CACHE_CAPACITY", 500, &errs),
		CacheTTL:             getenvDuration("CACHE_TTL", 5*time.Minute, &errs),
		CacheCleanupInterval: getenvDuration("CACHE_CLEANUP_INTERVAL", time.Minute, &errs),
		CachePrefix:          getenv("CACHE_PREFIX", "docqa"),
		RedisAddr:            getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),

		LLMBaseURL:     getenv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		ChatModel:      os.Getenv("LLM_CHAT_MODEL"),
		EmbeddingModel: os.Getenv("LLM_EMBEDDING_MODEL"),

		VectorStore:      getenv("VECTOR_STORE", "memory"),
		QdrantURL:        getenv("QDRANT_URL", "http://127.0.0.1:6333"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantCollection: getenv("QDRANT_COLLECTION", "docqa_chunks"),
		VectorSize:       getenvInt("VECTOR_SIZE", 1536, &errs),

		DocsDir:        os.Getenv("DOCS_DIR"),
		MaxUploadBytes: int64(getenvInt("MAX_UPLOAD_BYTES", 20<<20, &errs)),
		RateLimitRPS:   getenvFloat("RATE_LIMIT_RPS", 10, &errs),
		RateLimitBurst: getenvInt("RATE_LIMIT_BURST", 20, &errs),

		TuningFile: getenv("PIPELINE_CONFIG", "pipeline.yaml"),
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	tuning, err := LoadTuning(cfg.TuningFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Tuning = tuning

	return cfg, cfg.Validate()
}

// LoadTuning reads the YAML tuning file. A missing file yields defaults.
func LoadTuning(path string) (Tuning, error) {
	var t Tuning
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Tuning{}, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &t); err != nil {
			return Tuning{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return t.WithDefaults(), nil
}

// askHeadroom covers cache lookups, intent, enforcement and serialization.
const askHeadroom = 5 * time.Second

// AskTimeout bounds the ask route. It outlasts retrieval plus every
// generation attempt, so a failed generation still reaches the client as
// the fixed failure answer rather than a 504.
func (t Tuning) AskTimeout() time.Duration {
	t = t.WithDefaults()
	attempts := time.Duration(t.Pipeline.GenerationRetries + 1)
	return t.Retrieval.Timeout + attempts*t.Pipeline.GenerationTimeout + askHeadroom
}

func (t Tuning) WithDefaults() Tuning {
	t.Retrieval = t.Retrieval.WithDefaults()
	t.Pipeline = t.Pipeline.WithDefaults()
	t.Chunking = t.Chunking.WithDefaults()
	return t
}

func (c Config) Validate() error {
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	switch c.VectorStore {
	case "memory", "qdrant":
	default:
		return fmt.Errorf("config: unknown VECTOR_STORE %q", c.VectorStore)
	}
	if c.LLMAPIKey == "" {
		return errors.New("config: LLM_API_KEY is required")
	}
	if c.CacheCapacity <= 0 {
		return errors.New("config: CACHE_CAPACITY must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: MAX_UPLOAD_BYTES must be positive")
	}
	if c.VectorStore == "qdrant" && c.VectorSize <= 0 {
		return errors.New("config: VECTOR_SIZE must be positive for qdrant")
	}
	return c.Tuning.Retrieval.Validate()
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return n
}

func getenvFloat(key string, def float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return f
}

func getenvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return d
}
