package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"docqa-gateway/pkg/logging"
)

func TestLoadTuning_MissingFileUsesDefaults(t *testing.T) {
	tuning, err := LoadTuning(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tuning.Retrieval.DefaultK != 4 || tuning.Retrieval.ExtendedK != 6 {
		t.Fatalf("unexpected k defaults %+v", tuning.Retrieval)
	}
	if tuning.Retrieval.ConfidenceThreshold != 0.6 || tuning.Retrieval.TokenBudget != 1500 {
		t.Fatalf("unexpected retrieval defaults %+v", tuning.Retrieval)
	}
	if tuning.Pipeline.GenerationTimeout != 6*time.Second || tuning.Pipeline.MaxQuestionChars != 2000 {
		t.Fatalf("unexpected pipeline defaults %+v", tuning.Pipeline)
	}
}

func TestLoadTuning_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	body := `
retrieval:
  default_k: 3
  extended_k: 8
  confidence_threshold: 0.5
  timeout: 2s
pipeline:
  generation_timeout: 10s
intent:
  chart_keywords: ["chart", "dashboard"]
chunking:
  size: 800
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tuning.Retrieval.DefaultK != 3 || tuning.Retrieval.ExtendedK != 8 || tuning.Retrieval.Timeout != 2*time.Second {
		t.Fatalf("retrieval not parsed: %+v", tuning.Retrieval)
	}
	if tuning.Retrieval.TokenBudget != 1500 {
		t.Fatalf("unset fields should keep defaults")
	}
	if tuning.Pipeline.GenerationTimeout != 10*time.Second {
		t.Fatalf("pipeline not parsed: %+v", tuning.Pipeline)
	}
	if strings.Join(tuning.Intent.ChartKeywords, ",") != "chart,dashboard" {
		t.Fatalf("keywords not parsed: %v", tuning.Intent.ChartKeywords)
	}
	if tuning.Chunking.Size != 800 {
		t.Fatalf("chunking not parsed: %+v", tuning.Chunking)
	}
}

func TestLoadTuning_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("retrieval: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuning(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_Env(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("CACHE_CAPACITY", "42")
	t.Setenv("VECTOR_STORE", "qdrant")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheTTL != 90*time.Second || cfg.CacheCapacity != 42 || cfg.VectorStore != "qdrant" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Port != "8080" || cfg.CacheBackend != "memory" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("LLM_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing key error")
	}

	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("CACHE_CAPACITY", "lots")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CACHE_CAPACITY") {
		t.Fatalf("expected parse error, got %v", err)
	}

	t.Setenv("CACHE_CAPACITY", "10")
	t.Setenv("CACHE_BACKEND", "memcached")
	if _, err := Load(); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestTuning_AskTimeoutOutlastsPipeline(t *testing.T) {
	tuning := Tuning{}.WithDefaults()
	worst := tuning.Retrieval.Timeout + 2*tuning.Pipeline.GenerationTimeout
	if got := tuning.AskTimeout(); got <= worst {
		t.Fatalf("ask timeout %v must exceed pipeline worst case %v", got, worst)
	}

	tuning.Pipeline.GenerationTimeout = 20 * time.Second
	tuning.Pipeline.GenerationRetries = 2
	worst = tuning.Retrieval.Timeout + 3*20*time.Second
	if got := tuning.AskTimeout(); got <= worst {
		t.Fatalf("ask timeout %v must follow generation settings (worst %v)", got, worst)
	}
}

func TestLoad_DotEnvReachesLogger(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"LOG_LEVEL", "LLM_API_KEY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	if err := os.WriteFile(".env", []byte("LOG_LEVEL=debug\nLLM_API_KEY=sk-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMAPIKey != "sk-dotenv" {
		t.Fatalf(".env not loaded: %q", cfg.LLMAPIKey)
	}

	logger := logging.NewLogger("")
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("logger built after Load should honour LOG_LEVEL from .env")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
