package dispatch

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gk")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Groq.Policy.MinInterval != 4*time.Second || cfg.Groq.Policy.MaxConcurrent != 2 {
		t.Fatalf("unexpected groq policy %+v", cfg.Groq.Policy)
	}
	if cfg.Gemini.Policy.MinInterval != time.Second || cfg.Gemini.Policy.MaxConcurrent != 5 {
		t.Fatalf("unexpected gemini policy %+v", cfg.Gemini.Policy)
	}
	if cfg.Groq.Policy.MaxRetries != 3 || cfg.Groq.Policy.BaseBackoff != 4*time.Second || cfg.Groq.Policy.BackoffMultiplier != 1.5 {
		t.Fatalf("unexpected retry policy %+v", cfg.Groq.Policy)
	}
	if !cfg.Groq.Enabled() || cfg.Gemini.Enabled() {
		t.Fatalf("expected only groq enabled")
	}
	if cfg.BatchConcurrency != 3 {
		t.Fatalf("expected groq default concurrency 3, got %d", cfg.BatchConcurrency)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("GEMINI_MIN_INTERVAL", "250ms")
	t.Setenv("GEMINI_MAX_RETRIES", "5")
	t.Setenv("MAX_BATCHES", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.Policy.MinInterval != 250*time.Millisecond || cfg.Gemini.Policy.MaxRetries != 5 {
		t.Fatalf("unexpected gemini policy %+v", cfg.Gemini.Policy)
	}
	if cfg.BatchConcurrency != 5 || cfg.MaxBatches != 0 {
		t.Fatalf("unexpected batch settings %+v", cfg)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"stats without redis": {"STATS_ENABLED": "true", "STATS_REDIS_ADDR": ""},
		"bad multiplier":      {"GROQ_API_KEY": "k", "GROQ_BACKOFF_MULTIPLIER": "0.5"},
		"zero concurrency":    {"BATCH_CONCURRENCY": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected config error")
			}
		})
	}
}

func TestDefaultConcurrency(t *testing.T) {
	var cfg Config
	if DefaultConcurrency(cfg) != 1 {
		t.Fatalf("expected 1 without providers")
	}
	cfg.Gemini.APIKey = "k"
	if DefaultConcurrency(cfg) != 5 {
		t.Fatalf("expected 5 with gemini only")
	}
	cfg.Groq.APIKey = "k"
	if DefaultConcurrency(cfg) != 3 {
		t.Fatalf("expected 3 with groq")
	}
}
