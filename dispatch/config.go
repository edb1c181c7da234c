package dispatch

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"notes-gateway/dispatch/domain"
	"notes-gateway/dispatch/infra"
)

// ProviderSettings agrupa credencial, endpoint e política de um provedor.
type ProviderSettings struct {
	APIKey  string
	Model   string
	BaseURL string
	Policy  domain.ProviderConfig
}

func (p ProviderSettings) Enabled() bool { return strings.TrimSpace(p.APIKey) != "" }

type Config struct {
	ListenAddr string

	Groq            ProviderSettings
	Gemini          ProviderSettings
	ProviderTimeout time.Duration

	BatchConcurrency    int
	BatchMaxConcurrency int
	MaxBatches          int
	BatchAcquireTimeout time.Duration

	ClientBatchesPerMinute float64
	ClientBatchBurst       int
	ClientKeyHeader        string
	TrustXFF               bool

	PromptFile  string
	CaptionsURL string

	StatsEnabled       bool
	StatsRedisAddr     string
	StatsRedisPassword string
	StatsRedisDB       int
	StatsPrefix        string
	StatsTTL           time.Duration
	StatsBucket        string
	StatsTrackItems    bool

	LogLevel  string
	LogFormat string
}

// LoadConfig lê a configuração das variáveis de ambiente.
//
// Um provedor sem API key fica desligado. Sem nenhum provedor o gateway ainda
// sobe (modo somente legendas); lotes que precisam de LLM falham com
// domain.ErrNoProviders.
func LoadConfig() (Config, error) {
	cfg := Config{}
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":8080")

	// Groq é mais rápida mas tem cota apertada: intervalo maior, menos vagas.
	cfg.Groq = readProvider("GROQ", infra.GroqName, 4*time.Second, 2)
	cfg.Gemini = readProvider("GEMINI", infra.GeminiName, 1*time.Second, 5)
	cfg.ProviderTimeout = getenvDurationDefault("PROVIDER_TIMEOUT", 60*time.Second)

	cfg.BatchConcurrency = getenvIntDefault("BATCH_CONCURRENCY", DefaultConcurrency(cfg))
	cfg.BatchMaxConcurrency = getenvIntDefault("BATCH_MAX_CONCURRENCY", 10)
	cfg.MaxBatches = getenvIntDefault("MAX_BATCHES", 4)
	cfg.BatchAcquireTimeout = getenvDurationDefault("BATCH_ACQUIRE_TIMEOUT", 2*time.Second)

	cfg.ClientBatchesPerMinute = getenvFloatDefault("CLIENT_BATCHES_PER_MINUTE", 0)
	cfg.ClientBatchBurst = getenvIntDefault("CLIENT_BATCH_BURST", 5)
	cfg.ClientKeyHeader = getenvDefault("CLIENT_KEY_HEADER", "X-Api-Key")
	cfg.TrustXFF = getenvBoolDefault("TRUST_XFF", false)

	cfg.PromptFile = os.Getenv("PROMPT_FILE")
	cfg.CaptionsURL = os.Getenv("CAPTIONS_URL")

	cfg.StatsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.StatsRedisAddr = getenvDefault("STATS_REDIS_ADDR", "")
	cfg.StatsRedisPassword = os.Getenv("STATS_REDIS_PASSWORD")
	cfg.StatsRedisDB = getenvIntDefault("STATS_REDIS_DB", 0)
	cfg.StatsPrefix = getenvDefault("STATS_PREFIX", "notes:stats")
	cfg.StatsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.StatsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.StatsTrackItems = getenvBoolDefault("STATS_TRACK_ITEMS", false)

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	for _, p := range []ProviderSettings{cfg.Groq, cfg.Gemini} {
		if !p.Enabled() {
			continue
		}
		if err := p.Policy.Validate(); err != nil {
			return err
		}
	}
	if cfg.StatsEnabled && strings.TrimSpace(cfg.StatsRedisAddr) == "" {
		return errors.New("STATS_REDIS_ADDR is required when STATS_ENABLED=true")
	}
	if cfg.BatchConcurrency <= 0 {
		return errors.New("BATCH_CONCURRENCY must be > 0")
	}
	if cfg.BatchMaxConcurrency <= 0 {
		return errors.New("BATCH_MAX_CONCURRENCY must be > 0")
	}
	if cfg.MaxBatches < 0 {
		return errors.New("MAX_BATCHES must be >= 0")
	}
	if cfg.ClientBatchesPerMinute < 0 {
		return errors.New("CLIENT_BATCHES_PER_MINUTE must be >= 0")
	}
	if cfg.ClientBatchesPerMinute > 0 && cfg.ClientBatchBurst <= 0 {
		return errors.New("CLIENT_BATCH_BURST must be > 0")
	}
	if cfg.ProviderTimeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT must be > 0")
	}
	return nil
}

// DefaultConcurrency segue a regra histórica: 3 lotes simultâneos quando a Groq
// é o primeiro provedor, 5 quando só há Gemini, 1 sem provedor.
func DefaultConcurrency(cfg Config) int {
	switch {
	case cfg.Groq.Enabled():
		return 3
	case cfg.Gemini.Enabled():
		return 5
	default:
		return 1
	}
}

func readProvider(prefix, name string, minInterval time.Duration, maxConcurrent int) ProviderSettings {
	return ProviderSettings{
		APIKey:  os.Getenv(prefix + "_API_KEY"),
		Model:   os.Getenv(prefix + "_MODEL"),
		BaseURL: os.Getenv(prefix + "_BASE_URL"),
		Policy: domain.ProviderConfig{
			Name:              name,
			MinInterval:       getenvDurationDefault(prefix+"_MIN_INTERVAL", minInterval),
			MaxConcurrent:     getenvIntDefault(prefix+"_MAX_CONCURRENT", maxConcurrent),
			MaxRetries:        getenvIntDefault(prefix+"_MAX_RETRIES", 3),
			BaseBackoff:       getenvDurationDefault(prefix+"_BASE_BACKOFF", 4*time.Second),
			BackoffMultiplier: getenvFloatDefault(prefix+"_BACKOFF_MULTIPLIER", 1.5),
			MaxBackoff:        getenvDurationDefault(prefix+"_MAX_BACKOFF", 0),
		},
	}
}

// Summary devolve linhas de log no formato do startup do gateway.
func (cfg Config) Summary() []string {
	line := func(p ProviderSettings) string {
		return fmt.Sprintf("%s: enabled=%v minInterval=%s maxConcurrent=%d maxRetries=%d backoff=%s x%.2f",
			p.Policy.Name, p.Enabled(), p.Policy.MinInterval, p.Policy.MaxConcurrent,
			p.Policy.MaxRetries, p.Policy.BaseBackoff, p.Policy.BackoffMultiplier)
	}
	return []string{
		line(cfg.Groq),
		line(cfg.Gemini),
		fmt.Sprintf("batches: concurrency=%d maxConcurrency=%d maxBatches=%d acquireTimeout=%s",
			cfg.BatchConcurrency, cfg.BatchMaxConcurrency, cfg.MaxBatches, cfg.BatchAcquireTimeout),
		fmt.Sprintf("quota: perMinute=%.2f burst=%d keyHeader=%q trustXFF=%v",
			cfg.ClientBatchesPerMinute, cfg.ClientBatchBurst, cfg.ClientKeyHeader, cfg.TrustXFF),
		fmt.Sprintf("stats: enabled=%v redisAddr=%q bucket=%q ttl=%s trackItems=%v",
			cfg.StatsEnabled, cfg.StatsRedisAddr, cfg.StatsBucket, cfg.StatsTTL, cfg.StatsTrackItems),
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
