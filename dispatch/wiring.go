package dispatch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"notes-gateway/dispatch/application"
	"notes-gateway/dispatch/domain"
	"notes-gateway/dispatch/infra"
)

// NewLogger monta o logger a partir de LOG_LEVEL / LOG_FORMAT.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// BuildProviders devolve os provedores habilitados na ordem de preferência
// (Groq, depois Gemini). Cada um ganha o próprio pacer e pool de vagas,
// compartilhados por todos os lotes do processo.
func BuildProviders(cfg Config) ([]*application.Provider, error) {
	var out []*application.Provider

	if cfg.Groq.Enabled() {
		inv, err := infra.NewGroqClient(infra.GroqOptions{
			BaseURL: cfg.Groq.BaseURL,
			Model:   cfg.Groq.Model,
			APIKey:  cfg.Groq.APIKey,
			Timeout: cfg.ProviderTimeout,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, newProvider(cfg.Groq.Policy, inv))
	}
	if cfg.Gemini.Enabled() {
		inv, err := infra.NewGeminiClient(infra.GeminiOptions{
			BaseURL: cfg.Gemini.BaseURL,
			Model:   cfg.Gemini.Model,
			APIKey:  cfg.Gemini.APIKey,
			Timeout: cfg.ProviderTimeout,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, newProvider(cfg.Gemini.Policy, inv))
	}
	return out, nil
}

func newProvider(policy domain.ProviderConfig, inv domain.Invoker) *application.Provider {
	return &application.Provider{
		Config:  policy,
		Invoker: inv,
		Lane: application.Lane{
			Slots: infra.NewSlotPool(policy.MaxConcurrent),
			Pacer: infra.NewIntervalPacer(policy.Name, policy.MinInterval),
		},
	}
}

// Options são as dependências opcionais do Dispatcher.
type Options struct {
	Logger   *slog.Logger
	Observer domain.CallObserver
	Stats    domain.StatsStore
	// Source substitui a fonte HTTP de CAPTIONS_URL.
	Source domain.Source
}

func NewDispatcher(cfg Config, providers []*application.Provider, opts Options) *application.Dispatcher {
	src := opts.Source
	if src == nil && cfg.CaptionsURL != "" {
		src = infra.NewHTTPSource(cfg.CaptionsURL, cfg.ProviderTimeout)
	}
	return &application.Dispatcher{
		Orchestrator: &application.Orchestrator{
			Providers: providers,
			Retrier:   application.Retrier{Logger: opts.Logger, Observer: opts.Observer},
			Logger:    opts.Logger,
		},
		Source:         src,
		Stats:          opts.Stats,
		Logger:         opts.Logger,
		MaxConcurrency: cfg.BatchMaxConcurrency,
	}
}

// LoadTemplate lê PROMPT_FILE (se definido) ou usa o prompt embutido.
func LoadTemplate(cfg Config) (application.Template, error) {
	if cfg.PromptFile == "" {
		return application.DefaultTemplate(), nil
	}
	b, err := os.ReadFile(cfg.PromptFile)
	if err != nil {
		return application.Template{}, fmt.Errorf("read PROMPT_FILE: %w", err)
	}
	t, err := application.ParseTemplate(string(b))
	if err != nil {
		return application.Template{}, fmt.Errorf("PROMPT_FILE: %w", err)
	}
	return t, nil
}
