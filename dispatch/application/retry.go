package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notes-gateway/dispatch/domain"
)

// Retrier repete chamadas que receberam rate limit, com backoff exponencial.
// Qualquer outro erro encerra na hora (o orchestrator tenta o próximo provedor).
type Retrier struct {
	Logger   *slog.Logger
	Observer domain.CallObserver
	// Sleep permite trocar o relógio nos testes. nil usa sleepCtx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// CallWithRetry devolve o texto, quantas chamadas foram feitas e o erro final.
//
// Com 429 permanente são feitas exatamente MaxRetries+1 chamadas e o erro
// final wrapa domain.ErrRetriesExhausted e domain.ErrRateLimited.
// A vaga do provedor não fica presa durante o backoff.
func (r Retrier) CallWithRetry(ctx context.Context, p *Provider, prompt string) (string, int, error) {
	cfg := p.Config
	log := loggerOrDefault(r.Logger)
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	backoff := cfg.BaseBackoff
	calls := 0
	for attempt := 0; ; attempt++ {
		var text string
		err := p.Lane.Do(ctx, func(ctx context.Context) error {
			calls++
			start := time.Now()
			out, err := p.Invoker.Invoke(ctx, prompt)
			if r.Observer != nil {
				r.Observer.ObserveCall(cfg.Name, domain.KindOf(err), time.Since(start))
			}
			text = out
			return err
		})
		if err == nil {
			return text, calls, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", calls, ctxErr
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return "", calls, err
		}
		if attempt >= cfg.MaxRetries {
			return "", calls, fmt.Errorf("%s after %d calls: %w: %w", cfg.Name, calls, domain.ErrRetriesExhausted, err)
		}

		log.Debug("rate limited, backing off",
			"provider", cfg.Name,
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"backoff", backoff,
		)
		if r.Observer != nil {
			r.Observer.ObserveBackoff(cfg.Name, backoff)
		}
		if err := sleep(ctx, backoff); err != nil {
			return "", calls, err
		}
		backoff = cfg.NextBackoff(backoff)
	}
}

// sleepCtx dorme d ou até o ctx encerrar.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
