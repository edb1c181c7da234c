package application

import (
	"context"
	"log/slog"

	"notes-gateway/dispatch/domain"
)

// Orchestrator tenta os provedores na ordem configurada até um responder.
type Orchestrator struct {
	Providers []*Provider
	Retrier   Retrier
	Logger    *slog.Logger
}

// Generate nunca devolve erro por falha de provedor: se todos falharem, o Result
// vem com Success=false, ErrorKind=all_providers_exhausted e o texto bruto
// renderizado como conteúdo. O único erro possível é o do ctx (lote cancelado).
func (o *Orchestrator) Generate(ctx context.Context, item domain.WorkItem, prompt string) (domain.Result, error) {
	log := loggerOrDefault(o.Logger)
	res := domain.Result{ItemID: item.ID, Title: item.Title}

	lastErr := "no provider configured"
	for _, p := range o.Providers {
		if err := ctx.Err(); err != nil {
			return domain.Result{}, err
		}

		text, calls, err := o.Retrier.CallWithRetry(ctx, p, prompt)
		res.Attempts = append(res.Attempts, domain.Attempt{
			Provider: p.Name(),
			Calls:    calls,
			Kind:     domain.KindOf(err),
		})
		if err == nil {
			res.Success = true
			res.Provider = p.Name()
			res.Content = text
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Result{}, ctxErr
		}

		log.Warn("provider failed",
			"item_id", item.ID,
			"provider", p.Name(),
			"calls", calls,
			"kind", domain.KindOf(err),
			"err", err,
		)
		lastErr = err.Error()
	}

	res.Content = item.Fallback()
	res.ErrorKind = domain.KindExhausted
	res.Error = lastErr
	return res, nil
}
