package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"notes-gateway/dispatch/domain"

	"golang.org/x/sync/errgroup"
)

// Batch é um pedido de processamento. Itens sem RawText são buscados na Source.
type Batch struct {
	ID          string
	Items       []domain.WorkItem
	Template    Template
	Concurrency int
	// SkipTransform é o modo "somente legendas": nenhum provedor é chamado e o
	// conteúdo é o texto bruto renderizado.
	SkipTransform bool
}

// Dispatcher processa lotes com concorrência limitada e isolamento de falhas.
type Dispatcher struct {
	Orchestrator *Orchestrator
	Source       domain.Source
	Stats        domain.StatsStore
	Logger       *slog.Logger
	// MaxConcurrency é o teto para Batch.Concurrency. <= 0 não limita.
	MaxConcurrency int
}

// HasProviders informa se há ao menos um provedor configurado.
func (d *Dispatcher) HasProviders() bool {
	return d.Orchestrator != nil && len(d.Orchestrator.Providers) > 0
}

// ProcessBatch emite um Result por item concluído (ordem de conclusão) e termina
// com sink.Finish. Se o sink implementa domain.ItemStarter, cada item é anunciado
// ao começar. As chamadas ao sink são serializadas.
//
// Cancelamento: nenhum item novo é iniciado, itens em voo descartam o Result e o
// erro do ctx é devolvido. Sem provedor (e fora do modo somente legendas) o lote
// falha com domain.ErrNoProviders antes de qualquer item.
func (d *Dispatcher) ProcessBatch(ctx context.Context, b Batch, sink domain.ProgressSink) (domain.Summary, error) {
	log := loggerOrDefault(d.Logger).With("batch_id", b.ID)
	summary := domain.Summary{Total: len(b.Items)}

	if !b.SkipTransform && !d.HasProviders() {
		sink.Finish(summary, domain.ErrNoProviders)
		return summary, domain.ErrNoProviders
	}

	limit := b.Concurrency
	if limit <= 0 {
		limit = 1
	}
	if d.MaxConcurrency > 0 && limit > d.MaxConcurrency {
		limit = d.MaxConcurrency
	}

	log.Info("batch started", "items", len(b.Items), "concurrency", limit, "skip_transform", b.SkipTransform)
	begin := time.Now()

	var mu sync.Mutex
	starter, _ := sink.(domain.ItemStarter)
	start := func(it domain.WorkItem) bool {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return false
		}
		if starter != nil {
			starter.Started(it)
		}
		return true
	}
	emit := func(r domain.Result) bool {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return false
		}
		summary.Add(r)
		sink.Item(r)
		return true
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, it := range b.Items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if !start(it) {
				return nil
			}
			r, ok := d.processItem(ctx, log, b, it)
			if !ok || !emit(r) {
				return nil
			}
			d.record(ctx, log, b.ID, r)
			return nil
		})
	}
	_ = g.Wait()

	err := ctx.Err()
	mu.Lock()
	if err != nil {
		log.Warn("batch cancelled", "completed", summary.Completed, "total", summary.Total, "err", err)
	} else {
		log.Info("batch finished",
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
			"skipped", summary.Skipped,
			"took", time.Since(begin),
		)
	}
	sink.Finish(summary, err)
	out := summary
	mu.Unlock()
	return out, err
}

// processItem devolve ok=false quando o item foi cancelado junto com o lote.
func (d *Dispatcher) processItem(ctx context.Context, log *slog.Logger, b Batch, it domain.WorkItem) (res domain.Result, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("item panicked", "item_id", it.ID, "panic", p)
			res = domain.Result{
				ItemID:    it.ID,
				Title:     it.Title,
				ErrorKind: domain.KindUnknown,
				Error:     fmt.Sprintf("panic: %v", p),
			}
			if it.RawText != "" {
				res.Content = it.Fallback()
			}
			ok = ctx.Err() == nil
		}
	}()

	item, err := d.resolve(ctx, it)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Result{}, false
		}
		log.Warn("source fetch failed", "item_id", it.ID, "err", err)
		return domain.Result{
			ItemID:    it.ID,
			Title:     it.Title,
			ErrorKind: domain.KindSourceFetchFailed,
			Error:     err.Error(),
		}, true
	}

	if b.SkipTransform {
		return domain.Result{
			ItemID:  item.ID,
			Title:   item.Title,
			Content: item.Fallback(),
			Success: true,
			Skipped: true,
		}, true
	}

	r, err := d.Orchestrator.Generate(ctx, item, b.Template.Render(item.RawText))
	if err != nil {
		return domain.Result{}, false
	}
	return r, true
}

func (d *Dispatcher) resolve(ctx context.Context, it domain.WorkItem) (domain.WorkItem, error) {
	if it.RawText != "" {
		return it, nil
	}
	if d.Source == nil {
		return domain.WorkItem{}, fmt.Errorf("%s: %w: no captions and no source configured", it.ID, domain.ErrSourceFetch)
	}
	fetched, err := d.Source.Fetch(ctx, it.ID)
	if err != nil {
		return domain.WorkItem{}, err
	}
	if it.Title != "" {
		fetched.Title = it.Title
	}
	fetched.ID = it.ID
	return fetched, nil
}

// record é best-effort: falha de stats só vira log.
func (d *Dispatcher) record(ctx context.Context, log *slog.Logger, batchID string, r domain.Result) {
	if d.Stats == nil {
		return
	}
	ev := domain.StatsEvent{
		BatchID:  batchID,
		ItemID:   r.ItemID,
		Provider: r.Provider,
		Success:  r.Success,
		Skipped:  r.Skipped,
		Kind:     r.ErrorKind,
		At:       time.Now(),
	}
	if err := d.Stats.Record(ctx, ev); err != nil {
		log.Warn("stats record failed", "item_id", r.ItemID, "err", err)
	}
}
