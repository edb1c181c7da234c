package infra

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// IntervalPacer garante que duas chamadas ao mesmo provedor não iniciem com menos de
// `interval` de distância. É um token bucket com burst 1: a reserva do próximo horário
// acontece sob o mutex do rate.Limiter, então chamadores concorrentes entram em fila.
//
// O espaçamento conta a partir do horário reservado, não de quando o chamador acordou:
// atraso do scheduler em um chamador encurta a distância medida até o próximo.
//
// Um IntervalPacer por provedor, compartilhado por todos os lotes do processo.
type IntervalPacer struct {
	name     string
	interval time.Duration
	lim      *rate.Limiter
}

func NewIntervalPacer(name string, interval time.Duration) *IntervalPacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &IntervalPacer{
		name:     name,
		interval: interval,
		lim:      rate.NewLimiter(limit, 1),
	}
}

func (p *IntervalPacer) Interval() time.Duration { return p.interval }

// Wait implementa domain.Pacer.
//
// Se o ctx for cancelado a reserva é devolvida e o erro do ctx é retornado.
// Se a espera necessária ultrapassa o deadline do ctx, falha na hora com
// context.DeadlineExceeded (sem dormir à toa).
func (p *IntervalPacer) Wait(ctx context.Context) error {
	err := p.lim.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%s pacer: %w (%v)", p.name, context.DeadlineExceeded, err)
}
