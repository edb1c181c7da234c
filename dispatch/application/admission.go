package application

import (
	"context"
	"time"

	"notes-gateway/dispatch/domain"
)

// Admission concentra a regra de aquisição/liberação de vagas de lote com timeout,
// sem saber nada sobre HTTP.
type Admission struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
// - Se `AcquireTimeout <= 0`, espera indefinidamente (até ctx cancelar).
// - Se `AcquireTimeout > 0`, espera até o timeout.
// Se err != nil, nenhuma vaga foi adquirida.
func (a Admission) Acquire(ctx context.Context) (func(), error) {
	if a.Pool == nil {
		return func() {}, nil
	}

	if a.AcquireTimeout <= 0 {
		return a.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, a.AcquireTimeout)
	defer cancel()
	return a.Pool.Acquire(acqCtx)
}
