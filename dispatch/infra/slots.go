package infra

import (
	"context"

	"notes-gateway/dispatch/domain"

	"golang.org/x/sync/semaphore"
)

type semPool struct {
	sem *semaphore.Weighted
}

type unboundedPool struct{}

// NewSlotPool cria um pool FIFO com capacidade `max`.
// max <= 0 devolve um pool sem limite.
func NewSlotPool(max int) domain.SlotPool {
	if max <= 0 {
		return unboundedPool{}
	}
	return &semPool{sem: semaphore.NewWeighted(int64(max))}
}

func (p *semPool) Acquire(ctx context.Context) (func(), error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { p.sem.Release(1) }, nil
}

func (unboundedPool) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
