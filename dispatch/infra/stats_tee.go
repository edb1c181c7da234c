package infra

import (
	"context"
	"errors"

	"notes-gateway/dispatch/domain"
)

// TeeStats replica cada evento para vários stores (ex.: Prometheus + Redis).
type TeeStats []domain.StatsStore

func (t TeeStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range t {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
