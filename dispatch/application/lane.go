package application

import (
	"context"

	"notes-gateway/dispatch/domain"
)

// Lane é o caminho de saída de um provedor: limite de concorrência + intervalo mínimo.
type Lane struct {
	Slots domain.SlotPool
	Pacer domain.Pacer
}

// Do executa fn ocupando uma vaga do provedor. Dentro da vaga espera o pacer
// antes de chamar fn. A vaga é liberada em qualquer desfecho, inclusive panic.
func (l Lane) Do(ctx context.Context, fn func(context.Context) error) error {
	if l.Slots != nil {
		release, err := l.Slots.Acquire(ctx)
		if err != nil {
			return err
		}
		defer release()
	}
	if l.Pacer != nil {
		if err := l.Pacer.Wait(ctx); err != nil {
			return err
		}
	}
	return fn(ctx)
}

// Provider junta política, lane e invoker de um provedor.
type Provider struct {
	Config  domain.ProviderConfig
	Invoker domain.Invoker
	Lane    Lane
}

func (p *Provider) Name() string { return p.Config.Name }
