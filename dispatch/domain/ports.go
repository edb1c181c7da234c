package domain

import (
	"context"
	"time"
)

// Pacer garante o intervalo mínimo entre inícios de chamada de um provedor.
//
// Wait bloqueia até ser seguro iniciar a chamada ou até o ctx encerrar.
// A reserva do próximo horário é atômica: chamadores concorrentes entram em fila.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SlotPool representa um recurso com capacidade finita (chamadas em voo de um provedor).
//
// A semântica é: Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Invoker faz uma única troca request/response com um provedor.
// Não faz retry. Deve devolver ErrRateLimited, *ProviderError ou ErrEmptyResponse.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Source resolve o conteúdo bruto (título + legenda) de um item pelo ID.
type Source interface {
	Fetch(ctx context.Context, id string) (WorkItem, error)
}

// ProgressSink recebe um evento por item concluído e um sinal terminal.
// O dispatcher serializa as chamadas; implementações não precisam de lock próprio.
type ProgressSink interface {
	Item(r Result)
	Finish(s Summary, err error)
}

// ItemStarter é opcional para um ProgressSink: recebe o item quando o
// processamento começa, antes da busca na Source. Chamadas serializadas com Item.
type ItemStarter interface {
	Started(it WorkItem)
}

// CallObserver é notificado a cada chamada ao provedor e a cada backoff.
// kind vazio significa sucesso.
type CallObserver interface {
	ObserveCall(provider string, kind ErrorKind, took time.Duration)
	ObserveBackoff(provider string, wait time.Duration)
}

// StatsEvent representa o desfecho de um item, para estatísticas.
//
// Cuidado com cardinalidade: ItemID só é gravado se a implementação pedir.
type StatsEvent struct {
	BatchID  string
	ItemID   string
	Provider string
	Success  bool
	Skipped  bool
	Kind     ErrorKind
	At       time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de desfecho.
//
// Implementações podem armazenar em Redis, memória, Prometheus etc.
// O dispatcher trata erro como best-effort (não derruba o item).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
