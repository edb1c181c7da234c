// Package dispatch fornece os adapters HTTP (net/http) e o wiring do despacho de
// transcrições para provedores de LLM.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (retry, fallback entre provedores, lotes) sem net/http
//   - infra: implementações concretas (x/time/rate, semáforo, clientes HTTP, Redis, Prometheus)
//   - dispatch (este pacote): config via env, montagem dos provedores, stream SSE,
//     controle de admissão de lotes
//
// Fluxo no gateway:
//
//  1. POST /v1/batches com os itens (id, título, legenda) e prompt opcional
//  2. O middleware de admissão reserva uma vaga de lote (503 se saturado)
//  3. O Dispatcher processa os itens com concorrência limitada
//  4. Cada item concluído vira um evento SSE; o último evento traz o resumo
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como GROQ_API_KEY, GEMINI_API_KEY, BATCH_CONCURRENCY e MAX_BATCHES.
package dispatch
