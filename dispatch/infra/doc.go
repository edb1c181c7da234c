// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - IntervalPacer: intervalo mínimo entre chamadas usando golang.org/x/time/rate
//   - SlotPool: semáforo FIFO (golang.org/x/sync/semaphore) para chamadas em voo
//   - GroqClient / GeminiClient: invokers HTTP de uma única tentativa
//   - HTTPSource / StaticSource: de onde vem o texto bruto dos itens
//   - MemoryStatsStore / RedisStatsStore / Metrics: estatísticas de desfecho
//   - QuotaStore: token bucket por cliente para a cota de lotes
package infra
