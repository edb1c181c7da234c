// Package application contém os casos de uso do despacho para provedores de LLM:
// lane (vaga + ritmo), retry com backoff, fallback entre provedores e lotes.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Orchestrator.Generate(item) sempre devolve um Result (degradado se
// nenhum provedor respondeu).
package application

import "log/slog"

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
