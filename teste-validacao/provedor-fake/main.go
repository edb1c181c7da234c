// Servidor de validação manual: imita as APIs da Groq e do Gemini e devolve 429
// em uma fração das chamadas, para ver retry, backoff e fallback funcionando.
//
//	GROQ_BASE_URL=http://localhost:8081/openai/v1 GEMINI_BASE_URL=http://localhost:8081 go run ./cmd/gateway
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

func main() {
	// a cada N chamadas, uma recebe 429
	every := 3
	if v, err := strconv.Atoi(os.Getenv("FAKE_429_EVERY")); err == nil && v > 0 {
		every = v
	}
	var calls atomic.Int64
	var last atomic.Int64

	throttle := func(w http.ResponseWriter, provider string) bool {
		n := calls.Add(1)
		now := time.Now().UnixMilli()
		gap := now - last.Swap(now)
		fmt.Printf("Log: %s chamada #%d (intervalo desde a anterior: %dms)\n", provider, n, gap)
		if n%int64(every) == 0 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":{"message":"rate limit (fake)"}}`)
			return true
		}
		return false
	}

	http.HandleFunc("/openai/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if throttle(w, "groq") {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "## Notas (groq fake)\n\n- ok"}}},
		})
	})
	http.HandleFunc("/v1beta/models/", func(w http.ResponseWriter, r *http.Request) {
		if throttle(w, "gemini") {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "## Notas (gemini fake)\n\n- ok"}}}}},
		})
	})

	fmt.Println("Provedor fake rodando em http://localhost:8081")
	err := http.ListenAndServe(":8081", nil)
	if err != nil {
		fmt.Printf("Erro ao subir o servidor: %s\n", err)
	}
}
