package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"notes-gateway/dispatch/application"
	"notes-gateway/dispatch/domain"

	"github.com/google/uuid"
)

// Modo "somente legendas": não chama LLM.
const ModeCaptionsOnly = "captions-only"

const maxRequestBody = 32 << 20

type BatchItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type BatchRequest struct {
	Items       []BatchItem `json:"items"`
	Prompt      string      `json:"prompt,omitempty"`
	Mode        string      `json:"mode,omitempty"`
	Concurrency int         `json:"concurrency,omitempty"`
}

// BatchHandler recebe um lote via POST e responde com um stream SSE de progresso.
type BatchHandler struct {
	Dispatcher         *application.Dispatcher
	Template           application.Template
	DefaultConcurrency int
	Logger             *slog.Logger
	// NewID gera o ID do lote. nil usa uuid.NewString.
	NewID func() string
}

func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	batch, err := h.decode(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !batch.SkipTransform && !h.Dispatcher.HasProviders() {
		http.Error(w, domain.ErrNoProviders.Error(), http.StatusServiceUnavailable)
		return
	}

	log := h.Logger
	if log == nil {
		log = slog.Default()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Batch-Id", batch.ID)
	w.WriteHeader(http.StatusOK)

	sink := NewSSESink(w, batch.ID, len(batch.Items))
	sink.Start(batch.SkipTransform)

	// O ctx da request cancela o lote se o cliente desconectar.
	summary, err := h.Dispatcher.ProcessBatch(r.Context(), batch, sink)
	if err != nil {
		log.Warn("batch ended with error", "batch_id", batch.ID, "completed", summary.Completed, "err", err)
	}
	if werr := sink.Err(); werr != nil {
		log.Debug("progress stream write failed", "batch_id", batch.ID, "err", werr)
	}
}

func (h *BatchHandler) decode(w http.ResponseWriter, r *http.Request) (application.Batch, error) {
	var req BatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		return application.Batch{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if len(req.Items) == 0 {
		return application.Batch{}, errors.New("items is required")
	}

	b := application.Batch{
		Template:    h.Template,
		Concurrency: req.Concurrency,
	}
	if b.Concurrency <= 0 {
		b.Concurrency = h.DefaultConcurrency
	}

	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "":
	case ModeCaptionsOnly:
		b.SkipTransform = true
	default:
		return application.Batch{}, errors.New("unknown mode: " + req.Mode)
	}

	if req.Prompt != "" {
		t, err := application.ParseTemplate(req.Prompt)
		if err != nil {
			return application.Batch{}, err
		}
		b.Template = t
	}

	b.Items = make([]domain.WorkItem, 0, len(req.Items))
	for i, it := range req.Items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return application.Batch{}, fmt.Errorf("items[%d].id is required", i)
		}
		b.Items = append(b.Items, domain.WorkItem{ID: id, Title: it.Title, RawText: it.Text})
	}

	newID := h.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	b.ID = newID()
	return b, nil
}
