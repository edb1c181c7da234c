package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"notes-gateway/dispatch/domain"
)

// Status de lote e de item, no vocabulário que os clientes web já consomem.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"

	CaptionFetching = "fetching"
	CaptionDone     = "done"
	CaptionError    = "error"

	LLMPending = "pending"
	LLMDone    = "done"
	LLMError   = "error"
	LLMSkipped = "skipped"
)

// ProgressEvent é uma linha do stream de progresso (SSE ou NDJSON).
type ProgressEvent struct {
	BatchID       string           `json:"batchId,omitempty"`
	Progress      int              `json:"progress"`
	Status        string           `json:"status"`
	Message       string           `json:"message"`
	LectureID     string           `json:"lectureId,omitempty"`
	LectureTitle  string           `json:"lectureTitle,omitempty"`
	CaptionStatus string           `json:"captionStatus,omitempty"`
	LLMStatus     string           `json:"llmStatus,omitempty"`
	LLMProvider   string           `json:"llmProvider,omitempty"`
	Content       string           `json:"content,omitempty"`
	ErrorKind     string           `json:"errorKind,omitempty"`
	Error         string           `json:"error,omitempty"`
	Attempts      []domain.Attempt `json:"attempts,omitempty"`
	Summary       *domain.Summary  `json:"summary,omitempty"`
}

// StreamSink transforma Results em ProgressEvents e entrega a um writer.
// Implementa domain.ProgressSink; as chamadas já chegam serializadas.
type StreamSink struct {
	batchID string
	total   int
	started int
	done    int
	skip    bool
	write   func(ProgressEvent) error
	// err guarda a primeira falha de escrita (cliente desconectou, pipe fechado).
	err error
}

// NewSSESink escreve eventos `data: {json}\n\n` e faz flush a cada um.
func NewSSESink(w http.ResponseWriter, batchID string, total int) *StreamSink {
	rc := http.NewResponseController(w)
	write := func(ev ProgressEvent) error {
		b, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return err
		}
		return rc.Flush()
	}
	return &StreamSink{batchID: batchID, total: total, write: write}
}

// NewJSONLinesSink escreve um evento JSON por linha.
func NewJSONLinesSink(w io.Writer, batchID string, total int) *StreamSink {
	enc := json.NewEncoder(w)
	return &StreamSink{batchID: batchID, total: total, write: func(ev ProgressEvent) error { return enc.Encode(ev) }}
}

func (s *StreamSink) emit(ev ProgressEvent) {
	if s.err != nil {
		return
	}
	ev.BatchID = s.batchID
	s.err = s.write(ev)
}

func (s *StreamSink) Err() error { return s.err }

// Start anuncia o lote antes do primeiro item.
func (s *StreamSink) Start(skipTransform bool) {
	s.skip = skipTransform
	msg := "Starting to process lectures..."
	if skipTransform {
		msg = "Fetching captions..."
	}
	s.emit(ProgressEvent{Status: StatusProcessing, Message: msg})
}

// Started implementa domain.ItemStarter.
func (s *StreamSink) Started(it domain.WorkItem) {
	s.started++
	s.emit(StartedEvent(it, s.started, s.done, s.total, s.skip))
}

func (s *StreamSink) Item(r domain.Result) {
	s.done++
	s.emit(ItemEvent(r, s.done, s.total))
}

func (s *StreamSink) Finish(sum domain.Summary, err error) {
	s.emit(FinishEvent(sum, err))
}

// StartedEvent anuncia o n-ésimo item iniciado; o progresso reflete os já concluídos.
func StartedEvent(it domain.WorkItem, n, done, total int, skip bool) ProgressEvent {
	ev := ProgressEvent{
		Progress:      percent(done, total),
		Status:        StatusProcessing,
		Message:       fmt.Sprintf("Processing lecture %d of %d", n, total),
		LectureID:     it.ID,
		LectureTitle:  it.Title,
		CaptionStatus: CaptionFetching,
		LLMStatus:     LLMPending,
	}
	if skip {
		ev.Message = fmt.Sprintf("Fetching captions for lecture %d of %d", n, total)
		ev.LLMStatus = LLMSkipped
	}
	return ev
}

// ItemEvent converte o Result do n-ésimo item concluído em evento.
func ItemEvent(r domain.Result, n, total int) ProgressEvent {
	ev := ProgressEvent{
		Progress:      percent(n, total),
		Status:        StatusProcessing,
		Message:       fmt.Sprintf("Completed lecture %d of %d", n, total),
		LectureID:     r.ItemID,
		LectureTitle:  r.Title,
		CaptionStatus: CaptionDone,
		LLMProvider:   r.Provider,
		Content:       r.Content,
		ErrorKind:     string(r.ErrorKind),
		Error:         r.Error,
		Attempts:      r.Attempts,
	}
	switch {
	case r.Skipped:
		ev.LLMStatus = LLMSkipped
	case r.Success:
		ev.LLMStatus = LLMDone
	default:
		ev.LLMStatus = LLMError
	}
	if r.ErrorKind == domain.KindSourceFetchFailed {
		ev.CaptionStatus = CaptionError
		ev.Message = fmt.Sprintf("Failed to process lecture %s", r.ItemID)
	}
	return ev
}

// FinishEvent é o evento terminal do lote.
func FinishEvent(sum domain.Summary, err error) ProgressEvent {
	switch {
	case err == nil:
		msg := "All lectures have been processed successfully!"
		if sum.Failed > 0 {
			msg = fmt.Sprintf("Processed %d lectures, %d fell back to raw captions or failed", sum.Completed, sum.Failed)
		}
		return ProgressEvent{Progress: 100, Status: StatusCompleted, Message: msg, Summary: &sum}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ProgressEvent{Progress: percent(sum.Completed, sum.Total), Status: StatusError, Message: "Batch cancelled", Error: err.Error(), Summary: &sum}
	default:
		return ProgressEvent{Status: StatusError, Message: "Failed to process lectures", Error: err.Error(), Summary: &sum}
	}
}

func percent(n, total int) int {
	if total <= 0 {
		return 100
	}
	return n * 100 / total
}
