// Command notes processa um lote de transcrições uma única vez e escreve o
// progresso em NDJSON no stdout.
//
//	notes -items aulas.json [-prompt prompt.txt] [-concurrency 3] [-captions-only]
//
// O arquivo de itens é um array JSON de {id, title, text}. Itens sem text são
// buscados em CAPTIONS_URL. Provedores e políticas vêm das mesmas variáveis de
// ambiente do gateway.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"notes-gateway/dispatch"
	"notes-gateway/dispatch/application"
	"notes-gateway/dispatch/domain"

	"github.com/google/uuid"
)

func main() {
	itemsPath := flag.String("items", "", "JSON file with [{id, title, text}]")
	promptPath := flag.String("prompt", "", "prompt template file (overrides PROMPT_FILE)")
	concurrency := flag.Int("concurrency", 0, "items processed at once (default BATCH_CONCURRENCY)")
	captionsOnly := flag.Bool("captions-only", false, "skip the LLM and emit raw captions as markdown")
	flag.Parse()

	if *itemsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := dispatch.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if *promptPath != "" {
		cfg.PromptFile = *promptPath
	}
	logger := dispatch.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	items, err := readItems(*itemsPath)
	if err != nil {
		log.Fatalf("items error: %v", err)
	}
	tmpl, err := dispatch.LoadTemplate(cfg)
	if err != nil {
		log.Fatalf("prompt error: %v", err)
	}
	providers, err := dispatch.BuildProviders(cfg)
	if err != nil {
		log.Fatalf("provider error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	batch := application.Batch{
		ID:            uuid.NewString(),
		Items:         items,
		Template:      tmpl,
		Concurrency:   cfg.BatchConcurrency,
		SkipTransform: *captionsOnly,
	}
	if *concurrency > 0 {
		batch.Concurrency = *concurrency
	}

	d := dispatch.NewDispatcher(cfg, providers, dispatch.Options{Logger: logger})
	sink := dispatch.NewJSONLinesSink(os.Stdout, batch.ID, len(items))
	sink.Start(batch.SkipTransform)

	summary, err := d.ProcessBatch(ctx, batch, sink)
	if werr := sink.Err(); werr != nil {
		log.Fatalf("write error: %v", werr)
	}
	if err != nil {
		log.Fatalf("batch error: %v", err)
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

type itemFile struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

func readItems(path string) ([]domain.WorkItem, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []itemFile
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: no items", path)
	}
	out := make([]domain.WorkItem, 0, len(raw))
	for i, it := range raw {
		if it.ID == "" {
			return nil, fmt.Errorf("%s: item %d has no id", path, i)
		}
		out = append(out, domain.WorkItem{ID: it.ID, Title: it.Title, RawText: it.Text})
	}
	return out, nil
}
