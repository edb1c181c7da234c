package application

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	TranscriptMarker  = "{{TRANSCRIPT}}"
	MaxTemplateLength = 10000
)

var (
	ErrTemplateMarker  = errors.New("prompt must include " + TranscriptMarker + " placeholder")
	ErrTemplateTooLong = fmt.Errorf("prompt exceeds maximum length of %d characters", MaxTemplateLength)
)

//go:embed prompts/notes.txt
var defaultPrompt string

// Template é o prompt enviado ao provedor, com o marcador onde entra a legenda.
// O valor zero usa o prompt padrão.
type Template struct {
	text string
}

func DefaultTemplate() Template { return Template{text: defaultPrompt} }

// ParseTemplate valida um prompt customizado. Vazio devolve o padrão.
func ParseTemplate(s string) (Template, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultTemplate(), nil
	}
	if utf8.RuneCountInString(s) > MaxTemplateLength {
		return Template{}, ErrTemplateTooLong
	}
	if !strings.Contains(s, TranscriptMarker) {
		return Template{}, ErrTemplateMarker
	}
	return Template{text: s}, nil
}

// Render substitui a primeira ocorrência do marcador pelo texto bruto.
func (t Template) Render(rawText string) string {
	text := t.text
	if text == "" {
		text = defaultPrompt
	}
	return strings.Replace(text, TranscriptMarker, rawText, 1)
}

func (t Template) String() string {
	if t.text == "" {
		return defaultPrompt
	}
	return t.text
}
