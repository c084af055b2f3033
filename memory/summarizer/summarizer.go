// Package summarizer condenses aged-out conversation records into short
// digests before cleanup deletes them.
package summarizer

import (
	"context"
	"strings"
)

// Summarizer condenses a batch of conversation documents into one digest.
type Summarizer interface {
	Summarize(ctx context.Context, texts []string) (string, error)
}

// Heuristic is the model-free Summarizer: it keeps the first line of each
// conversation, clipped to a budget. Crude, but it needs no credentials
// and never fails.
type Heuristic struct {
	// MaxLength bounds the digest size in bytes (default: 2000).
	MaxLength int
}

// Summarize joins the first line of each text until the budget runs out.
func (h Heuristic) Summarize(ctx context.Context, texts []string) (string, error) {
	maxLength := h.MaxLength
	if maxLength <= 0 {
		maxLength = 2000
	}

	var b strings.Builder
	for _, text := range texts {
		line := text
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		if b.Len()+len(line)+1 > maxLength {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
