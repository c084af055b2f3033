package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

const digestPrompt = "Condense the following conversation excerpts into a short digest of " +
	"the durable facts and preferences they contain. Drop greetings and " +
	"small talk. Answer with the digest only.\n\n"

// Anthropic summarizes conversations with a small Claude model.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropic creates a Claude-backed summarizer. The client picks up
// ANTHROPIC_API_KEY from the environment.
func NewAnthropic() *Anthropic {
	return &Anthropic{
		client:    anthropic.NewClient(),
		model:     anthropic.ModelClaude3_5HaikuLatest,
		maxTokens: 512,
	}
}

// Summarize asks the model for a digest of the given conversations.
func (a *Anthropic) Summarize(ctx context.Context, texts []string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(digestPrompt + strings.Join(texts, "\n---\n"))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var digest string
	for _, block := range resp.Content {
		if block.Type == "text" {
			digest += block.Text
		}
	}
	if digest == "" {
		return "", fmt.Errorf("empty digest response")
	}
	return digest, nil
}
