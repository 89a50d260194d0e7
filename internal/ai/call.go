package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// Usage is the token count of one completed call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// call sends a single-message prompt through the retry stack, records
// spend, and returns the concatenated text content.
func (g *Generator) call(ctx context.Context, operation, model, prompt string, maxTokens int64) (string, Usage, error) {
	start := time.Now()
	if model == "" {
		model = g.model
	}
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var response *anthropic.Message
	err := g.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := g.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	usage := Usage{
		InputTokens:  response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
	}

	if g.costTracker != nil {
		if err := g.costTracker.RecordUsage(g.runID, usage.InputTokens, usage.OutputTokens); err != nil {
			slog.Warn("failed to record AI usage", "operation", operation, "error", err)
		}
	}

	slog.Debug("AI call complete",
		"operation", operation, "model", model,
		"input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens,
		"duration", time.Since(start))

	return text, usage, nil
}
