package narrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"tradeflow/internal/core"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

type Anthropic struct {
	client   anthropic.Client
	model    string
	language string
}

func NewAnthropic(cfg Config) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(1)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{client: anthropic.NewClient(opts...), model: model, language: cfg.Language}
}

func (a *Anthropic) Analyze(ctx context.Context, month core.Month, winRate int, netPnL float64) (string, error) {
	prompt, err := Prompt(month, winRate, netPnL, a.language)
	if err != nil {
		return "", err
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		MaxTokens: 1500,
		Model:     anthropic.Model(a.model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "Anthropic analysis failed", "month_id", month.ID, "error", err)
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return orEmptyAnalysis(sb.String()), nil
}
