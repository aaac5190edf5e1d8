package narrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"tradeflow/internal/core"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAI struct {
	client   openai.Client
	model    string
	language string
}

func NewOpenAI(cfg Config) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(1)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model, language: cfg.Language}
}

func (o *OpenAI) Analyze(ctx context.Context, month core.Month, winRate int, netPnL float64) (string, error) {
	prompt, err := Prompt(month, winRate, netPnL, o.language)
	if err != nil {
		return "", err
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "OpenAI analysis failed", "month_id", month.ID, "error", err)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return EmptyAnalysis, nil
	}
	return orEmptyAnalysis(resp.Choices[0].Message.Content), nil
}
