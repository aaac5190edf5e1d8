// Package narrator turns a month of trades into coaching text from a hosted
// language model.
package narrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"tradeflow/internal/core"
)

// EmptyAnalysis is returned when the model answers with no text.
const EmptyAnalysis = "Could not generate analysis."

const DefaultLanguage = "Persian (Farsi)"

type Narrator interface {
	Analyze(ctx context.Context, month core.Month, winRate int, netPnL float64) (string, error)
}

type Config struct {
	Provider string // anthropic or openai
	APIKey   string
	Model    string
	Language string
	BaseURL  string
}

// New returns the configured narrator, or nil when no API key is set.
func New(cfg Config) (Narrator, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "anthropic":
		return NewAnthropic(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

var promptTemplate = template.Must(template.New("prompt").Parse(`
Act as a world-class Forex Trading Psychology and Strategy Coach (like Mark Douglas or Tom Hougaard).
Analyze the following backtesting data for the month of {{.Name}}.

STATS:
- Win Rate: {{.WinRate}}%
- Net Profit/Loss: {{.NetPnL}}%
- Total Trades: {{.Total}}
- User Notes: "{{.Note}}"

TRADES LOG (JSON):
{{.TradesJSON}}

Please provide a concise but powerful analysis in {{.Language}} language.
1. Identify the biggest strength this month.
2. Identify the biggest leakage/weakness (e.g. holding losers, not taking full targets).
3. Give 3 actionable tips for the next month.

Output strictly in {{.Language}}. Use Markdown formatting.
`))

type promptTrade struct {
	Pair         string         `json:"pair"`
	Dir          core.Direction `json:"dir"`
	RR           float64        `json:"rr"`
	Result       core.Result    `json:"result"`
	MaxPotential float64        `json:"maxPotential"`
}

// Prompt renders the coaching request for a month.
func Prompt(month core.Month, winRate int, netPnL float64, language string) (string, error) {
	trades := make([]promptTrade, 0, len(month.Trades))
	for _, t := range month.Trades {
		trades = append(trades, promptTrade{Pair: t.Pair, Dir: t.Direction, RR: t.RR, Result: t.Result, MaxPotential: t.MaxRR})
	}
	tradesJSON, err := json.Marshal(trades)
	if err != nil {
		return "", fmt.Errorf("encode trades: %w", err)
	}

	note := month.Note
	if note == "" {
		note = "No notes provided"
	}
	if language == "" {
		language = DefaultLanguage
	}

	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, map[string]any{
		"Name":       month.Name,
		"WinRate":    winRate,
		"NetPnL":     netPnL,
		"Total":      len(month.Trades),
		"Note":       note,
		"TradesJSON": string(tradesJSON),
		"Language":   language,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

func orEmptyAnalysis(text string) string {
	if strings.TrimSpace(text) == "" {
		return EmptyAnalysis
	}
	return text
}
