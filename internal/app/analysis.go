package app

import (
	"context"
	"errors"
	"strings"

	"tradeflow/internal/core"
	"tradeflow/internal/log"
)

// AnalysisUnavailable is shown whenever the coach cannot produce text.
const AnalysisUnavailable = "Error connecting to AI Coach. Please check API Key."

// ErrAnalysisInFlight is returned while a month already has a request
// outstanding.
var ErrAnalysisInFlight = errors.New("analysis already running for this month")

// Analysis is the latest coaching text for a month.
type Analysis struct {
	MonthID string     `json:"monthId"`
	Text    string     `json:"text"`
	Failed  bool       `json:"error"`
	Stats   core.Stats `json:"stats"`
}

// Analyze asks the narrator about the month's current trades and stores the
// answer, replacing any earlier one. Narrator failures never surface as
// errors; they produce AnalysisUnavailable.
func (c *Controller) Analyze(ctx context.Context, strategyID, monthID string) (Analysis, bool, error) {
	c.mu.Lock()
	m := c.state.month(strategyID, monthID)
	if m == nil {
		c.mu.Unlock()
		return Analysis{}, false, nil
	}
	if c.inFlight[monthID] {
		c.mu.Unlock()
		return Analysis{}, true, ErrAnalysisInFlight
	}
	c.inFlight[monthID] = true
	month := m.Clone()
	gen := c.gen
	c.mu.Unlock()

	stats := core.MonthStats(month)
	result := Analysis{MonthID: monthID, Stats: stats}

	logger := log.FromContext(ctx).WithComponent(log.ComponentNarrator)
	if c.narrator == nil {
		result.Text, result.Failed = AnalysisUnavailable, true
	} else {
		text, err := c.narrator.Analyze(ctx, month, stats.WinRate, stats.NetPnL)
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "Analysis failed", log.FieldMonthID, monthID, log.FieldError, err)
			result.Text, result.Failed = AnalysisUnavailable, true
		case strings.TrimSpace(text) == "":
			result.Text, result.Failed = AnalysisUnavailable, true
		default:
			result.Text = text
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, monthID)
	if c.gen == gen && c.state.month(strategyID, monthID) != nil {
		c.analyses[monthID] = result
	}
	logger.InfoContext(ctx, "Analysis completed", log.FieldMonthID, monthID, "failed", result.Failed)
	return result, true, nil
}

// Analysis returns the latest stored analysis for the month.
func (c *Controller) Analysis(strategyID, monthID string) (Analysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.month(strategyID, monthID) == nil {
		return Analysis{}, false
	}
	a, ok := c.analyses[monthID]
	return a, ok
}
