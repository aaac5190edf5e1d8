package narrator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core"
)

func sampleMonth() core.Month {
	return core.Month{
		ID:   "m1",
		Name: "January 2025",
		Trades: []core.Trade{
			{ID: "t1", Pair: "EURUSD", Direction: core.Long, RR: 2, Result: core.Win, MaxRR: 3},
			{ID: "t2", Pair: "GBPUSD", Direction: core.Short, RR: 2, Result: core.Loss},
		},
	}
}

func TestPrompt(t *testing.T) {
	p, err := Prompt(sampleMonth(), 50, 1, "")
	require.NoError(t, err)

	assert.Contains(t, p, "month of January 2025")
	assert.Contains(t, p, "Win Rate: 50%")
	assert.Contains(t, p, "Net Profit/Loss: 1%")
	assert.Contains(t, p, "Total Trades: 2")
	assert.Contains(t, p, `User Notes: "No notes provided"`)
	assert.Contains(t, p, `{"pair":"EURUSD","dir":"Long","rr":2,"result":"Win","maxPotential":3}`)
	assert.Contains(t, p, "Output strictly in Persian (Farsi)")

	m := sampleMonth()
	m.Note = "Too many trades after lunch"
	p, err = Prompt(m, 50, 1, "English")
	require.NoError(t, err)
	assert.Contains(t, p, `"Too many trades after lunch"`)
	assert.Contains(t, p, "analysis in English language")
}

func TestNew(t *testing.T) {
	n, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, n)

	n, err = New(Config{APIKey: "k", Provider: "OpenAI"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, n)

	_, err = New(Config{APIKey: "k", Provider: "gemini"})
	assert.Error(t, err)
}

func TestAnthropic_Analyze(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(body, &req)
		if len(req.Messages) > 0 && len(req.Messages[0].Content) > 0 {
			gotPrompt = req.Messages[0].Content[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"m",
			"content":[{"type":"text","text":"## Strength"}],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	defer srv.Close()

	a := NewAnthropic(Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
	out, err := a.Analyze(context.Background(), sampleMonth(), 50, 1)
	require.NoError(t, err)
	assert.Equal(t, "## Strength", out)
	assert.True(t, strings.Contains(gotPrompt, "January 2025"))
}

func TestOpenAI_Analyze(t *testing.T) {
	reply := `{"id":"c1","object":"chat.completion","created":0,"model":"m",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"%s"}}]}`
	content := "Keep risk fixed"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, strings.Replace(reply, "%s", content, 1))
	}))
	defer srv.Close()

	o := NewOpenAI(Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
	out, err := o.Analyze(context.Background(), sampleMonth(), 50, 1)
	require.NoError(t, err)
	assert.Equal(t, "Keep risk fixed", out)

	content = ""
	out, err = o.Analyze(context.Background(), sampleMonth(), 50, 1)
	require.NoError(t, err)
	assert.Equal(t, EmptyAnalysis, out)
}

func TestAnalyze_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL}).Analyze(context.Background(), sampleMonth(), 0, 0)
	assert.Error(t, err)
	_, err = NewAnthropic(Config{APIKey: "k", BaseURL: srv.URL}).Analyze(context.Background(), sampleMonth(), 0, 0)
	assert.Error(t, err)
}
