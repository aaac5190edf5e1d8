// Package sample holds the bundled journal that guest sessions start with.
package sample

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tradeflow/internal/core"
)

//go:embed strategies.yaml
var strategiesYAML []byte

type tradeDoc struct {
	Date       string  `yaml:"date"`
	Pair       string  `yaml:"pair"`
	Direction  string  `yaml:"direction"`
	RR         float64 `yaml:"rr"`
	Result     string  `yaml:"result"`
	PnLDollar  float64 `yaml:"pnlDollar"`
	MaxRR      float64 `yaml:"maxRr"`
	Screenshot string  `yaml:"screenshot"`
}

type monthDoc struct {
	Name   string     `yaml:"name"`
	Note   string     `yaml:"note"`
	Trades []tradeDoc `yaml:"trades"`
}

type strategyDoc struct {
	Name   string     `yaml:"name"`
	Note   string     `yaml:"note"`
	Months []monthDoc `yaml:"months"`
}

// Strategies decodes the bundled journal and assigns fresh identifiers from
// newID. Every call returns an independent tree.
func Strategies(newID func() string) ([]core.Strategy, error) {
	return Parse(strategiesYAML, newID)
}

// Parse decodes a journal in the bundled YAML layout. PnL percentages are
// derived from result and rr rather than read.
func Parse(data []byte, newID func() string) ([]core.Strategy, error) {
	var docs []strategyDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode sample journal: %w", err)
	}

	out := make([]core.Strategy, 0, len(docs))
	for _, sd := range docs {
		st := core.Strategy{ID: newID(), Name: sd.Name, Note: sd.Note, Months: []core.Month{}}
		for _, md := range sd.Months {
			m := core.Month{ID: newID(), Name: md.Name, Note: md.Note, Trades: []core.Trade{}}
			for _, td := range md.Trades {
				t, err := td.trade(newID())
				if err != nil {
					return nil, fmt.Errorf("sample trade in %s/%s: %w", sd.Name, md.Name, err)
				}
				m.Trades = append(m.Trades, t)
			}
			st.Months = append(st.Months, m)
		}
		out = append(out, st)
	}
	return out, nil
}

func (td tradeDoc) trade(id string) (core.Trade, error) {
	dir := core.Direction(td.Direction)
	if err := dir.Validate(); err != nil {
		return core.Trade{}, err
	}
	t := core.Trade{
		ID:         id,
		Date:       td.Date,
		Pair:       td.Pair,
		Direction:  dir,
		RR:         td.RR,
		PnLDollar:  decimal.NewFromFloat(td.PnLDollar),
		MaxRR:      td.MaxRR,
		Screenshot: td.Screenshot,
	}
	t, _, err := t.Apply(core.SetResult(td.Result))
	return t, err
}

// MustStrategies is Strategies for callers that cannot recover from a broken
// bundle.
func MustStrategies(newID func() string) []core.Strategy {
	s, err := Strategies(newID)
	if err != nil {
		panic(err)
	}
	return s
}
