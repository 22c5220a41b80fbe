package strategy

import (
	"fmt"
	"math"
	"time"
)

// Panel is an aligned, gap-free price history over a common time index.
// It is the immutable input to universe scans and backtests.
type Panel struct {
	Symbols []string
	Times   []time.Time
	Prices  map[string][]float64
}

// Validate checks alignment and positivity.
func (p *Panel) Validate() error {
	n := len(p.Times)
	if n == 0 {
		return fmt.Errorf("panel: empty time index")
	}
	for _, s := range p.Symbols {
		series, ok := p.Prices[s]
		if !ok {
			return fmt.Errorf("panel: missing series for %s", s)
		}
		if len(series) != n {
			return fmt.Errorf("panel: %s has %d observations, want %d", s, len(series), n)
		}
		for i, v := range series {
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("panel: %s has non-positive price at index %d", s, i)
			}
		}
	}
	return nil
}

// LogPrices returns the log-price series for a symbol.
func (p *Panel) LogPrices(symbol string) []float64 {
	src := p.Prices[symbol]
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = math.Log(v)
	}
	return out
}

// Bar is one cross-sectional observation in the incremental path.
type Bar struct {
	Time   time.Time
	Prices map[string]float64
}

// BarAt extracts the panel's observation at index i.
func (p *Panel) BarAt(i int) Bar {
	prices := make(map[string]float64, len(p.Symbols))
	for _, s := range p.Symbols {
		prices[s] = p.Prices[s][i]
	}
	return Bar{Time: p.Times[i], Prices: prices}
}
