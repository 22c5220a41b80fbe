// Package strategy owns the per-pair state registry and drives the signal
// pipeline: analyzer -> hedge filter -> regime detector -> signal generator
// -> portfolio constructor. One Orchestrator instance serves both full-panel
// backtests and bar-by-bar live stepping over the same state.
package strategy

import (
	"math"
	"time"

	"PairPull/internal/engine/coint"
	"PairPull/internal/engine/kalman"
	"PairPull/internal/engine/portfolio"
	"PairPull/internal/engine/regime"
	"PairPull/internal/engine/signal"
)

// Config aggregates all component parameters. Built once from the service
// configuration; immutable for the life of the orchestrator.
type Config struct {
	Analyzer  coint.Config
	Kalman    kalman.Config
	Regime    regime.Config
	Signal    signal.Config
	Portfolio portfolio.Config
}

// ActivePair bundles one selected pair's stateful components. Each pair owns
// its own filter, detector, and state machine; nothing is shared across
// pairs.
type ActivePair struct {
	ID       string
	AssetA   string
	AssetB   string
	Tier     int
	HalfLife float64

	filter   *kalman.Filter
	detector *regime.Detector
	gen      *signal.Generator

	prevPriceA float64
	prevPriceB float64
	prevBeta   float64
	lastSignal float64

	signals []float64
	pnl     []float64
}

// PairSignal is one pair's output for a single bar.
type PairSignal struct {
	PairID    string
	Time      time.Time
	Beta      float64
	Alpha     float64
	Spread    float64
	Z         float64
	Signal    float64
	Direction signal.Direction
	Favorable bool
}

// Diagnostics aggregates typed per-component diagnostics at the engine
// boundary.
type Diagnostics struct {
	ActivePairs int
	Candidates  int
	Viable      int
	PairSignals map[string]signal.Diagnostics
	Portfolio   portfolio.Diagnostics
}

// BacktestResult is the full batch output over one panel.
type BacktestResult struct {
	Times       []time.Time
	Signals     map[string][]float64
	PairPnL     map[string][]float64
	Portfolio   portfolio.Result
	Diagnostics Diagnostics
}

// Orchestrator owns the active-pair registry.
type Orchestrator struct {
	cfg      Config
	analyzer *coint.Analyzer
	ctor     *portfolio.Constructor
	pairs    map[string]*ActivePair
	order    []string // deterministic iteration order

	lastScan []coint.Candidate
}

func NewOrchestrator(cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		analyzer: coint.NewAnalyzer(cfg.Analyzer),
		ctor:     portfolio.NewConstructor(cfg.Portfolio),
		pairs:    make(map[string]*ActivePair),
	}
}

// ScanUniverse evaluates every ordered symbol pair in the panel, selects
// the top candidates by quality score, and reconciles the active-pair
// registry: surviving pairs keep their state, dropped pairs are destroyed,
// new pairs start fresh.
func (o *Orchestrator) ScanUniverse(panel *Panel) ([]coint.Candidate, error) {
	if err := panel.Validate(); err != nil {
		return nil, err
	}

	logs := make(map[string][]float64, len(panel.Symbols))
	for _, s := range panel.Symbols {
		logs[s] = panel.LogPrices(s)
	}

	cands := make([]coint.Candidate, 0, len(panel.Symbols)*len(panel.Symbols)/2)
	for i := 0; i < len(panel.Symbols); i++ {
		for j := i + 1; j < len(panel.Symbols); j++ {
			a, b := panel.Symbols[i], panel.Symbols[j]
			cands = append(cands, o.analyzer.Evaluate(a, b, logs[a], logs[b]))
		}
	}
	selected := o.analyzer.Rank(cands)

	next := make(map[string]*ActivePair, len(selected))
	nextOrder := make([]string, 0, len(selected))
	for _, c := range selected {
		id := c.PairID()
		if existing, ok := o.pairs[id]; ok {
			// pair survives re-analysis: keep filter and machine state,
			// refresh the quality metadata
			existing.Tier = c.Tier
			existing.HalfLife = c.HalfLifeDays
			next[id] = existing
		} else {
			next[id] = o.newActivePair(c)
		}
		nextOrder = append(nextOrder, id)
	}
	o.pairs = next
	o.order = nextOrder
	o.lastScan = cands
	return cands, nil
}

func (o *Orchestrator) newActivePair(c coint.Candidate) *ActivePair {
	return &ActivePair{
		ID:       c.PairID(),
		AssetA:   c.AssetA,
		AssetB:   c.AssetB,
		Tier:     c.Tier,
		HalfLife: c.HalfLifeDays,
		filter:   kalman.New(o.cfg.Kalman),
		detector: regime.NewDetector(o.cfg.Regime),
		gen:      signal.NewGenerator(o.cfg.Signal, c.HalfLifeDays, c.Tier),
	}
}

// ActivePairs returns the current registry in selection order.
func (o *Orchestrator) ActivePairs() []*ActivePair {
	out := make([]*ActivePair, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.pairs[id])
	}
	return out
}

// LastScan returns all candidates from the most recent universe scan.
func (o *Orchestrator) LastScan() []coint.Candidate { return o.lastScan }

// OnBar advances every active pair by one observation. A pair whose symbols
// are missing from the bar degrades to a zero signal for the step; other
// pairs are unaffected.
func (o *Orchestrator) OnBar(bar Bar) []PairSignal {
	out := make([]PairSignal, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.stepPair(o.pairs[id], bar))
	}
	return out
}

func (o *Orchestrator) stepPair(p *ActivePair, bar Bar) PairSignal {
	ps := PairSignal{PairID: p.ID, Time: bar.Time}

	priceA, okA := bar.Prices[p.AssetA]
	priceB, okB := bar.Prices[p.AssetB]
	if !okA || !okB || priceA <= 0 || priceB <= 0 {
		// isolated degradation: hold state, emit zero
		p.signals = append(p.signals, 0)
		p.pnl = append(p.pnl, 0)
		p.lastSignal = 0
		return ps
	}

	step := p.filter.Update(math.Log(priceA), math.Log(priceB))
	state := p.detector.Push(priceA, priceB, step.Beta, step.Spread)
	sig := p.gen.Push(step.Spread, state.Favorable(), bar.Time)

	// PnL uses the previous bar's signal against this bar's hedged return,
	// so the stream carries no lookahead.
	pnl := 0.0
	if p.prevPriceA > 0 && p.prevPriceB > 0 {
		retA := priceA/p.prevPriceA - 1
		retB := priceB/p.prevPriceB - 1
		pnl = p.lastSignal * (retA - p.prevBeta*retB)
	}

	p.prevPriceA = priceA
	p.prevPriceB = priceB
	p.prevBeta = step.Beta
	p.lastSignal = sig.Final
	p.signals = append(p.signals, sig.Final)
	p.pnl = append(p.pnl, pnl)

	ps.Beta = step.Beta
	ps.Alpha = step.Alpha
	ps.Spread = step.Spread
	ps.Z = sig.Z
	ps.Signal = sig.Final
	ps.Direction = sig.Direction
	ps.Favorable = state.Favorable()
	return ps
}

// RunBacktest scans the universe on the panel, then drives the incremental
// path over every bar and blends the resulting PnL panel. Batch mode is
// defined as repeated OnBar calls, so it cannot diverge from live stepping.
func (o *Orchestrator) RunBacktest(panel *Panel) (*BacktestResult, error) {
	if _, err := o.ScanUniverse(panel); err != nil {
		return nil, err
	}
	for i := range panel.Times {
		o.OnBar(panel.BarAt(i))
	}
	return o.Collect(panel.Times), nil
}

// Collect blends the accumulated per-pair PnL into a portfolio and
// assembles diagnostics. The blend is a join over completed series: every
// pair's history must be fully stepped before calling.
func (o *Orchestrator) Collect(times []time.Time) *BacktestResult {
	res := &BacktestResult{
		Times:   times,
		Signals: make(map[string][]float64, len(o.order)),
		PairPnL: make(map[string][]float64, len(o.order)),
		Diagnostics: Diagnostics{
			ActivePairs: len(o.order),
			Candidates:  len(o.lastScan),
			PairSignals: make(map[string]signal.Diagnostics, len(o.order)),
		},
	}
	for _, c := range o.lastScan {
		if c.Viable {
			res.Diagnostics.Viable++
		}
	}
	for _, id := range o.order {
		p := o.pairs[id]
		res.Signals[id] = append([]float64(nil), p.signals...)
		res.PairPnL[id] = append([]float64(nil), p.pnl...)
		res.Diagnostics.PairSignals[id] = p.gen.Diagnostics()
	}
	res.Portfolio = o.ctor.Construct(res.PairPnL)
	res.Diagnostics.Portfolio = res.Portfolio.Diagnostics
	return res
}

// PairIDs returns the selected pair identifiers in order.
func (o *Orchestrator) PairIDs() []string {
	return append([]string(nil), o.order...)
}
