// Package signal turns a filtered spread into a sized trading signal via a
// per-pair entry/exit state machine, with funding-momentum and weekend
// overlays applied on top.
package signal

import (
	"time"

	"PairPull/internal/engine/stats"
)

// Direction is the spread position: +1 long spread, -1 short spread, 0 flat.
type Direction int

const (
	Flat        Direction = 0
	LongSpread  Direction = 1
	ShortSpread Direction = -1
)

// Config holds the generator thresholds.
type Config struct {
	ZEntry     float64
	ZStop      float64
	ZExitLong  float64
	ZExitShort float64
	MinHolding int

	LookbackMultiplier float64
	MinLookback        int
	MaxLookback        int

	SizeMin  float64
	SizeMax  float64
	SizeCapZ float64

	FundingBoost        float64
	FundingMomWindow    int
	FundingHighQuantile float64
	FundingLowQuantile  float64
	FundingMinObs       int

	WeekendBoost float64
}

// Step is the generator output for one observation.
type Step struct {
	Z         float64 // stats.Undefined when masked or degenerate
	Raw       float64 // sized signal before overlays and tier weight
	Final     float64
	Direction Direction
}

// Diagnostics are per-pair counters accumulated across observations.
type Diagnostics struct {
	Lookback         int
	Steps            int
	Trades           int
	StepsInMarket    int
	FundingBoosts    int
	WeekendBoosts    int
	TimeInMarketFrac float64
}

// Generator owns one pair's trading state machine. Push is called once per
// observation; batch and live execution share the exact same path.
type Generator struct {
	cfg        Config
	lookback   int
	tierWeight float64

	window     []float64 // trailing spread window for the z-score
	momChanges []float64 // trailing spread changes for the momentum sum
	momHistory []float64 // all realized momentum sums, for expanding quantiles
	prevSpread float64
	hasPrev    bool

	position Direction
	holding  int
	lastZ    float64

	diag Diagnostics
}

// NewGenerator builds a generator for a pair given its estimated half-life
// and quality tier. Tier-2 pairs are discounted to half weight.
func NewGenerator(cfg Config, halfLife float64, tier int) *Generator {
	lb := int(cfg.LookbackMultiplier * halfLife)
	if lb < cfg.MinLookback {
		lb = cfg.MinLookback
	}
	if cfg.MaxLookback > 0 && lb > cfg.MaxLookback {
		lb = cfg.MaxLookback
	}
	tw := 1.0
	if tier == 2 {
		tw = 0.5
	}
	return &Generator{
		cfg:        cfg,
		lookback:   lb,
		tierWeight: tw,
		diag:       Diagnostics{Lookback: lb},
	}
}

// Lookback returns the chosen z-score window.
func (g *Generator) Lookback() int { return g.lookback }

// Position returns the current spread direction.
func (g *Generator) Position() Direction { return g.position }

// HoldingPeriods returns the bars held since the last transition.
func (g *Generator) HoldingPeriods() int { return g.holding }

// LastZ returns the last defined z-score seen by the state machine.
func (g *Generator) LastZ() float64 { return g.lastZ }

// Push consumes one spread observation. favorable is the combined regime
// mask for this step; when false the z-score is treated as undefined: no
// transition fires and the raw signal is zero for the step.
func (g *Generator) Push(spread float64, favorable bool, ts time.Time) Step {
	g.diag.Steps++

	z := g.pushZ(spread)
	if !favorable {
		z = stats.Undefined
	}

	if !stats.IsUndef(z) {
		g.stepMachine(z)
		g.lastZ = z
	} else if g.position != Flat {
		// position is carried through masked periods; holding still accrues
		g.holding++
	}

	raw := 0.0
	if g.position != Flat && !stats.IsUndef(z) {
		mag := stats.Clip(abs(z)/g.cfg.ZEntry, g.cfg.SizeMin, g.cfg.SizeMax)
		if abs(z) > g.cfg.SizeCapZ {
			mag = g.cfg.SizeMax
		}
		raw = float64(g.position) * mag
	}
	if g.position != Flat {
		g.diag.StepsInMarket++
	}

	final := raw * g.overlayBoost(spread, z, raw, ts) * g.tierWeight

	return Step{Z: z, Raw: raw, Final: final, Direction: g.position}
}

// pushZ appends the spread to the rolling window and returns the z-score,
// or Undefined while the window is short or degenerate.
func (g *Generator) pushZ(spread float64) float64 {
	g.window = append(g.window, spread)
	if len(g.window) > g.lookback {
		g.window = g.window[1:]
	}
	if g.lookback < 2 || len(g.window) < g.lookback {
		return stats.Undefined
	}
	sd := stats.Std(g.window)
	if sd == 0 {
		return stats.Undefined
	}
	return (spread - stats.Mean(g.window)) / sd
}

// stepMachine advances the FSM for one defined z-score.
func (g *Generator) stepMachine(z float64) {
	switch g.position {
	case Flat:
		switch {
		case z < -g.cfg.ZEntry:
			g.transition(LongSpread)
		case z > g.cfg.ZEntry:
			g.transition(ShortSpread)
		}
	default:
		g.holding++
		if abs(z) > g.cfg.ZStop {
			// stop-loss overrides the minimum holding requirement
			g.transition(Flat)
			return
		}
		if g.holding < g.cfg.MinHolding {
			return
		}
		if g.position == LongSpread && z > -g.cfg.ZExitLong {
			g.transition(Flat)
		} else if g.position == ShortSpread && z < g.cfg.ZExitShort {
			g.transition(Flat)
		}
	}
}

func (g *Generator) transition(to Direction) {
	g.position = to
	g.holding = 0
	g.diag.Trades++
}

// overlayBoost computes the multiplicative funding-momentum and weekend
// overlays for this step. Overlays are independent of the machine state.
func (g *Generator) overlayBoost(spread, z, raw float64, ts time.Time) float64 {
	boost := 1.0

	if g.hasPrev && g.cfg.FundingMomWindow > 0 {
		g.momChanges = append(g.momChanges, spread-g.prevSpread)
		if len(g.momChanges) > g.cfg.FundingMomWindow {
			g.momChanges = g.momChanges[1:]
		}
		if len(g.momChanges) == g.cfg.FundingMomWindow {
			mom := 0.0
			for _, c := range g.momChanges {
				mom += c
			}
			g.momHistory = append(g.momHistory, mom)
			if len(g.momHistory) >= g.cfg.FundingMinObs && !stats.IsUndef(z) && g.cfg.FundingBoost > 0 {
				hi := stats.Quantile(g.momHistory, g.cfg.FundingHighQuantile)
				lo := stats.Quantile(g.momHistory, g.cfg.FundingLowQuantile)
				if (mom > hi && z > 0) || (mom < lo && z < 0) {
					boost *= g.cfg.FundingBoost
					g.diag.FundingBoosts++
				}
			}
		}
	}
	g.prevSpread = spread
	g.hasPrev = true

	if g.cfg.WeekendBoost > 0 {
		switch ts.Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
			boost *= g.cfg.WeekendBoost
			// the counter tracks boosts that actually scaled a position
			if raw != 0 {
				g.diag.WeekendBoosts++
			}
		}
	}
	return boost
}

// Diagnostics returns the accumulated counters.
func (g *Generator) Diagnostics() Diagnostics {
	d := g.diag
	if d.Steps > 0 {
		d.TimeInMarketFrac = float64(d.StepsInMarket) / float64(d.Steps)
	}
	return d
}

// Result is the batch output over a full history.
type Result struct {
	Final       []float64
	Raw         []float64
	Directions  []Direction
	Lookback    int
	Diagnostics Diagnostics
}

// Run drives the generator over aligned histories, one Push per index.
// favorable[i] is the combined regime mask for observation i.
func (g *Generator) Run(spreads []float64, favorable []bool, ts []time.Time) Result {
	n := len(spreads)
	res := Result{
		Final:      make([]float64, n),
		Raw:        make([]float64, n),
		Directions: make([]Direction, n),
		Lookback:   g.lookback,
	}
	for i := 0; i < n; i++ {
		fav := i < len(favorable) && favorable[i]
		var t time.Time
		if i < len(ts) {
			t = ts[i]
		}
		st := g.Push(spreads[i], fav, t)
		res.Final[i] = st.Final
		res.Raw[i] = st.Raw
		res.Directions[i] = st.Direction
	}
	res.Diagnostics = g.Diagnostics()
	return res
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
