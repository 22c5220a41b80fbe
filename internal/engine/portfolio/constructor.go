// Package portfolio blends per-pair PnL streams into one risk-controlled
// book: pair-level drawdown kills, conviction weighting by rolling Sharpe,
// volatility targeting, and a portfolio drawdown halt.
package portfolio

import (
	"math"
	"sort"

	"PairPull/internal/engine/stats"
)

// Config holds the construction parameters.
type Config struct {
	PairDdKill         float64 // per-pair drawdown kill level (positive number)
	ConvictionLookback int
	RebalFreq          int
	HighMult           float64
	LowMult            float64
	HighThresh         float64
	LowThresh          float64
	TargetVol          float64 // annualized target volatility
	VolWindow          int
	VolFloorQuantile   float64
	MaxLeverage        float64
	DrawdownHalt       float64 // portfolio drawdown halt level (positive number)
	TradingDaysPerYear float64
}

// volScalarMin is the lower clip on the volatility-targeting scalar.
const volScalarMin = 0.1

// Diagnostics summarizes portfolio-level risk behavior.
type Diagnostics struct {
	DiversificationRatio float64
	AvgPairCorrelation   float64
	MeanLeverage         float64
	MaxLeverage          float64
	RealizedVol          float64 // annualized, of the final series
	TargetVolRatio       float64 // realized / target
	HaltedDays           int
	KilledDays           map[string]int
}

// Result is the full construction output over a PnL panel.
type Result struct {
	PortfolioPnL []float64            // scaled and halted
	BlendedPnL   []float64            // pre-targeting
	VolScalar    []float64            // leverage trajectory
	Weights      map[string][]float64 // per-pair conviction weight trajectory
	KilledPnL    map[string][]float64 // per-pair PnL after the pair kill
	Diagnostics  Diagnostics
}

// Constructor builds portfolios from per-pair PnL panels.
type Constructor struct {
	cfg Config
}

func NewConstructor(cfg Config) *Constructor {
	c := cfg
	if c.TradingDaysPerYear <= 0 {
		c.TradingDaysPerYear = 365
	}
	if c.MaxLeverage <= volScalarMin {
		c.MaxLeverage = 1
	}
	return &Constructor{cfg: c}
}

// Construct runs the full pipeline over a map of aligned per-pair PnL
// series. All series must share one time index; the cross-pair blend is a
// join over completed series, not a streaming merge.
func (c *Constructor) Construct(pnls map[string][]float64) Result {
	ids := make([]string, 0, len(pnls))
	n := 0
	for id, s := range pnls {
		ids = append(ids, id)
		if len(s) > n {
			n = len(s)
		}
	}
	sort.Strings(ids)

	res := Result{
		PortfolioPnL: make([]float64, n),
		BlendedPnL:   make([]float64, n),
		VolScalar:    make([]float64, n),
		Weights:      make(map[string][]float64, len(ids)),
		KilledPnL:    make(map[string][]float64, len(ids)),
		Diagnostics:  Diagnostics{KilledDays: make(map[string]int)},
	}
	if n == 0 || len(ids) == 0 {
		return res
	}

	// 1. Pair-level drawdown kill.
	for _, id := range ids {
		killed, days := applyDrawdownCut(padTo(pnls[id], n), c.cfg.PairDdKill)
		res.KilledPnL[id] = killed
		res.Diagnostics.KilledDays[id] = days
	}

	// 2. Conviction weights, held constant between rebalance points.
	weights := c.convictionWeights(ids, res.KilledPnL, n)
	res.Weights = weights

	// 3. Blend.
	for t := 0; t < n; t++ {
		sum := 0.0
		for _, id := range ids {
			sum += weights[id][t] * res.KilledPnL[id][t]
		}
		res.BlendedPnL[t] = sum
	}

	// 4. Volatility targeting with a quantile floor on realized vol.
	c.applyVolTarget(res.BlendedPnL, res.PortfolioPnL, res.VolScalar)

	// 5. Portfolio drawdown halt, stateless and idempotent.
	halted, haltDays := applyDrawdownCut(res.PortfolioPnL, c.cfg.DrawdownHalt)
	copy(res.PortfolioPnL, halted)
	res.Diagnostics.HaltedDays = haltDays

	c.fillDiagnostics(&res, ids)
	return res
}

// applyDrawdownCut walks the series keeping a running equity and peak and
// zeroes any day whose inclusion would push drawdown through -limit. The
// equity path is rebuilt from the already-modified series, so re-running
// the cut on its own output is a no-op.
func applyDrawdownCut(pnl []float64, limit float64) ([]float64, int) {
	out := make([]float64, len(pnl))
	if limit <= 0 {
		copy(out, pnl)
		return out, 0
	}
	equity, peak := 0.0, 0.0
	cut := 0
	for t, v := range pnl {
		cand := equity + v
		p := peak
		if cand > p {
			p = cand
		}
		if cand-p < -limit {
			out[t] = 0
			cut++
			continue
		}
		out[t] = v
		equity = cand
		peak = p
	}
	return out, cut
}

// convictionWeights maps each pair's rolling Sharpe to a multiplier at
// every rebalance point, normalizes the multipliers to sum to one, and
// holds the weights until the next rebalance.
func (c *Constructor) convictionWeights(ids []string, pnls map[string][]float64, n int) map[string][]float64 {
	out := make(map[string][]float64, len(ids))
	for _, id := range ids {
		out[id] = make([]float64, n)
	}

	equal := 1.0 / float64(len(ids))
	current := make(map[string]float64, len(ids))
	for _, id := range ids {
		current[id] = equal
	}

	freq := c.cfg.RebalFreq
	if freq <= 0 {
		freq = 1
	}
	for t := 0; t < n; t++ {
		if t > 0 && t%freq == 0 {
			current = c.rebalance(ids, pnls, t)
		}
		for _, id := range ids {
			out[id][t] = current[id]
		}
	}
	return out
}

func (c *Constructor) rebalance(ids []string, pnls map[string][]float64, t int) map[string]float64 {
	mults := make(map[string]float64, len(ids))
	total := 0.0
	for _, id := range ids {
		sh := c.rollingSharpe(pnls[id], t)
		m := c.sharpeToMult(sh)
		mults[id] = m
		total += m
	}
	if total <= 0 {
		equal := 1.0 / float64(len(ids))
		for _, id := range ids {
			mults[id] = equal
		}
		return mults
	}
	for _, id := range ids {
		mults[id] /= total
	}
	return mults
}

// rollingSharpe computes the annualized Sharpe of pnl over the conviction
// lookback ending at t (exclusive). Undefined windows yield Undefined.
func (c *Constructor) rollingSharpe(pnl []float64, t int) float64 {
	lb := c.cfg.ConvictionLookback
	if lb < 2 || t < lb {
		return stats.Undefined
	}
	w := pnl[t-lb : t]
	sd := stats.Std(w)
	if sd == 0 {
		return stats.Undefined
	}
	return stats.Mean(w) / sd * math.Sqrt(c.cfg.TradingDaysPerYear)
}

// sharpeToMult maps a Sharpe to [LowMult, HighMult] with linear
// interpolation between the thresholds. An undefined Sharpe maps to a
// neutral multiplier of 1.
func (c *Constructor) sharpeToMult(sharpe float64) float64 {
	if stats.IsUndef(sharpe) {
		return 1
	}
	switch {
	case sharpe >= c.cfg.HighThresh:
		return c.cfg.HighMult
	case sharpe <= c.cfg.LowThresh:
		return c.cfg.LowMult
	}
	span := c.cfg.HighThresh - c.cfg.LowThresh
	if span <= 0 {
		return c.cfg.LowMult
	}
	frac := (sharpe - c.cfg.LowThresh) / span
	return c.cfg.LowMult + frac*(c.cfg.HighMult-c.cfg.LowMult)
}

// applyVolTarget scales the blended PnL to the daily vol target. Realized
// vol is floored at its own expanding low quantile so collapsing vol
// cannot blow leverage past the clip.
func (c *Constructor) applyVolTarget(blended, scaled, scalars []float64) {
	n := len(blended)
	targetDaily := c.cfg.TargetVol / math.Sqrt(c.cfg.TradingDaysPerYear)

	vols := stats.RollingStd(blended, c.cfg.VolWindow)
	floors := stats.ExpandingQuantile(vols, c.cfg.VolFloorQuantile, 1)

	for t := 0; t < n; t++ {
		scalar := 1.0
		v := vols[t]
		if !stats.IsUndef(v) {
			if f := floors[t]; !stats.IsUndef(f) && v < f {
				v = f
			}
			if v > 0 {
				scalar = targetDaily / v
			}
		}
		scalar = stats.Clip(scalar, volScalarMin, c.cfg.MaxLeverage)
		scalars[t] = scalar
		scaled[t] = blended[t] * scalar
	}
}

func (c *Constructor) fillDiagnostics(res *Result, ids []string) {
	d := &res.Diagnostics

	// leverage stats
	sum, peak := 0.0, 0.0
	for _, s := range res.VolScalar {
		sum += s
		if s > peak {
			peak = s
		}
	}
	if len(res.VolScalar) > 0 {
		d.MeanLeverage = sum / float64(len(res.VolScalar))
	}
	d.MaxLeverage = peak

	// realized vs target vol
	d.RealizedVol = stats.Std(res.PortfolioPnL) * math.Sqrt(c.cfg.TradingDaysPerYear)
	if c.cfg.TargetVol > 0 {
		d.TargetVolRatio = d.RealizedVol / c.cfg.TargetVol
	}

	// diversification ratio: weighted average pair vol over blended vol,
	// using full-sample stds and the final weights.
	blendVol := stats.Std(res.BlendedPnL)
	if blendVol > 0 && len(ids) > 0 {
		num := 0.0
		last := len(res.BlendedPnL) - 1
		for _, id := range ids {
			w := res.Weights[id][last]
			num += w * stats.Std(res.KilledPnL[id])
		}
		d.DiversificationRatio = num / blendVol
	}

	// average pairwise correlation of the killed PnL streams
	if len(ids) > 1 {
		total, count := 0.0, 0
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				total += stats.Pearson(res.KilledPnL[ids[i]], res.KilledPnL[ids[j]])
				count++
			}
		}
		if count > 0 {
			d.AvgPairCorrelation = total / float64(count)
		}
	}
}

func padTo(s []float64, n int) []float64 {
	if len(s) == n {
		return s
	}
	out := make([]float64, n)
	copy(out, s)
	return out
}
