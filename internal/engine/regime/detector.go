// Package regime computes per-pair market favorability: a rolling price
// correlation gate, a volatility-ratio gate on the hedged spread return,
// and a cointegration liveness flag with hysteresis.
package regime

import (
	"PairPull/internal/engine/stats"
)

// Config holds the detector thresholds and windows.
type Config struct {
	CorrLookback      int
	CorrThreshold     float64
	VolShortWindow    int
	VolLongWindow     int
	VolRatioThreshold float64
	CheckFrequency    int // observations between cointegration re-checks
	CointWindow       int // trailing spread window for the ADF re-check
	KillPValue        float64
	RevivePValue      float64
}

// State is the favorability snapshot for one observation.
//
// Defaults when history is insufficient are asymmetric on purpose:
// correlation and volatility start unfavorable, cointegration starts
// alive. Preserved from the source behavior, do not normalize.
type State struct {
	CorrelationFavorable bool
	VolatilityFavorable  bool
	CointegrationAlive   bool
}

// Favorable is the combined AND filter.
func (s State) Favorable() bool {
	return s.CorrelationFavorable && s.VolatilityFavorable && s.CointegrationAlive
}

// Detector carries the rolling windows and the hysteresis flag for one
// pair. Push must be called once per observation; driving it over a full
// history reproduces exactly what the streaming path sees.
type Detector struct {
	cfg Config

	pricesA []float64
	pricesB []float64
	spreads []float64
	sprRets []float64

	prevPriceA float64
	prevPriceB float64
	prevBeta   float64
	count      int

	alive bool
}

func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg:   cfg,
		alive: true, // liveness defaults to favorable before the first check
	}
}

// Push consumes one observation: the two raw prices, the pair's current
// hedge beta, and the filtered spread. Returns the regime state applied to
// this observation.
func (d *Detector) Push(priceA, priceB, beta, spread float64) State {
	// Cointegration re-check happens on block boundaries, using only data
	// up to (and excluding) the current observation. The decided flag then
	// holds for the next CheckFrequency observations.
	if d.cfg.CheckFrequency > 0 && d.count > 0 && d.count%d.cfg.CheckFrequency == 0 &&
		len(d.spreads) >= d.cfg.CointWindow && d.cfg.CointWindow > 0 {
		window := d.spreads[len(d.spreads)-d.cfg.CointWindow:]
		if res, err := stats.ADF(window, 0); err == nil {
			switch {
			case res.PValue > d.cfg.KillPValue:
				d.alive = false
			case res.PValue < d.cfg.RevivePValue:
				d.alive = true
			}
			// otherwise carry the previous value forward
		}
	}

	// Hedged spread return r_t = retA_t - beta_{t-1}*retB_t. Needs one
	// prior observation for both returns and the lagged beta.
	if d.count > 0 && d.prevPriceA > 0 && d.prevPriceB > 0 {
		retA := priceA/d.prevPriceA - 1
		retB := priceB/d.prevPriceB - 1
		d.sprRets = append(d.sprRets, retA-d.prevBeta*retB)
		if w := d.cfg.VolLongWindow; w > 0 && len(d.sprRets) > w {
			d.sprRets = d.sprRets[1:]
		}
	}

	d.pricesA = append(d.pricesA, priceA)
	d.pricesB = append(d.pricesB, priceB)
	if d.cfg.CorrLookback > 0 && len(d.pricesA) > d.cfg.CorrLookback {
		d.pricesA = d.pricesA[1:]
		d.pricesB = d.pricesB[1:]
	}

	d.spreads = append(d.spreads, spread)
	if d.cfg.CointWindow > 0 && len(d.spreads) > d.cfg.CointWindow {
		d.spreads = d.spreads[1:]
	}

	d.prevPriceA = priceA
	d.prevPriceB = priceB
	d.prevBeta = beta
	d.count++

	return State{
		CorrelationFavorable: d.correlationFavorable(),
		VolatilityFavorable:  d.volatilityFavorable(),
		CointegrationAlive:   d.alive,
	}
}

func (d *Detector) correlationFavorable() bool {
	lb := d.cfg.CorrLookback
	if lb < 2 || len(d.pricesA) < lb {
		return false // undefined window defaults to unfavorable
	}
	if stats.Std(d.pricesA) == 0 || stats.Std(d.pricesB) == 0 {
		return false
	}
	return stats.Pearson(d.pricesA, d.pricesB) > d.cfg.CorrThreshold
}

func (d *Detector) volatilityFavorable() bool {
	short, long := d.cfg.VolShortWindow, d.cfg.VolLongWindow
	if short < 2 || long < 2 || len(d.sprRets) < long {
		return false // undefined window defaults to unfavorable
	}
	longStd := stats.Std(d.sprRets)
	shortStd := stats.Std(d.sprRets[len(d.sprRets)-short:])
	if longStd <= 0 {
		return false
	}
	return shortStd/longStd > d.cfg.VolRatioThreshold
}

// Run drives the detector over aligned histories, one Push per index.
func (d *Detector) Run(pricesA, pricesB, betas, spreads []float64) []State {
	n := len(spreads)
	out := make([]State, n)
	for i := 0; i < n; i++ {
		out[i] = d.Push(pricesA[i], pricesB[i], betas[i], spreads[i])
	}
	return out
}
