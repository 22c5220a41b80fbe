// Package coint screens symbol pairs for statistical tradeability:
// correlation gate, static OLS hedge, ADF stationarity test on the
// residual spread, and half-life based quality scoring.
package coint

import (
	"math"
	"sort"

	"PairPull/internal/engine/stats"
)

// Reason classifies why a pair was rejected. Statistical failures are data,
// not errors: nothing in the analyzer propagates an exception.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonLowCorrelation     Reason = "low_correlation"
	ReasonHighAdfPValue      Reason = "high_adf_pvalue"
	ReasonHalfLifeOutOfRange Reason = "half_life_out_of_range"
	ReasonInsufficientData   Reason = "insufficient_data"
	ReasonTestFailed         Reason = "test_failed"
)

// minHalfLifeObs is the minimum aligned history for the AR(1) half-life
// regression; below it the default half-life is used without regressing.
const minHalfLifeObs = 60

// defaultHalfLife is returned when the spread shows no measurable reversion.
const defaultHalfLife = 60.0

// Config bounds for candidate viability.
type Config struct {
	MinCorrelation float64
	MaxAdfPValue   float64
	MinHalfLife    float64
	MaxHalfLife    float64
	MaxPairs       int
}

// Candidate is one scored pair from a universe scan. Tier 0 means rejected.
type Candidate struct {
	AssetA       string
	AssetB       string
	Correlation  float64
	AdfPValue    float64
	StaticBeta   float64
	StaticAlpha  float64
	HalfLifeDays float64
	Tier         int
	QualityScore float64
	Viable       bool
	Reason       Reason
}

// PairID returns the registry key for the candidate.
func (c Candidate) PairID() string { return c.AssetA + "-" + c.AssetB }

// Analyzer evaluates pairs of aligned log-price series.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Evaluate scores one pair given aligned log-price series. It never returns
// an error: any numerical failure in the statistical tests yields a
// non-viable candidate with a reason.
func (a *Analyzer) Evaluate(assetA, assetB string, logA, logB []float64) Candidate {
	cand := Candidate{AssetA: assetA, AssetB: assetB}

	n := len(logA)
	if len(logB) < n {
		n = len(logB)
	}
	if n < 10 {
		cand.Reason = ReasonInsufficientData
		return cand
	}
	logA = logA[:n]
	logB = logB[:n]

	// Correlation is measured on price levels, not log returns.
	pricesA := exp(logA)
	pricesB := exp(logB)
	cand.Correlation = stats.Pearson(pricesA, pricesB)
	if cand.Correlation < a.cfg.MinCorrelation {
		cand.Reason = ReasonLowCorrelation
		return cand
	}

	// Static OLS hedge: logA = beta*logB + alpha.
	beta, alpha := stats.OLS(logB, logA)
	cand.StaticBeta = beta
	cand.StaticAlpha = alpha

	spread := make([]float64, n)
	for i := 0; i < n; i++ {
		spread[i] = logA[i] - beta*logB[i] - alpha
	}

	adf, err := stats.ADF(spread, 0)
	if err != nil {
		cand.Reason = ReasonTestFailed
		return cand
	}
	cand.AdfPValue = adf.PValue
	if adf.PValue > a.cfg.MaxAdfPValue {
		cand.Reason = ReasonHighAdfPValue
		return cand
	}

	hl := stats.HalfLife(spread, minHalfLifeObs, defaultHalfLife)
	cand.HalfLifeDays = stats.Clip(hl, a.cfg.MinHalfLife, a.cfg.MaxHalfLife)
	if hl < a.cfg.MinHalfLife || hl > a.cfg.MaxHalfLife {
		cand.Reason = ReasonHalfLifeOutOfRange
		return cand
	}

	cand.Tier = 2
	tierMult := 1.0
	if adf.PValue < 0.05 {
		cand.Tier = 1
		tierMult = 1.5
	}
	cand.QualityScore = (1 - adf.PValue) * cand.Correlation * hl * tierMult
	if math.IsNaN(cand.QualityScore) || math.IsInf(cand.QualityScore, 0) {
		cand.Tier = 0
		cand.QualityScore = 0
		cand.Reason = ReasonTestFailed
		return cand
	}
	cand.Viable = true
	return cand
}

// Rank filters to viable candidates and orders them by quality score
// descending, capped at MaxPairs when configured.
func (a *Analyzer) Rank(cands []Candidate) []Candidate {
	viable := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Viable {
			viable = append(viable, c)
		}
	}
	sort.SliceStable(viable, func(i, j int) bool {
		return viable[i].QualityScore > viable[j].QualityScore
	})
	if a.cfg.MaxPairs > 0 && len(viable) > a.cfg.MaxPairs {
		viable = viable[:a.cfg.MaxPairs]
	}
	return viable
}

func exp(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = math.Exp(v)
	}
	return out
}
