package coint

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MinCorrelation: 0.8,
		MaxAdfPValue:   0.10,
		MinHalfLife:    1,
		MaxHalfLife:    100,
		MaxPairs:       5,
	}
}

// cointegratedPair builds log prices with y = 0.8x + 0.5 + AR(1) noise, so
// the residual spread is stationary and slowly mean reverting.
func cointegratedPair(n int, seed int64) (logA, logB []float64) {
	rng := rand.New(rand.NewSource(seed))
	logB = make([]float64, n)
	logA = make([]float64, n)
	x := math.Log(100.0)
	noise := 0.0
	for i := 0; i < n; i++ {
		x += rng.NormFloat64() * 0.02
		noise = 0.9*noise + rng.NormFloat64()*0.005
		logB[i] = x
		logA[i] = 0.8*x + 0.5 + noise
	}
	return logA, logB
}

func TestEvaluateCointegratedPair(t *testing.T) {
	logA, logB := cointegratedPair(500, 42)
	a := NewAnalyzer(testConfig())

	c := a.Evaluate("AAA", "BBB", logA, logB)
	require.True(t, c.Viable, "reason=%s", c.Reason)
	require.Equal(t, 1, c.Tier)
	require.Less(t, c.AdfPValue, 0.05)
	require.Greater(t, c.Correlation, 0.9)
	require.InDelta(t, 0.8, c.StaticBeta, 0.05)
	require.Greater(t, c.QualityScore, 0.0)
}

func TestEvaluateRejectsIndependentWalks(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	n := 400
	logA := make([]float64, n)
	logB := make([]float64, n)
	logA[0], logB[0] = math.Log(50), math.Log(200)
	for i := 1; i < n; i++ {
		logA[i] = logA[i-1] + rng.NormFloat64()*0.02
		logB[i] = logB[i-1] + rng.NormFloat64()*0.02
	}
	a := NewAnalyzer(testConfig())
	c := a.Evaluate("AAA", "BBB", logA, logB)
	require.False(t, c.Viable)
	require.NotEqual(t, ReasonNone, c.Reason)
	require.Equal(t, 0, c.Tier)
}

func TestEvaluateInsufficientData(t *testing.T) {
	a := NewAnalyzer(testConfig())
	c := a.Evaluate("AAA", "BBB", []float64{1, 2, 3}, []float64{1, 2, 3})
	require.False(t, c.Viable)
	require.Equal(t, ReasonInsufficientData, c.Reason)
}

func TestRankOrdersByScoreAndCaps(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPairs = 2
	a := NewAnalyzer(cfg)
	cands := []Candidate{
		{AssetA: "A", AssetB: "B", QualityScore: 5, Viable: true},
		{AssetA: "C", AssetB: "D", QualityScore: 9, Viable: true},
		{AssetA: "E", AssetB: "F", QualityScore: 7, Viable: true},
		{AssetA: "G", AssetB: "H", QualityScore: 99, Viable: false},
	}
	ranked := a.Rank(cands)
	require.Len(t, ranked, 2)
	require.Equal(t, "C-D", ranked[0].PairID())
	require.Equal(t, "E-F", ranked[1].PairID())
}

func TestHalfLifeDefaultOnShortHistory(t *testing.T) {
	// 59 observations: enough for ADF but below the half-life regression
	// minimum, so the default applies (clipped into the configured range)
	logA, logB := cointegratedPair(59, 5)
	a := NewAnalyzer(testConfig())
	c := a.Evaluate("AAA", "BBB", logA, logB)
	if c.Viable {
		require.InDelta(t, 60.0, c.HalfLifeDays, 1e-9)
	}
}
