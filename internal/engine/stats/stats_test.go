package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeanStd(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	require.InDelta(t, 3.0, Mean(xs), 1e-12)
	require.InDelta(t, math.Sqrt(2.5), Std(xs), 1e-12)

	require.Equal(t, 0.0, Mean(nil))
	require.Equal(t, 0.0, Std([]float64{7}))
}

func TestOLSRecoversLine(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	xs := make([]float64, 200)
	ys := make([]float64, 200)
	for i := range xs {
		xs[i] = float64(i) / 10
		ys[i] = 2.5*xs[i] - 1.0 + rng.NormFloat64()*0.01
	}
	slope, intercept := OLS(xs, ys)
	require.InDelta(t, 2.5, slope, 0.01)
	require.InDelta(t, -1.0, intercept, 0.05)
}

func TestOLSDegenerateX(t *testing.T) {
	slope, intercept := OLS([]float64{3, 3, 3}, []float64{1, 2, 3})
	require.Equal(t, 0.0, slope)
	require.InDelta(t, 2.0, intercept, 1e-12)
}

func TestPearsonPerfect(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	ys := []float64{2, 4, 6, 8}
	require.InDelta(t, 1.0, Pearson(xs, ys), 1e-12)
	require.InDelta(t, -1.0, Pearson(xs, []float64{8, 6, 4, 2}), 1e-12)
	require.Equal(t, 0.0, Pearson(xs, []float64{5, 5, 5, 5}))
}

func TestRollingMeanWindow(t *testing.T) {
	out := RollingMean([]float64{1, 2, 3, 4}, 2)
	require.True(t, IsUndef(out[0]))
	require.InDelta(t, 1.5, out[1], 1e-12)
	require.InDelta(t, 2.5, out[2], 1e-12)
	require.InDelta(t, 3.5, out[3], 1e-12)
}

func TestRollingStdMatchesStd(t *testing.T) {
	xs := []float64{1, 3, 2, 5, 4, 6}
	out := RollingStd(xs, 3)
	require.True(t, IsUndef(out[1]))
	for i := 2; i < len(xs); i++ {
		require.InDelta(t, Std(xs[i-2:i+1]), out[i], 1e-12)
	}
}

func TestRollingCorrUndefinedOnFlatWindow(t *testing.T) {
	xs := []float64{1, 1, 1, 2, 3}
	ys := []float64{1, 2, 3, 4, 5}
	out := RollingCorr(xs, ys, 3)
	require.True(t, IsUndef(out[2])) // flat x window
	require.False(t, IsUndef(out[4]))
}

func TestQuantileInterpolation(t *testing.T) {
	xs := []float64{4, 1, 3, 2}
	require.InDelta(t, 1.0, Quantile(xs, 0), 1e-12)
	require.InDelta(t, 4.0, Quantile(xs, 1), 1e-12)
	require.InDelta(t, 2.5, Quantile(xs, 0.5), 1e-12)
}

func TestExpandingQuantileMinPeriods(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	out := ExpandingQuantile(xs, 1.0, 3)
	require.True(t, IsUndef(out[0]))
	require.True(t, IsUndef(out[1]))
	require.InDelta(t, 3.0, out[2], 1e-12)
	require.InDelta(t, 4.0, out[3], 1e-12)
}

func TestHalfLifeOfAR1(t *testing.T) {
	// AR(1) with phi = 0.9 has theta = -0.1, half-life = ln2/0.1 ~ 6.93
	rng := rand.New(rand.NewSource(7))
	n := 5000
	xs := make([]float64, n)
	for i := 1; i < n; i++ {
		xs[i] = 0.9*xs[i-1] + rng.NormFloat64()
	}
	hl := HalfLife(xs, 60, 60)
	require.InDelta(t, math.Ln2/0.1, hl, 1.0)
}

func TestHalfLifeFallbacks(t *testing.T) {
	// too short
	require.Equal(t, 60.0, HalfLife([]float64{1, 2, 3}, 60, 60))

	// trending series has no mean reversion
	xs := make([]float64, 200)
	for i := range xs {
		xs[i] = float64(i)
	}
	require.Equal(t, 60.0, HalfLife(xs, 60, 60))
}

func TestClip(t *testing.T) {
	require.Equal(t, 1.0, Clip(0.5, 1, 2))
	require.Equal(t, 2.0, Clip(3, 1, 2))
	require.Equal(t, 1.5, Clip(1.5, 1, 2))
}
