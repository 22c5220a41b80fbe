package kalman

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func synthPair(n int, seed int64) (ys, xs []float64) {
	rng := rand.New(rand.NewSource(seed))
	xs = make([]float64, n)
	ys = make([]float64, n)
	x := math.Log(100.0)
	for i := 0; i < n; i++ {
		x += rng.NormFloat64() * 0.02
		xs[i] = x
		ys[i] = 0.8*x + 0.5 + rng.NormFloat64()*0.01
	}
	return ys, xs
}

func TestIncrementalMatchesBatch(t *testing.T) {
	ys, xs := synthPair(300, 1)
	cfg := Config{Delta: 1e-4, Ve: 1e-3}

	stream := New(cfg)
	for i := range ys {
		got := stream.Update(ys[i], xs[i])

		// a fresh filter run over the truncated history must land on the
		// same step values, bit for bit
		batch := New(cfg)
		steps := batch.Run(ys[:i+1], xs[:i+1])
		want := steps[len(steps)-1]

		require.Equal(t, want.Beta, got.Beta, "step %d beta", i)
		require.Equal(t, want.Alpha, got.Alpha, "step %d alpha", i)
		require.Equal(t, want.Spread, got.Spread, "step %d spread", i)
	}
}

func TestConvergesToHedgeRatio(t *testing.T) {
	ys, xs := synthPair(2000, 2)
	f := New(Config{Delta: 1e-4, Ve: 1e-3})
	steps := f.Run(ys, xs)
	last := steps[len(steps)-1]
	require.InDelta(t, 0.8, last.Beta, 0.05)
}

func TestCovarianceStaysValid(t *testing.T) {
	ys, xs := synthPair(1000, 3)
	f := New(Config{Delta: 1e-4, Ve: 1e-3})
	for i := range ys {
		f.Update(ys[i], xs[i])
		require.True(t, f.CovarianceValid(), "covariance invalid at step %d", i)
		require.Greater(t, f.R(), 0.0, "R not strictly positive at step %d", i)
	}
}

func TestAdaptiveNoiseTracksInnovation(t *testing.T) {
	f := New(Config{Delta: 0.01, Ve: 1.0})
	r0 := f.R()
	// feed identical observations: innovations shrink, R decays toward zero
	for i := 0; i < 500; i++ {
		f.Update(1.0, 1.0)
	}
	require.Less(t, f.R(), r0)
	require.Greater(t, f.R(), 0.0)
}

func TestSpreadDefinition(t *testing.T) {
	f := New(Config{Delta: 1e-4, Ve: 1e-3})
	st := f.Update(2.0, 1.5)
	require.InDelta(t, 2.0-st.Beta*1.5-st.Alpha, st.Spread, 1e-15)
}

func TestBadConfigDefaults(t *testing.T) {
	f := New(Config{Delta: 0, Ve: -1})
	require.Greater(t, f.R(), 0.0)
	st := f.Update(1.0, 1.0)
	require.False(t, math.IsNaN(st.Spread))
}
