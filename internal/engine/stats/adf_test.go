package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestADFRejectsUnitRootForStationarySeries(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 500
	xs := make([]float64, n)
	for i := 1; i < n; i++ {
		xs[i] = 0.5*xs[i-1] + rng.NormFloat64()
	}
	res, err := ADF(xs, 0)
	require.NoError(t, err)
	require.Less(t, res.PValue, 0.05)
	require.Less(t, res.Stat, -3.0)
}

func TestADFKeepsUnitRootForRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	n := 500
	xs := make([]float64, n)
	for i := 1; i < n; i++ {
		xs[i] = xs[i-1] + rng.NormFloat64()
	}
	res, err := ADF(xs, 0)
	require.NoError(t, err)
	require.Greater(t, res.PValue, 0.10)
}

func TestADFShortSeries(t *testing.T) {
	_, err := ADF([]float64{1, 2, 3}, 0)
	require.Error(t, err)
}

func TestADFLagSelectionBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	n := 200
	xs := make([]float64, n)
	for i := 1; i < n; i++ {
		xs[i] = 0.7*xs[i-1] + rng.NormFloat64()
	}
	res, err := ADF(xs, 5)
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Lags, 0)
	require.LessOrEqual(t, res.Lags, 5)
	require.Greater(t, res.NObs, 0)
}

func TestMackinnonPMonotone(t *testing.T) {
	// deeper negative tau means stronger rejection, lower p
	require.Less(t, mackinnonP(-4.0), mackinnonP(-2.0))
	require.Less(t, mackinnonP(-2.0), mackinnonP(0.0))
	require.Equal(t, 1.0, mackinnonP(3.0))
	require.Equal(t, 0.0, mackinnonP(-20.0))
}
