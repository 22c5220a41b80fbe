package regime

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		CorrLookback:      20,
		CorrThreshold:     0.5,
		VolShortWindow:    5,
		VolLongWindow:     20,
		VolRatioThreshold: 0.5,
		CheckFrequency:    50,
		CointWindow:       100,
		KillPValue:        0.20,
		RevivePValue:      0.05,
	}
}

func TestDefaultsAreAsymmetric(t *testing.T) {
	d := NewDetector(testConfig())
	st := d.Push(100, 100, 1, 0)

	// correlation and volatility start unfavorable, liveness starts alive
	require.False(t, st.CorrelationFavorable)
	require.False(t, st.VolatilityFavorable)
	require.True(t, st.CointegrationAlive)
	require.False(t, st.Favorable())
}

func TestCorrelationGate(t *testing.T) {
	cfg := testConfig()
	d := NewDetector(cfg)

	var st State
	for i := 0; i < cfg.CorrLookback+1; i++ {
		// perfectly co-moving prices
		p := 100 + float64(i)
		st = d.Push(p, 2*p, 1, 0)
	}
	require.True(t, st.CorrelationFavorable)

	// anti-correlated prices flip the gate off
	d2 := NewDetector(cfg)
	for i := 0; i < cfg.CorrLookback+1; i++ {
		st = d2.Push(100+float64(i), 200-float64(i), 1, 0)
	}
	require.False(t, st.CorrelationFavorable)
}

func TestVolatilityGateNeedsFullLongWindow(t *testing.T) {
	cfg := testConfig()
	cfg.VolRatioThreshold = 0.1
	d := NewDetector(cfg)
	rng := rand.New(rand.NewSource(3))

	var st State
	pa, pb := 100.0, 100.0
	for i := 0; i < cfg.VolLongWindow; i++ {
		pa *= 1 + rng.NormFloat64()*0.01
		pb *= 1 + rng.NormFloat64()*0.01
		st = d.Push(pa, pb, 0, 0) // beta 0: spread return is just retA
		require.False(t, st.VolatilityFavorable, "step %d before window full", i)
	}
	// window is now full; with stable noise the short/long ratio is near 1,
	// above the 0.5 threshold
	pa *= 1.01
	pb *= 1.01
	st = d.Push(pa, pb, 0, 0)
	require.True(t, st.VolatilityFavorable)
}

func TestCointegrationHysteresis(t *testing.T) {
	cfg := testConfig()
	cfg.CheckFrequency = 20
	cfg.CointWindow = 60
	d := NewDetector(cfg)
	rng := rand.New(rand.NewSource(4))

	// stationary spread: liveness must stay alive through the first checks
	spread := 0.0
	for i := 0; i < 100; i++ {
		spread = 0.3*spread + rng.NormFloat64()
		st := d.Push(100, 100, 1, spread)
		require.True(t, st.CointegrationAlive, "step %d", i)
	}

	// now feed a strongly trending spread; after enough block checks the
	// ADF p-value rises above the kill level and the flag latches off
	killed := false
	for i := 0; i < 300; i++ {
		spread += 1.0 + rng.NormFloat64()*0.2
		st := d.Push(100, 100, 1, spread)
		if !st.CointegrationAlive {
			killed = true
			break
		}
	}
	require.True(t, killed, "trending spread never killed liveness")
}

func TestCointegrationFlagHeldBetweenChecks(t *testing.T) {
	cfg := testConfig()
	cfg.CheckFrequency = 25
	cfg.CointWindow = 50
	d := NewDetector(cfg)
	rng := rand.New(rand.NewSource(5))

	states := make([]bool, 0, 200)
	spread := 0.0
	for i := 0; i < 200; i++ {
		spread = 0.5*spread + rng.NormFloat64()
		st := d.Push(100, 100, 1, spread)
		states = append(states, st.CointegrationAlive)
	}
	// the flag may only change value on block boundaries
	for i := 1; i < len(states); i++ {
		if states[i] != states[i-1] {
			require.Zero(t, i%cfg.CheckFrequency, "flag changed mid-block at step %d", i)
		}
	}
}

func TestCombinedFilterIsAnd(t *testing.T) {
	st := State{CorrelationFavorable: true, VolatilityFavorable: true, CointegrationAlive: true}
	require.True(t, st.Favorable())
	st.VolatilityFavorable = false
	require.False(t, st.Favorable())
}
