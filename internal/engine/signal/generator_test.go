package signal

import (
	"testing"
	"time"

	"PairPull/internal/engine/stats"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		ZEntry:             1.0,
		ZStop:              3.0,
		ZExitLong:          0.2,
		ZExitShort:         0.2,
		MinHolding:         2,
		LookbackMultiplier: 2.0,
		MinLookback:        10,
		MaxLookback:        60,
		SizeMin:            0.25,
		SizeMax:            1.0,
		SizeCapZ:           2.5,
		FundingBoost:       1.25,
		FundingMomWindow:   5,
		FundingHighQuantile: 0.9,
		FundingLowQuantile:  0.1,
		FundingMinObs:       30,
		WeekendBoost:        1.1,
	}
}

// drive feeds a z sequence straight into the state machine.
func drive(g *Generator, zs []float64) []Direction {
	out := make([]Direction, len(zs))
	for i, z := range zs {
		g.stepMachine(z)
		out[i] = g.position
	}
	return out
}

func TestLookbackClipping(t *testing.T) {
	cfg := testConfig()
	require.Equal(t, 20, NewGenerator(cfg, 10, 1).Lookback())
	require.Equal(t, 10, NewGenerator(cfg, 1, 1).Lookback())  // floor
	require.Equal(t, 60, NewGenerator(cfg, 90, 1).Lookback()) // cap
}

func TestShortEntryAndExit(t *testing.T) {
	// positive z enters short spread, exit once holding satisfied and z
	// falls below the short exit threshold
	g := NewGenerator(testConfig(), 10, 1)
	pos := drive(g, []float64{0, 1.2, 1.5, 0.15, 0.05})
	require.Equal(t, []Direction{Flat, ShortSpread, ShortSpread, Flat, Flat}, pos)
}

func TestLongEntryAndExit(t *testing.T) {
	g := NewGenerator(testConfig(), 10, 1)
	pos := drive(g, []float64{0, -1.2, -1.5, -0.15, -0.05})
	require.Equal(t, []Direction{Flat, LongSpread, LongSpread, Flat, Flat}, pos)
}

func TestMinHoldingBlocksEarlyExit(t *testing.T) {
	g := NewGenerator(testConfig(), 10, 1)
	// enter short at step 0, z collapses immediately: exit must wait for
	// holding >= 2
	drive(g, []float64{1.5})
	require.Equal(t, ShortSpread, g.position)

	g.stepMachine(0.0) // holding 1 < 2: held
	require.Equal(t, ShortSpread, g.position)
	require.Equal(t, 1, g.holding)

	g.stepMachine(0.0) // holding 2: exit allowed
	require.Equal(t, Flat, g.position)
	require.Equal(t, 0, g.holding)
}

func TestStopLossOverridesMinHolding(t *testing.T) {
	g := NewGenerator(testConfig(), 10, 1)
	drive(g, []float64{1.5})
	require.Equal(t, ShortSpread, g.position)

	g.stepMachine(3.5) // beyond zStop on the first held step
	require.Equal(t, Flat, g.position)
	require.Equal(t, 0, g.holding)
}

func TestHoldingResetsOnEveryTransition(t *testing.T) {
	g := NewGenerator(testConfig(), 10, 1)
	zs := []float64{1.5, 1.2, 0.1, -1.5, -1.2, -0.1}
	for _, z := range zs {
		before := g.position
		g.stepMachine(z)
		if g.position != before {
			require.Equal(t, 0, g.holding, "holding not reset after transition at z=%v", z)
		}
	}
}

func TestUndefinedZNeverTransitions(t *testing.T) {
	cfg := testConfig()
	cfg.MinLookback = 3
	g := NewGenerator(cfg, 1, 1)

	ts := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // a Monday
	// constant spread: rolling std is zero, z stays undefined
	for i := 0; i < 10; i++ {
		st := g.Push(1.0, true, ts)
		require.True(t, stats.IsUndef(st.Z))
		require.Equal(t, Flat, st.Direction)
		require.Zero(t, st.Final)
	}
}

func TestMaskedRegimeZeroesSignal(t *testing.T) {
	cfg := testConfig()
	cfg.MinLookback = 3
	g := NewGenerator(cfg, 1, 1)
	ts := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	// build an extreme last observation so the unmasked z would enter
	spreads := []float64{0, 0.1, -0.1, 0.05, 5.0}
	var st Step
	for _, s := range spreads {
		st = g.Push(s, false, ts) // regime unfavorable throughout
	}
	require.True(t, stats.IsUndef(st.Z))
	require.Zero(t, st.Final)
	require.Equal(t, Flat, st.Direction)
}

func TestTierWeightHalvesTierTwo(t *testing.T) {
	cfg := testConfig()
	cfg.MinLookback = 3
	cfg.WeekendBoost = 0
	cfg.FundingBoost = 0
	ts := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	run := func(tier int) float64 {
		g := NewGenerator(cfg, 1, tier)
		spreads := []float64{0, 0.1, -0.1, 0.05, -0.05, 2.0}
		var st Step
		for _, s := range spreads {
			st = g.Push(s, true, ts)
		}
		return st.Final
	}
	t1 := run(1)
	t2 := run(2)
	require.NotZero(t, t1)
	require.InDelta(t, t1*0.5, t2, 1e-12)
}

func TestWeekendBoostApplied(t *testing.T) {
	cfg := testConfig()
	cfg.MinLookback = 3
	cfg.FundingBoost = 0

	run := func(ts time.Time) float64 {
		g := NewGenerator(cfg, 1, 1)
		spreads := []float64{0, 0.1, -0.1, 0.05, -0.05, 2.0}
		var st Step
		for _, s := range spreads {
			st = g.Push(s, true, ts)
		}
		return st.Final
	}
	monday := run(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	friday := run(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC))
	require.InDelta(t, monday*cfg.WeekendBoost, friday, 1e-12)
}

func TestFundingMomentumBoostScalesSignal(t *testing.T) {
	cfg := testConfig()
	cfg.MinLookback = 3
	cfg.FundingMomWindow = 2
	cfg.FundingMinObs = 5
	cfg.WeekendBoost = 0
	g := NewGenerator(cfg, 1, 1)
	ts := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // a Monday

	// small drifts keep the machine flat and seed the momentum history; the
	// final jump spikes momentum above its expanding high quantile with the
	// z-score positive in the same step
	spreads := []float64{0, 0.02, 0.01, 0.015, 0.012, 0.014, 5.0}
	var st Step
	for i, s := range spreads {
		st = g.Push(s, true, ts)
		if i < len(spreads)-1 {
			require.Zero(t, st.Raw, "index %d", i)
			require.Zero(t, st.Final, "index %d", i)
		}
	}

	require.Equal(t, ShortSpread, st.Direction)
	require.NotZero(t, st.Raw)
	require.InDelta(t, st.Raw*cfg.FundingBoost, st.Final, 1e-12)
	require.Equal(t, 1, g.Diagnostics().FundingBoosts)
}

func TestWeekendBoostCountsOnlyInMarket(t *testing.T) {
	cfg := testConfig()
	cfg.MinLookback = 3
	cfg.FundingBoost = 0
	g := NewGenerator(cfg, 1, 1)
	friday := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	// the first five observations stay flat; only the final one enters
	spreads := []float64{0, 0.1, -0.1, 0.05, -0.05, 2.0}
	for _, s := range spreads[:len(spreads)-1] {
		st := g.Push(s, true, friday)
		require.Zero(t, st.Raw)
	}
	require.Zero(t, g.Diagnostics().WeekendBoosts)

	st := g.Push(spreads[len(spreads)-1], true, friday)
	require.Equal(t, ShortSpread, st.Direction)
	require.NotZero(t, st.Raw)
	require.InDelta(t, st.Raw*cfg.WeekendBoost, st.Final, 1e-12)
	require.Equal(t, 1, g.Diagnostics().WeekendBoosts)
}

func TestDiagnosticsCounters(t *testing.T) {
	g := NewGenerator(testConfig(), 10, 1)
	drive(g, []float64{1.5, 1.2, 0.1})
	d := g.Diagnostics()
	require.Equal(t, 2, d.Trades) // one entry, one exit
}

func TestRunDegradedInputsAllZero(t *testing.T) {
	cfg := testConfig()
	g := NewGenerator(cfg, 10, 1)
	res := g.Run([]float64{1, 2, 3}, nil, nil) // no regime mask: all masked
	for i, v := range res.Final {
		require.Zero(t, v, "index %d", i)
	}
}
