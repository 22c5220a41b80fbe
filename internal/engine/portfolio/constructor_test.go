package portfolio

import (
	"math/rand"
	"testing"

	"PairPull/internal/engine/stats"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		PairDdKill:         0.10,
		ConvictionLookback: 30,
		RebalFreq:          20,
		HighMult:           1.5,
		LowMult:            0.5,
		HighThresh:         1.0,
		LowThresh:          -1.0,
		TargetVol:          0.20,
		VolWindow:          20,
		VolFloorQuantile:   0.10,
		MaxLeverage:        3.0,
		DrawdownHalt:       0.15,
		TradingDaysPerYear: 365,
	}
}

func noisyPnL(n int, seed int64, scale float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * scale
	}
	return out
}

func TestWeightsSumToOneEveryDay(t *testing.T) {
	c := NewConstructor(testConfig())
	pnls := map[string][]float64{
		"A-B": noisyPnL(200, 1, 0.01),
		"C-D": noisyPnL(200, 2, 0.01),
		"E-F": noisyPnL(200, 3, 0.01),
	}
	res := c.Construct(pnls)
	for tix := 0; tix < 200; tix++ {
		sum := 0.0
		for id := range pnls {
			sum += res.Weights[id][tix]
		}
		require.InDelta(t, 1.0, sum, 1e-9, "day %d", tix)
	}
}

func TestWeightsHeldBetweenRebalances(t *testing.T) {
	cfg := testConfig()
	cfg.RebalFreq = 25
	c := NewConstructor(cfg)
	pnls := map[string][]float64{
		"A-B": noisyPnL(100, 4, 0.01),
		"C-D": noisyPnL(100, 5, 0.02),
	}
	res := c.Construct(pnls)
	for id := range pnls {
		w := res.Weights[id]
		for tix := 1; tix < len(w); tix++ {
			if w[tix] != w[tix-1] {
				require.Zero(t, tix%cfg.RebalFreq, "%s weight moved mid-block at %d", id, tix)
			}
		}
	}
}

func TestVolScalarBounds(t *testing.T) {
	c := NewConstructor(testConfig())
	pnls := map[string][]float64{
		"A-B": noisyPnL(300, 6, 0.0001), // tiny vol forces scalar to the cap
		"C-D": noisyPnL(300, 7, 0.5),    // huge vol forces scalar to the floor
	}
	res := c.Construct(pnls)
	for tix, s := range res.VolScalar {
		require.GreaterOrEqual(t, s, 0.1, "day %d", tix)
		require.LessOrEqual(t, s, c.cfg.MaxLeverage, "day %d", tix)
	}
}

func TestPairKillZeroesSingleBreachDay(t *testing.T) {
	// a pair that loses 0.12 on one day (beyond the 0.10 kill) and is
	// otherwise quiet: only the breach day is zeroed
	pnl := make([]float64, 10)
	pnl[4] = 0.01
	pnl[5] = -0.12
	pnl[6] = 0.005

	killed, days := applyDrawdownCut(pnl, 0.10)
	require.Equal(t, 1, days)
	require.Zero(t, killed[5])
	require.Equal(t, 0.01, killed[4])
	require.Equal(t, 0.005, killed[6])
}

func TestDrawdownCutIdempotent(t *testing.T) {
	pnl := noisyPnL(500, 8, 0.05)
	once, _ := applyDrawdownCut(pnl, 0.10)
	twice, again := applyDrawdownCut(once, 0.10)
	require.Equal(t, once, twice)
	require.Zero(t, again)
}

func TestPairKillIsolation(t *testing.T) {
	c := NewConstructor(testConfig())
	quiet := noisyPnL(50, 9, 0.001)
	breach := make([]float64, 50)
	breach[10] = -0.5

	res := c.Construct(map[string][]float64{
		"A-B": breach,
		"C-D": quiet,
	})
	require.Zero(t, res.KilledPnL["A-B"][10])
	require.Equal(t, quiet, res.KilledPnL["C-D"])
}

func TestSharpeToMultInterpolation(t *testing.T) {
	c := NewConstructor(testConfig())
	require.Equal(t, 1.5, c.sharpeToMult(2.0))
	require.Equal(t, 0.5, c.sharpeToMult(-2.0))
	require.InDelta(t, 1.0, c.sharpeToMult(0.0), 1e-12) // midpoint
	require.Equal(t, 1.0, c.sharpeToMult(stats.Undefined))
}

func TestEmptyPanel(t *testing.T) {
	c := NewConstructor(testConfig())
	res := c.Construct(map[string][]float64{})
	require.Empty(t, res.PortfolioPnL)
}

func TestHaltCountsReported(t *testing.T) {
	cfg := testConfig()
	cfg.PairDdKill = 0 // disable the pair kill so the halt sees the loss
	cfg.DrawdownHalt = 0.05
	cfg.VolWindow = 0 // undefined vol keeps scalar at 1
	c := NewConstructor(cfg)

	pnl := make([]float64, 20)
	pnl[10] = -0.2
	res := c.Construct(map[string][]float64{"A-B": pnl})
	require.Equal(t, 1, res.Diagnostics.HaltedDays)
	require.Zero(t, res.PortfolioPnL[10])
}
