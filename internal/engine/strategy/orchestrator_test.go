package strategy

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"PairPull/internal/engine/coint"
	"PairPull/internal/engine/kalman"
	"PairPull/internal/engine/portfolio"
	"PairPull/internal/engine/regime"
	"PairPull/internal/engine/signal"

	"github.com/stretchr/testify/require"
)

func testEngineConfig() Config {
	return Config{
		Analyzer: coint.Config{
			MinCorrelation: 0.8,
			MaxAdfPValue:   0.10,
			MinHalfLife:    1,
			MaxHalfLife:    100,
			MaxPairs:       3,
		},
		Kalman: kalman.Config{Delta: 1e-4, Ve: 1e-3},
		Regime: regime.Config{
			CorrLookback:      20,
			CorrThreshold:     0.5,
			VolShortWindow:    5,
			VolLongWindow:     20,
			VolRatioThreshold: 0.3,
			CheckFrequency:    50,
			CointWindow:       100,
			KillPValue:        0.5,
			RevivePValue:      0.05,
		},
		Signal: signal.Config{
			ZEntry:              1.0,
			ZStop:               3.5,
			ZExitLong:           0.2,
			ZExitShort:          0.2,
			MinHolding:          2,
			LookbackMultiplier:  2.0,
			MinLookback:         10,
			MaxLookback:         60,
			SizeMin:             0.25,
			SizeMax:             1.0,
			SizeCapZ:            2.5,
			FundingBoost:        1.25,
			FundingMomWindow:    5,
			FundingHighQuantile: 0.9,
			FundingLowQuantile:  0.1,
			FundingMinObs:       30,
			WeekendBoost:        1.1,
		},
		Portfolio: portfolio.Config{
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
		},
	}
}

// testPanel builds a universe with one cointegrated pair (AAA~BBB) and one
// unrelated random walk (CCC).
func testPanel(n int, seed int64) *Panel {
	rng := rand.New(rand.NewSource(seed))
	times := make([]time.Time, n)
	pa := make([]float64, n)
	pb := make([]float64, n)
	pc := make([]float64, n)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	x := math.Log(100.0)
	c := math.Log(30.0)
	noise := 0.0
	for i := 0; i < n; i++ {
		times[i] = t0.Add(time.Duration(i) * 24 * time.Hour)
		x += rng.NormFloat64() * 0.02
		noise = 0.9*noise + rng.NormFloat64()*0.005
		c += rng.NormFloat64() * 0.03
		pb[i] = math.Exp(x)
		pa[i] = math.Exp(0.8*x + 0.5 + noise)
		pc[i] = math.Exp(c)
	}
	return &Panel{
		Symbols: []string{"AAA", "BBB", "CCC"},
		Times:   times,
		Prices:  map[string][]float64{"AAA": pa, "BBB": pb, "CCC": pc},
	}
}

func TestScanSelectsCointegratedPair(t *testing.T) {
	panel := testPanel(500, 21)
	o := NewOrchestrator(testEngineConfig())

	cands, err := o.ScanUniverse(panel)
	require.NoError(t, err)
	require.Len(t, cands, 3) // AAA-BBB, AAA-CCC, BBB-CCC

	ids := o.PairIDs()
	require.Contains(t, ids, "AAA-BBB")
	for _, p := range o.ActivePairs() {
		if p.ID == "AAA-BBB" {
			require.Equal(t, 1, p.Tier)
		}
	}
}

func TestBacktestMatchesIncrementalStepping(t *testing.T) {
	panel := testPanel(400, 22)

	batch := NewOrchestrator(testEngineConfig())
	batchRes, err := batch.RunBacktest(panel)
	require.NoError(t, err)

	// replay: scan once, then feed bars one at a time
	live := NewOrchestrator(testEngineConfig())
	_, err = live.ScanUniverse(panel)
	require.NoError(t, err)
	for i := range panel.Times {
		live.OnBar(panel.BarAt(i))
	}
	liveRes := live.Collect(panel.Times)

	require.Equal(t, batchRes.Signals, liveRes.Signals)
	require.Equal(t, batchRes.PairPnL, liveRes.PairPnL)
	require.Equal(t, batchRes.Portfolio.PortfolioPnL, liveRes.Portfolio.PortfolioPnL)
}

func TestMissingSymbolDegradesOnlyThatPair(t *testing.T) {
	panel := testPanel(300, 23)
	o := NewOrchestrator(testEngineConfig())
	_, err := o.ScanUniverse(panel)
	require.NoError(t, err)
	require.NotEmpty(t, o.PairIDs())

	// a bar without CCC: pairs touching CCC emit zero, AAA-BBB still steps
	bar := panel.BarAt(0)
	delete(bar.Prices, "CCC")
	sigs := o.OnBar(bar)
	for _, s := range sigs {
		if s.PairID != "AAA-BBB" {
			require.Zero(t, s.Signal)
		}
	}
	for _, p := range o.ActivePairs() {
		if p.ID == "AAA-BBB" {
			require.True(t, p.filter.Initialized(), "healthy pair did not step")
		} else {
			require.False(t, p.filter.Initialized(), "degraded pair touched its filter")
		}
		require.Len(t, p.pnl, 1) // every pair stays aligned to the time index
	}
}

func TestSurvivingPairKeepsState(t *testing.T) {
	panel := testPanel(400, 24)
	o := NewOrchestrator(testEngineConfig())
	_, err := o.ScanUniverse(panel)
	require.NoError(t, err)

	var before *ActivePair
	for _, p := range o.ActivePairs() {
		if p.ID == "AAA-BBB" {
			before = p
		}
	}
	require.NotNil(t, before)

	// advance some state, then re-scan the same panel
	for i := 0; i < 50; i++ {
		o.OnBar(panel.BarAt(i))
	}
	_, err = o.ScanUniverse(panel)
	require.NoError(t, err)

	for _, p := range o.ActivePairs() {
		if p.ID == "AAA-BBB" {
			require.Same(t, before, p, "surviving pair was rebuilt")
		}
	}
}

func TestPanelValidation(t *testing.T) {
	p := &Panel{
		Symbols: []string{"AAA"},
		Times:   []time.Time{time.Now()},
		Prices:  map[string][]float64{"AAA": {-1}},
	}
	require.Error(t, p.Validate())

	p.Prices["AAA"] = []float64{100}
	require.NoError(t, p.Validate())

	p.Prices = map[string][]float64{}
	require.Error(t, p.Validate())
}

func TestDiagnosticsAssembled(t *testing.T) {
	panel := testPanel(400, 25)
	o := NewOrchestrator(testEngineConfig())
	res, err := o.RunBacktest(panel)
	require.NoError(t, err)

	d := res.Diagnostics
	require.Equal(t, len(o.PairIDs()), d.ActivePairs)
	require.Equal(t, 3, d.Candidates)
	require.GreaterOrEqual(t, d.Viable, 1)
	for _, id := range o.PairIDs() {
		require.Contains(t, d.PairSignals, id)
	}
}
