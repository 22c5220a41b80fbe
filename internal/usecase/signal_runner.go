package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"PairPull/internal/domain/models"
	domrepo "PairPull/internal/domain/repository"
	"PairPull/internal/engine/coint"
	"PairPull/internal/engine/stats"
	"PairPull/internal/engine/strategy"
	emetrics "PairPull/internal/service/metrics"
	applogger "PairPull/pkg/logger"
)

// SignalRunner owns the engine refresh cycle: it rebuilds the price panel,
// replays it through a fresh orchestrator, publishes the resulting signals,
// and caches the latest state for the HTTP layer.
type SignalRunner struct {
	panel   *PanelUseCase
	engine  strategy.Config
	sink    domrepo.SignalSink
	metrics domrepo.Metrics
	logger  *applogger.Logger

	symbols []string
	bars    int
	tf      domrepo.Timeframe

	mu        sync.RWMutex
	pairs     []models.PairSnapshot
	signals   []models.SignalSnapshot
	portfolio *models.PortfolioSnapshot
	diag      strategy.Diagnostics
	refreshed time.Time
}

func NewSignalRunner(
	panel *PanelUseCase,
	engine strategy.Config,
	sink domrepo.SignalSink,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	symbols []string,
	bars int,
	tf domrepo.Timeframe,
) *SignalRunner {
	return &SignalRunner{
		panel:   panel,
		engine:  engine,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		symbols: symbols,
		bars:    bars,
		tf:      tf,
	}
}

// Refresh rebuilds the panel and replays it bar by bar through a fresh
// orchestrator. A full replay keeps every refresh deterministic with
// respect to the stored history.
func (r *SignalRunner) Refresh(ctx context.Context) error {
	start := time.Now()
	p, err := r.panel.BuildPanel(ctx, r.symbols, r.bars, r.tf)
	if err != nil {
		emetrics.RefreshErrors.WithLabelValues("panel").Inc()
		return fmt.Errorf("build panel: %w", err)
	}

	orch := strategy.NewOrchestrator(r.engine)
	cands, err := orch.ScanUniverse(p)
	if err != nil {
		emetrics.RefreshErrors.WithLabelValues("scan").Inc()
		return fmt.Errorf("scan universe: %w", err)
	}
	var last []strategy.PairSignal
	for i := range p.Times {
		last = orch.OnBar(p.BarAt(i))
	}
	res := orch.Collect(p.Times)
	emetrics.ScanDuration.Observe(time.Since(start).Seconds())

	byID := make(map[string]coint.Candidate, len(cands))
	for _, c := range cands {
		byID[c.PairID()] = c
	}
	ids := orch.PairIDs()
	pairs := make([]models.PairSnapshot, 0, len(ids))
	for _, id := range ids {
		c := byID[id]
		pairs = append(pairs, models.PairSnapshot{
			PairID:       c.PairID(),
			AssetA:       c.AssetA,
			AssetB:       c.AssetB,
			Tier:         c.Tier,
			Correlation:  c.Correlation,
			AdfPValue:    c.AdfPValue,
			HalfLifeDays: c.HalfLifeDays,
			StaticBeta:   c.StaticBeta,
			QualityScore: c.QualityScore,
		})
		emetrics.PairQuality.WithLabelValues(c.PairID()).Set(c.QualityScore)
	}

	signals := make([]models.SignalSnapshot, 0, len(last))
	for _, s := range last {
		signals = append(signals, signalSnapshot(s))
		r.metrics.RecordSignal(s.PairID, int(s.Direction))
	}

	port := portfolioSnapshot(p.Times, res)
	r.metrics.SetActivePairs(len(pairs))
	r.metrics.SetGrossLeverage(port.GrossLeverage)

	r.mu.Lock()
	r.pairs = pairs
	r.signals = signals
	r.portfolio = port
	r.diag = res.Diagnostics
	r.refreshed = time.Now()
	r.mu.Unlock()

	if r.sink != nil {
		if err := r.sink.PublishSignals(ctx, signals); err != nil {
			emetrics.RefreshErrors.WithLabelValues("publish").Inc()
			r.logger.Warn("signal publish failed", applogger.Error(err))
		}
		if err := r.sink.PublishPortfolio(ctx, port); err != nil {
			emetrics.RefreshErrors.WithLabelValues("publish").Inc()
			r.logger.Warn("portfolio publish failed", applogger.Error(err))
		}
	}

	r.logger.Info("engine refresh complete",
		applogger.Int("pairs", len(pairs)),
		applogger.Int("bars", len(p.Times)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Run refreshes on a fixed interval until ctx is cancelled.
func (r *SignalRunner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := r.Refresh(ctx); err != nil {
		r.logger.Error("initial refresh failed", applogger.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Error("refresh failed", applogger.Error(err))
			}
		}
	}
}

// Pairs returns the latest scan result.
func (r *SignalRunner) Pairs() []models.PairSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pairs
}

// Signal returns the latest snapshot for one pair.
func (r *SignalRunner) Signal(pairID string) (models.SignalSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.signals {
		if s.PairID == pairID {
			return s, true
		}
	}
	return models.SignalSnapshot{}, false
}

// Signals returns the latest snapshots for all active pairs.
func (r *SignalRunner) Signals() []models.SignalSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.signals
}

// Portfolio returns the latest portfolio snapshot.
func (r *SignalRunner) Portfolio() *models.PortfolioSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.portfolio
}

// Diagnostics returns the latest engine diagnostics.
func (r *SignalRunner) Diagnostics() (strategy.Diagnostics, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.diag, r.refreshed
}

// signalSnapshot converts an engine signal to its API/wire form. Warmup and
// regime-masked bars carry an undefined z-score; the snapshot reports 0 so
// the JSON surface never sees NaN.
func signalSnapshot(s strategy.PairSignal) models.SignalSnapshot {
	z := s.Z
	if stats.IsUndef(z) {
		z = 0
	}
	return models.SignalSnapshot{
		PairID:    s.PairID,
		Timestamp: s.Time,
		Beta:      s.Beta,
		Spread:    s.Spread,
		ZScore:    z,
		Direction: int(s.Direction),
		Size:      math.Abs(s.Signal),
		Signal:    s.Signal,
		Favorable: s.Favorable,
	}
}

func portfolioSnapshot(times []time.Time, res *strategy.BacktestResult) *models.PortfolioSnapshot {
	snap := &models.PortfolioSnapshot{
		Weights:         map[string]float64{},
		DiversifyRatio:  res.Portfolio.Diagnostics.DiversificationRatio,
		AvgPairwiseCorr: res.Portfolio.Diagnostics.AvgPairCorrelation,
		RealizedVol:     res.Portfolio.Diagnostics.RealizedVol,
		HaltedDays:      res.Portfolio.Diagnostics.HaltedDays,
		PairKillDays:    res.Portfolio.Diagnostics.KilledDays,
	}
	if len(times) > 0 {
		snap.Timestamp = times[len(times)-1]
	}
	n := len(res.Portfolio.VolScalar)
	if n > 0 {
		snap.VolScalar = res.Portfolio.VolScalar[n-1]
	}
	gross := 0.0
	for id, w := range res.Portfolio.Weights {
		if len(w) > 0 {
			last := w[len(w)-1]
			snap.Weights[id] = last
			gross += math.Abs(last)
		}
	}
	snap.GrossLeverage = gross * snap.VolScalar
	// halted today when the scaled pnl was zeroed while the inputs were not
	if n > 0 && len(res.Portfolio.PortfolioPnL) == n && len(res.Portfolio.BlendedPnL) == n {
		scaled := res.Portfolio.BlendedPnL[n-1] * res.Portfolio.VolScalar[n-1]
		snap.Halted = res.Portfolio.PortfolioPnL[n-1] == 0 && scaled != 0
	}
	return snap
}
