package usecase

import (
	"context"
	"fmt"
	"time"

	"PairPull/internal/domain/models"
	domrepo "PairPull/internal/domain/repository"
	"PairPull/internal/engine/strategy"
)

// BacktestUseCase runs the full engine over stored history on demand.
type BacktestUseCase struct {
	panel  *PanelUseCase
	engine strategy.Config
}

func NewBacktestUseCase(panel *PanelUseCase, engine strategy.Config) *BacktestUseCase {
	return &BacktestUseCase{panel: panel, engine: engine}
}

// BacktestSummary is the response shape for an ad-hoc backtest.
type BacktestSummary struct {
	Symbols      []string                  `json:"symbols"`
	Bars         int                       `json:"bars"`
	From         time.Time                 `json:"from"`
	To           time.Time                 `json:"to"`
	Pairs        []models.PairSnapshot     `json:"pairs"`
	TotalPnL     float64                   `json:"total_pnl"`
	RealizedVol  float64                   `json:"realized_vol"`
	HaltedDays   int                       `json:"halted_days"`
	PairTrades   map[string]int            `json:"pair_trades"`
	FinalWeights map[string]float64        `json:"final_weights"`
	KilledDays   map[string]int            `json:"killed_days,omitempty"`
	Portfolio    *models.PortfolioSnapshot `json:"portfolio"`
}

func (uc *BacktestUseCase) Run(ctx context.Context, symbols []string, n int, tf domrepo.Timeframe) (*BacktestSummary, error) {
	p, err := uc.panel.BuildPanel(ctx, symbols, n, tf)
	if err != nil {
		return nil, fmt.Errorf("build panel: %w", err)
	}

	orch := strategy.NewOrchestrator(uc.engine)
	cands, err := orch.ScanUniverse(p)
	if err != nil {
		return nil, fmt.Errorf("scan universe: %w", err)
	}
	for i := range p.Times {
		orch.OnBar(p.BarAt(i))
	}
	res := orch.Collect(p.Times)

	byID := make(map[string]bool, len(orch.PairIDs()))
	for _, id := range orch.PairIDs() {
		byID[id] = true
	}
	pairs := make([]models.PairSnapshot, 0, len(byID))
	for _, c := range cands {
		if !byID[c.PairID()] {
			continue
		}
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
	}

	total := 0.0
	for _, v := range res.Portfolio.PortfolioPnL {
		total += v
	}
	trades := make(map[string]int, len(res.Diagnostics.PairSignals))
	for id, d := range res.Diagnostics.PairSignals {
		trades[id] = d.Trades
	}

	sum := &BacktestSummary{
		Symbols:      p.Symbols,
		Bars:         len(p.Times),
		Pairs:        pairs,
		TotalPnL:     total,
		RealizedVol:  res.Portfolio.Diagnostics.RealizedVol,
		HaltedDays:   res.Portfolio.Diagnostics.HaltedDays,
		PairTrades:   trades,
		KilledDays:   res.Portfolio.Diagnostics.KilledDays,
		FinalWeights: map[string]float64{},
		Portfolio:    portfolioSnapshot(p.Times, res),
	}
	if len(p.Times) > 0 {
		sum.From = p.Times[0]
		sum.To = p.Times[len(p.Times)-1]
	}
	for id, w := range res.Portfolio.Weights {
		if len(w) > 0 {
			sum.FinalWeights[id] = w[len(w)-1]
		}
	}
	return sum, nil
}
