package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"PairPull/internal/domain/models"
	domrepo "PairPull/internal/domain/repository"
	"PairPull/internal/engine/strategy"
)

// PanelUseCase assembles aligned close-price panels for the engine.
type PanelUseCase struct {
	store domrepo.PanelStore
}

func NewPanelUseCase(store domrepo.PanelStore) *PanelUseCase {
	return &PanelUseCase{store: store}
}

// BuildPanel fetches the latest n candles per symbol and aligns them on the
// intersection of their timestamps. Symbols with no data are dropped; at
// least two symbols must survive for the engine to form pairs.
func (uc *PanelUseCase) BuildPanel(ctx context.Context, symbols []string, n int, tf domrepo.Timeframe) (*strategy.Panel, error) {
	if len(symbols) < 2 {
		return nil, fmt.Errorf("need at least two symbols, got %d", len(symbols))
	}
	if n <= 0 {
		n = 730
	}

	series := make(map[string]map[int64]float64, len(symbols))
	kept := make([]string, 0, len(symbols))
	var common map[int64]struct{}

	for _, sym := range symbols {
		cs, err := uc.store.GetLatestNCandles(ctx, sym, n, tf)
		if err != nil {
			return nil, fmt.Errorf("panel %s: %w", sym, err)
		}
		if len(cs) == 0 {
			continue
		}
		m := make(map[int64]float64, len(cs))
		for _, c := range cs {
			if c.Close > 0 {
				m[c.Bucket.Unix()] = c.Close
			}
		}
		series[sym] = m
		kept = append(kept, sym)

		if common == nil {
			common = make(map[int64]struct{}, len(m))
			for ts := range m {
				common[ts] = struct{}{}
			}
		} else {
			for ts := range common {
				if _, ok := m[ts]; !ok {
					delete(common, ts)
				}
			}
		}
	}

	if len(kept) < 2 {
		return nil, fmt.Errorf("only %d symbols have data", len(kept))
	}
	if len(common) == 0 {
		return nil, fmt.Errorf("no overlapping timestamps across symbols")
	}

	stamps := make([]int64, 0, len(common))
	for ts := range common {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	times := make([]time.Time, len(stamps))
	prices := make(map[string][]float64, len(kept))
	for _, sym := range kept {
		prices[sym] = make([]float64, len(stamps))
	}
	for i, ts := range stamps {
		times[i] = time.Unix(ts, 0).UTC()
		for _, sym := range kept {
			prices[sym][i] = series[sym][ts]
		}
	}

	p := &strategy.Panel{Symbols: kept, Times: times, Prices: prices}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("panel validation: %w", err)
	}
	return p, nil
}

// GetCandles returns raw candle history for one symbol with limit clipping.
func (uc *PanelUseCase) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if from.After(to) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if limit <= 0 {
		limit = 10000
	}
	if limit > 50000 {
		limit = 50000
	}

	candles, err := uc.store.GetCandles(ctx, symbol, from, to, tf)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if len(candles) > limit {
		candles = candles[:limit]
	}
	return candles, nil
}
