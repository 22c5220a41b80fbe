package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairPull/internal/domain/models"
	domrepo "PairPull/internal/domain/repository"
)

type fakePanelStore struct {
	candles map[string][]models.Candle
}

func (f *fakePanelStore) GetCandles(_ context.Context, symbol string, from, to time.Time, _ domrepo.Timeframe) ([]models.Candle, error) {
	out := []models.Candle{}
	for _, c := range f.candles[symbol] {
		if !c.Bucket.Before(from) && !c.Bucket.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakePanelStore) GetLatestNCandles(_ context.Context, symbol string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	cs := f.candles[symbol]
	if len(cs) > n {
		cs = cs[len(cs)-n:]
	}
	return cs, nil
}

func day(i int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func candleSeries(start, n int, base float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = models.Candle{Bucket: day(start + i), Close: base + float64(i)}
	}
	return out
}

func TestBuildPanelAlignsOnIntersection(t *testing.T) {
	store := &fakePanelStore{candles: map[string][]models.Candle{
		"AAA": candleSeries(0, 10, 100), // days 0..9
		"BBB": candleSeries(3, 10, 50),  // days 3..12
	}}
	uc := NewPanelUseCase(store)

	p, err := uc.BuildPanel(context.Background(), []string{"AAA", "BBB"}, 100, domrepo.TF1d)
	require.NoError(t, err)

	// overlap is days 3..9
	require.Len(t, p.Times, 7)
	assert.Equal(t, day(3), p.Times[0])
	assert.Equal(t, day(9), p.Times[6])
	assert.Equal(t, []string{"AAA", "BBB"}, p.Symbols)
	assert.Equal(t, 103.0, p.Prices["AAA"][0])
	assert.Equal(t, 50.0, p.Prices["BBB"][0])
	assert.Equal(t, 109.0, p.Prices["AAA"][6])
}

func TestBuildPanelDropsEmptySymbols(t *testing.T) {
	store := &fakePanelStore{candles: map[string][]models.Candle{
		"AAA": candleSeries(0, 5, 100),
		"BBB": candleSeries(0, 5, 50),
		"CCC": nil,
	}}
	uc := NewPanelUseCase(store)

	p, err := uc.BuildPanel(context.Background(), []string{"AAA", "BBB", "CCC"}, 100, domrepo.TF1d)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, p.Symbols)
}

func TestBuildPanelNeedsTwoSurvivors(t *testing.T) {
	store := &fakePanelStore{candles: map[string][]models.Candle{
		"AAA": candleSeries(0, 5, 100),
	}}
	uc := NewPanelUseCase(store)

	_, err := uc.BuildPanel(context.Background(), []string{"AAA", "BBB"}, 100, domrepo.TF1d)
	require.Error(t, err)
}

func TestBuildPanelNoOverlap(t *testing.T) {
	store := &fakePanelStore{candles: map[string][]models.Candle{
		"AAA": candleSeries(0, 5, 100),
		"BBB": candleSeries(10, 5, 50),
	}}
	uc := NewPanelUseCase(store)

	_, err := uc.BuildPanel(context.Background(), []string{"AAA", "BBB"}, 100, domrepo.TF1d)
	require.Error(t, err)
}

func TestBuildPanelSkipsNonPositiveCloses(t *testing.T) {
	bad := candleSeries(0, 6, 50)
	bad[2].Close = 0
	store := &fakePanelStore{candles: map[string][]models.Candle{
		"AAA": candleSeries(0, 6, 100),
		"BBB": bad,
	}}
	uc := NewPanelUseCase(store)

	p, err := uc.BuildPanel(context.Background(), []string{"AAA", "BBB"}, 100, domrepo.TF1d)
	require.NoError(t, err)
	// day 2 is excluded from the intersection
	require.Len(t, p.Times, 5)
	for _, ts := range p.Times {
		assert.NotEqual(t, day(2), ts)
	}
}

func TestGetCandlesClipsLimit(t *testing.T) {
	store := &fakePanelStore{candles: map[string][]models.Candle{
		"AAA": candleSeries(0, 30, 100),
	}}
	uc := NewPanelUseCase(store)

	cs, err := uc.GetCandles(context.Background(), "AAA", day(0), day(29), domrepo.TF1d, 10)
	require.NoError(t, err)
	assert.Len(t, cs, 10)

	_, err = uc.GetCandles(context.Background(), "", day(0), day(29), domrepo.TF1d, 10)
	require.Error(t, err)

	_, err = uc.GetCandles(context.Background(), "AAA", day(5), day(1), domrepo.TF1d, 10)
	require.Error(t, err)
}
