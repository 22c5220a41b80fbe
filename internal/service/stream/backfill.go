package stream

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"PairPull/internal/domain/models"
	drepo "PairPull/internal/domain/repository"
	xhttp "PairPull/pkg/http"
	applogger "PairPull/pkg/logger"
)

// Backfiller pulls historical candles over the exchange REST API so the
// engine has enough panel history before live bars start arriving.
type Backfiller struct {
	restURL string
	apiKey  string
	client  *xhttp.Client
	store   drepo.Storage
	logger  *applogger.Logger
}

func NewBackfiller(restURL, apiKey string, store drepo.Storage, l *applogger.Logger) *Backfiller {
	return &Backfiller{
		restURL: restURL,
		apiKey:  apiKey,
		client:  xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
		store:   store,
		logger:  l,
	}
}

// candleResponse is the exchange REST candle payload: parallel arrays keyed
// by field, status "ok" or "no_data".
type candleResponse struct {
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
	Time   []int64   `json:"t"`
	Status string    `json:"s"`
}

// Backfill fetches up to n daily candles per symbol and stores them.
func (b *Backfiller) Backfill(ctx context.Context, symbols []string, n int) error {
	if b.restURL == "" || n <= 0 {
		return nil
	}
	to := time.Now().Unix()
	from := to - int64(n)*86400

	for _, sym := range symbols {
		var resp candleResponse
		err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    b.restURL + "/stock/candle",
			QueryParams: map[string][]string{
				"symbol":     {sym},
				"resolution": {"D"},
				"from":       {strconv.FormatInt(from, 10)},
				"to":         {strconv.FormatInt(to, 10)},
				"token":      {b.apiKey},
			},
		}, &resp)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", sym, err)
		}
		if resp.Status != "ok" || len(resp.Time) == 0 {
			b.logger.Warn("backfill returned no data", applogger.String("symbol", sym))
			continue
		}

		bars := make([]*models.Bar, 0, len(resp.Time))
		for i, ts := range resp.Time {
			if i >= len(resp.Close) {
				break
			}
			vol := 0.0
			if i < len(resp.Volume) {
				vol = resp.Volume[i]
			}
			bars = append(bars, &models.Bar{
				Symbol:    sym,
				Timestamp: ts,
				Close:     resp.Close[i],
				Volume:    vol,
			})
		}
		if err := b.store.StoreBatch(ctx, bars); err != nil {
			return fmt.Errorf("backfill store %s: %w", sym, err)
		}
		b.logger.Info("backfill complete",
			applogger.String("symbol", sym),
			applogger.Int("bars", len(bars)),
		)
	}
	return nil
}
