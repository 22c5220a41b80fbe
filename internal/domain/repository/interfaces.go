package repository

import (
	"context"
	"time"

	"PairPull/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Bar, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, b *models.Bar) error
	PublishBatch(ctx context.Context, bars []*models.Bar) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, b *models.Bar) error
	StoreBatch(ctx context.Context, bars []*models.Bar) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Bar, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// SignalSink publishes engine output downstream.
type SignalSink interface {
	PublishSignals(ctx context.Context, snaps []models.SignalSnapshot) error
	PublishPortfolio(ctx context.Context, snap *models.PortfolioSnapshot) error
	Close() error
}

type Metrics interface {
	RecordBarStored(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordSignal(pairID string, direction int)
	SetActivePairs(n int)
	SetGrossLeverage(v float64)
}
