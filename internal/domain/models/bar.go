package models

import "time"

// Bar is a single close observation for one symbol, as delivered by the
// exchange stream or the Kafka bars topic. Timestamp is unix seconds.
type Bar struct {
	Symbol    string
	Timestamp int64
	Close     float64
	Volume    float64
}

// Candle represents an OHLCV record as stored in ClickHouse.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
