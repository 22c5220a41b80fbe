package models

// Requests for the engine HTTP endpoints. Defined in domain for consistency and reuse.

type PairsRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=200"`
}

type SignalRequest struct {
	Pair string `query:"pair" json:"pair" validate:"required"`
}

type BacktestRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required"`
	N       int    `query:"n" json:"n" default:"730" validate:"gte=120,lte=5000"`
	TF      string `query:"tf" json:"tf" default:"1d" validate:"oneof=1m 1h 1d"`
}
