package models

import "time"

// PairSnapshot is the externally visible view of a selected pair after a
// universe scan.
type PairSnapshot struct {
	PairID       string  `json:"pair_id"`
	AssetA       string  `json:"asset_a"`
	AssetB       string  `json:"asset_b"`
	Tier         int     `json:"tier"`
	Correlation  float64 `json:"correlation"`
	AdfPValue    float64 `json:"adf_pvalue"`
	HalfLifeDays float64 `json:"half_life_days"`
	StaticBeta   float64 `json:"static_beta"`
	QualityScore float64 `json:"quality_score"`
}

// SignalSnapshot is the latest signal state for one active pair.
type SignalSnapshot struct {
	PairID    string    `json:"pair_id"`
	Timestamp time.Time `json:"timestamp"`
	Beta      float64   `json:"beta"`
	Spread    float64   `json:"spread"`
	ZScore    float64   `json:"z_score"`
	Direction int       `json:"direction"` // +1 long spread, -1 short spread, 0 flat
	Size      float64   `json:"size"`
	Signal    float64   `json:"signal"`
	Favorable bool      `json:"regime_favorable"`
}

// PortfolioSnapshot summarizes the latest portfolio construction pass.
type PortfolioSnapshot struct {
	Timestamp       time.Time          `json:"timestamp"`
	Weights         map[string]float64 `json:"weights"`
	VolScalar       float64            `json:"vol_scalar"`
	RealizedVol     float64            `json:"realized_vol"`
	GrossLeverage   float64            `json:"gross_leverage"`
	Halted          bool               `json:"halted"`
	HaltedDays      int                `json:"halted_days"`
	PairKillDays    map[string]int     `json:"pair_kill_days,omitempty"`
	DiversifyRatio  float64            `json:"diversification_ratio"`
	AvgPairwiseCorr float64            `json:"avg_pairwise_corr"`
}
