package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		BarsTopic    string   `yaml:"bars_topic"`
		SignalsTopic string   `yaml:"signals_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Exchange struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		RestURL        string        `yaml:"rest_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"exchange"`
	Engine EngineConfig `yaml:"engine"`
}

// EngineConfig carries every parameter of the signal engine. Defaults follow
// the research configuration and are applied before validation.
type EngineConfig struct {
	Runner struct {
		Interval  time.Duration `yaml:"interval"`
		PanelBars int           `yaml:"panel_bars"`
		Timeframe string        `yaml:"timeframe"`
		ScanEvery int           `yaml:"scan_every"` // refreshes between universe re-scans
	} `yaml:"runner"`
	Pairs struct {
		MinCorrelation float64 `yaml:"min_correlation"`
		MaxAdfPValue   float64 `yaml:"max_adf_pvalue"`
		MinHalfLife    float64 `yaml:"min_half_life"`
		MaxHalfLife    float64 `yaml:"max_half_life"`
		MaxPairs       int     `yaml:"max_pairs"`
	} `yaml:"pairs"`
	Kalman struct {
		Delta float64 `yaml:"delta"`
		Ve    float64 `yaml:"ve"`
	} `yaml:"kalman"`
	Regime struct {
		CorrLookback      int     `yaml:"corr_lookback"`
		CorrThreshold     float64 `yaml:"corr_threshold"`
		VolShortWindow    int     `yaml:"vol_short_window"`
		VolLongWindow     int     `yaml:"vol_long_window"`
		VolRatioThreshold float64 `yaml:"vol_ratio_threshold"`
		CheckFrequency    int     `yaml:"check_frequency"`
		CointWindow       int     `yaml:"coint_window"`
		KillPValue        float64 `yaml:"kill_pvalue"`
		RevivePValue      float64 `yaml:"revive_pvalue"`
	} `yaml:"regime"`
	Signal struct {
		ZEntry              float64 `yaml:"z_entry"`
		ZStop               float64 `yaml:"z_stop"`
		ZExitLong           float64 `yaml:"z_exit_long"`
		ZExitShort          float64 `yaml:"z_exit_short"`
		MinHolding          int     `yaml:"min_holding"`
		LookbackMultiplier  float64 `yaml:"lookback_multiplier"`
		MinLookback         int     `yaml:"min_lookback"`
		MaxLookback         int     `yaml:"max_lookback"`
		SizeMin             float64 `yaml:"size_min"`
		SizeMax             float64 `yaml:"size_max"`
		SizeCapZ            float64 `yaml:"size_cap_z"`
		FundingBoost        float64 `yaml:"funding_boost"`
		FundingMomWindow    int     `yaml:"funding_mom_window"`
		FundingHighQuantile float64 `yaml:"funding_high_quantile"`
		FundingLowQuantile  float64 `yaml:"funding_low_quantile"`
		FundingMinObs       int     `yaml:"funding_min_obs"`
		WeekendBoost        float64 `yaml:"weekend_boost"`
	} `yaml:"signal"`
	Portfolio struct {
		PairDdKill         float64 `yaml:"pair_dd_kill"`
		ConvictionLookback int     `yaml:"conviction_lookback"`
		RebalFreq          int     `yaml:"rebal_freq"`
		HighMult           float64 `yaml:"high_mult"`
		LowMult            float64 `yaml:"low_mult"`
		HighThresh         float64 `yaml:"high_thresh"`
		LowThresh          float64 `yaml:"low_thresh"`
		TargetVol          float64 `yaml:"target_vol"`
		VolWindow          int     `yaml:"vol_window"`
		VolFloorQuantile   float64 `yaml:"vol_floor_quantile"`
		MaxLeverage        float64 `yaml:"max_leverage"`
		DrawdownHalt       float64 `yaml:"drawdown_halt"`
		TradingDaysPerYear int     `yaml:"trading_days_per_year"`
	} `yaml:"portfolio"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyEngineDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("EXCHANGE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Exchange.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BARS_TOPIC"); v != "" {
		c.Kafka.BarsTopic = v
	}
	if v := os.Getenv("KAFKA_SIGNALS_TOPIC"); v != "" {
		c.Kafka.SignalsTopic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyEngineDefaults() {
	e := &c.Engine
	if e.Runner.Interval <= 0 {
		e.Runner.Interval = time.Hour
	}
	if e.Runner.PanelBars <= 0 {
		e.Runner.PanelBars = 730
	}
	if e.Runner.Timeframe == "" {
		e.Runner.Timeframe = "1d"
	}
	if e.Runner.ScanEvery <= 0 {
		e.Runner.ScanEvery = 24
	}
	if e.Pairs.MinCorrelation == 0 {
		e.Pairs.MinCorrelation = 0.8
	}
	if e.Pairs.MaxAdfPValue == 0 {
		e.Pairs.MaxAdfPValue = 0.10
	}
	if e.Pairs.MinHalfLife == 0 {
		e.Pairs.MinHalfLife = 1
	}
	if e.Pairs.MaxHalfLife == 0 {
		e.Pairs.MaxHalfLife = 100
	}
	if e.Pairs.MaxPairs == 0 {
		e.Pairs.MaxPairs = 20
	}
	if e.Kalman.Delta == 0 {
		e.Kalman.Delta = 1e-4
	}
	if e.Kalman.Ve == 0 {
		e.Kalman.Ve = 1e-3
	}
	if e.Regime.CorrLookback == 0 {
		e.Regime.CorrLookback = 60
	}
	if e.Regime.CorrThreshold == 0 {
		e.Regime.CorrThreshold = 0.5
	}
	if e.Regime.VolShortWindow == 0 {
		e.Regime.VolShortWindow = 10
	}
	if e.Regime.VolLongWindow == 0 {
		e.Regime.VolLongWindow = 60
	}
	if e.Regime.VolRatioThreshold == 0 {
		e.Regime.VolRatioThreshold = 0.5
	}
	if e.Regime.CheckFrequency == 0 {
		e.Regime.CheckFrequency = 30
	}
	if e.Regime.CointWindow == 0 {
		e.Regime.CointWindow = 252
	}
	if e.Regime.KillPValue == 0 {
		e.Regime.KillPValue = 0.25
	}
	if e.Regime.RevivePValue == 0 {
		e.Regime.RevivePValue = 0.10
	}
	s := &e.Signal
	if s.ZEntry == 0 {
		s.ZEntry = 2.0
	}
	if s.ZStop == 0 {
		s.ZStop = 3.5
	}
	if s.ZExitLong == 0 {
		s.ZExitLong = 0.5
	}
	if s.ZExitShort == 0 {
		s.ZExitShort = 0.5
	}
	if s.MinHolding == 0 {
		s.MinHolding = 3
	}
	if s.LookbackMultiplier == 0 {
		s.LookbackMultiplier = 2.0
	}
	if s.MinLookback == 0 {
		s.MinLookback = 20
	}
	if s.MaxLookback == 0 {
		s.MaxLookback = 120
	}
	if s.SizeMin == 0 {
		s.SizeMin = 0.25
	}
	if s.SizeMax == 0 {
		s.SizeMax = 1.0
	}
	if s.SizeCapZ == 0 {
		s.SizeCapZ = 3.0
	}
	if s.FundingBoost == 0 {
		s.FundingBoost = 1.2
	}
	if s.FundingMomWindow == 0 {
		s.FundingMomWindow = 7
	}
	if s.FundingHighQuantile == 0 {
		s.FundingHighQuantile = 0.8
	}
	if s.FundingLowQuantile == 0 {
		s.FundingLowQuantile = 0.2
	}
	if s.FundingMinObs == 0 {
		s.FundingMinObs = 60
	}
	if s.WeekendBoost == 0 {
		s.WeekendBoost = 1.0
	}
	p := &e.Portfolio
	if p.PairDdKill == 0 {
		p.PairDdKill = 0.10
	}
	if p.ConvictionLookback == 0 {
		p.ConvictionLookback = 60
	}
	if p.RebalFreq == 0 {
		p.RebalFreq = 21
	}
	if p.HighMult == 0 {
		p.HighMult = 1.5
	}
	if p.LowMult == 0 {
		p.LowMult = 0.5
	}
	if p.HighThresh == 0 {
		p.HighThresh = 1.0
	}
	if p.LowThresh == 0 {
		p.LowThresh = -1.0
	}
	if p.TargetVol == 0 {
		p.TargetVol = 0.15
	}
	if p.VolWindow == 0 {
		p.VolWindow = 30
	}
	if p.VolFloorQuantile == 0 {
		p.VolFloorQuantile = 0.10
	}
	if p.MaxLeverage == 0 {
		p.MaxLeverage = 3.0
	}
	if p.DrawdownHalt == 0 {
		p.DrawdownHalt = 0.20
	}
	if p.TradingDaysPerYear == 0 {
		p.TradingDaysPerYear = 365
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.Exchange.Symbols) < 2 {
		return fmt.Errorf("exchange.symbols needs at least two symbols to form pairs")
	}
	e := &c.Engine
	if e.Pairs.MaxAdfPValue <= 0 || e.Pairs.MaxAdfPValue >= 1 {
		return fmt.Errorf("engine.pairs.max_adf_pvalue must be in (0, 1)")
	}
	if e.Pairs.MinHalfLife > e.Pairs.MaxHalfLife {
		return fmt.Errorf("engine.pairs.min_half_life must not exceed max_half_life")
	}
	if e.Kalman.Delta <= 0 || e.Kalman.Delta >= 1 {
		return fmt.Errorf("engine.kalman.delta must be in (0, 1)")
	}
	if e.Kalman.Ve <= 0 {
		return fmt.Errorf("engine.kalman.ve must be positive")
	}
	if e.Regime.KillPValue <= e.Regime.RevivePValue {
		return fmt.Errorf("engine.regime.kill_pvalue must exceed revive_pvalue for hysteresis")
	}
	if e.Signal.ZStop <= e.Signal.ZEntry {
		return fmt.Errorf("engine.signal.z_stop must exceed z_entry")
	}
	if e.Signal.ZExitLong >= e.Signal.ZEntry || e.Signal.ZExitShort >= e.Signal.ZEntry {
		return fmt.Errorf("engine.signal exit thresholds must be below z_entry")
	}
	if e.Signal.MinLookback > e.Signal.MaxLookback {
		return fmt.Errorf("engine.signal.min_lookback must not exceed max_lookback")
	}
	if e.Portfolio.MaxLeverage < 1 {
		return fmt.Errorf("engine.portfolio.max_leverage must be >= 1")
	}
	if e.Portfolio.TargetVol <= 0 {
		return fmt.Errorf("engine.portfolio.target_vol must be positive")
	}
	return nil
}
