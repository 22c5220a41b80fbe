package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"PairPull/internal/domain/repository"
	"PairPull/internal/engine/coint"
	"PairPull/internal/engine/kalman"
	"PairPull/internal/engine/portfolio"
	"PairPull/internal/engine/regime"
	"PairPull/internal/engine/signal"
	"PairPull/internal/engine/strategy"
	"PairPull/internal/handler/api"
	mid "PairPull/internal/middleware"
	internalrepo "PairPull/internal/repository"
	icache "PairPull/internal/service/cache"
	"PairPull/internal/service/stream"
	pcache "PairPull/pkg/cache"
	"PairPull/internal/usecase"
	pkgch "PairPull/pkg/clickhouse"
	"PairPull/pkg/config"
	xhttp "PairPull/pkg/http"
	pkgkafka "PairPull/pkg/kafka"
	"PairPull/pkg/logger"
	"PairPull/pkg/metrics"
	"PairPull/pkg/queue"
	"PairPull/pkg/server"

	goredis "github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return logger.New(&logger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS pairpull",
		"CREATE TABLE IF NOT EXISTS pairpull.bars_raw (ts DateTime, symbol String, close Float64, volume Float64, source String, event_id String) ENGINE=ReplacingMergeTree ORDER BY (symbol, ts)",
		"CREATE TABLE IF NOT EXISTS pairpull.bars_1m (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, bucket)",
		"CREATE TABLE IF NOT EXISTS pairpull.bars_1h (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, bucket)",
		"CREATE TABLE IF NOT EXISTS pairpull.bars_1d (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, bucket)",
		"CREATE MATERIALIZED VIEW IF NOT EXISTS pairpull.bars_1m_mv TO pairpull.bars_1m AS SELECT toStartOfMinute(ts) AS bucket, symbol, argMin(close, ts) AS open, max(close) AS high, min(close) AS low, argMax(close, ts) AS close, sum(volume) AS vol FROM pairpull.bars_raw GROUP BY bucket, symbol",
		"CREATE MATERIALIZED VIEW IF NOT EXISTS pairpull.bars_1h_mv TO pairpull.bars_1h AS SELECT toStartOfHour(ts) AS bucket, symbol, argMin(close, ts) AS open, max(close) AS high, min(close) AS low, argMax(close, ts) AS close, sum(volume) AS vol FROM pairpull.bars_raw GROUP BY bucket, symbol",
		"CREATE MATERIALIZED VIEW IF NOT EXISTS pairpull.bars_1d_mv TO pairpull.bars_1d AS SELECT toStartOfDay(ts) AS bucket, symbol, argMin(close, ts) AS open, max(close) AS high, min(close) AS low, argMax(close, ts) AS close, sum(volume) AS vol FROM pairpull.bars_raw GROUP BY bucket, symbol",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBarStorage creates ClickHouse storage repository.
func ProvideBarStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".bars_raw")
}

// ProvideBarPublisher creates Kafka publisher repository.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.BarsTopic)
}

// ProvideSignalSink creates the Kafka sink for engine output.
func ProvideSignalSink(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalSink {
	return internalrepo.NewKafkaSignalSink(producer, cfg.Kafka.SignalsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaBarsHandler registers handler for the bars topic.
func ProvideKafkaBarsHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.BarsTopic, store, metrics)
}

// ProvideExchangeStream creates the exchange WebSocket stream.
func ProvideExchangeStream(cfg *config.Config) repository.MarketStream {
	return stream.New(
		cfg.Exchange.APIKey,
		cfg.Exchange.WebSocketURL,
		cfg.Exchange.Symbols,
		cfg.Exchange.ReconnectDelay,
		cfg.Exchange.PingInterval,
	)
}

// ProvideBackfiller creates the REST history backfiller.
func ProvideBackfiller(store repository.Storage, cfg *config.Config, l *logger.Logger) *stream.Backfiller {
	return stream.NewBackfiller(cfg.Exchange.RestURL, cfg.Exchange.APIKey, store, l)
}

// ProvideBarProcessor creates the bar processor use case.
func ProvideBarProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.BarProcessor {
	return usecase.NewBarProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideBarCollector creates the bar collector use case.
func ProvideBarCollector(
	ms repository.MarketStream,
	processor *usecase.BarProcessor,
	metrics repository.Metrics,
) *usecase.BarCollector {
	// Middleware pipeline between WebSocket and backend
	pipe := mid.NewRealtimePipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewBarCollector(ms, processor, metrics, pipe)
}

// ProvidePanelStore creates the ClickHouse panel store with a candle cache
// in front of it: layered memory+redis when redis is enabled, in-process
// memory otherwise. A failed redis connection degrades to the memory cache.
func ProvidePanelStore(chClient *pkgch.Client, l *logger.Logger, cfg *config.Config) repository.PanelStore {
	store := internalrepo.NewCHPanelStore(chClient)
	store.SetLogger(l)

	if cfg.Redis.Enabled {
		host, port := splitRedisAddr(cfg.Redis.Addr)
		rc, err := pcache.NewRedisCache(
			pcache.WithRedisHost(host),
			pcache.WithRedisPort(port),
			pcache.WithRedisPassword(cfg.Redis.Password),
			pcache.WithRedisDB(cfg.Redis.DB),
			pcache.WithRedisPrefix("pairpull:panel"),
		)
		if err != nil {
			l.Warn("panel redis cache unavailable, using memory cache", logger.Error(err))
		} else {
			store.SetCache(pcache.NewLayeredCache(rc,
				pcache.WithLayeredMemorySize(256),
			), 5*time.Minute)
			return store
		}
	}

	store.SetCache(pcache.NewMemoryCache(
		pcache.WithMemoryMaxSize(256),
		pcache.WithMemoryCleanup(10*time.Minute),
	), 5*time.Minute)
	return store
}

// splitRedisAddr splits "host:port", defaulting the port to 6379.
func splitRedisAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvidePanelUseCase creates the panel assembly use case.
func ProvidePanelUseCase(store repository.PanelStore) *usecase.PanelUseCase {
	return usecase.NewPanelUseCase(store)
}

// ProvideEngineConfig maps YAML engine settings onto the strategy config.
func ProvideEngineConfig(cfg *config.Config) strategy.Config {
	e := cfg.Engine
	return strategy.Config{
		Analyzer: coint.Config{
			MinCorrelation: e.Pairs.MinCorrelation,
			MaxAdfPValue:   e.Pairs.MaxAdfPValue,
			MinHalfLife:    e.Pairs.MinHalfLife,
			MaxHalfLife:    e.Pairs.MaxHalfLife,
			MaxPairs:       e.Pairs.MaxPairs,
		},
		Kalman: kalman.Config{
			Delta: e.Kalman.Delta,
			Ve:    e.Kalman.Ve,
		},
		Regime: regime.Config{
			CorrLookback:      e.Regime.CorrLookback,
			CorrThreshold:     e.Regime.CorrThreshold,
			VolShortWindow:    e.Regime.VolShortWindow,
			VolLongWindow:     e.Regime.VolLongWindow,
			VolRatioThreshold: e.Regime.VolRatioThreshold,
			CheckFrequency:    e.Regime.CheckFrequency,
			CointWindow:       e.Regime.CointWindow,
			KillPValue:        e.Regime.KillPValue,
			RevivePValue:      e.Regime.RevivePValue,
		},
		Signal: signal.Config{
			ZEntry:              e.Signal.ZEntry,
			ZStop:               e.Signal.ZStop,
			ZExitLong:           e.Signal.ZExitLong,
			ZExitShort:          e.Signal.ZExitShort,
			MinHolding:          e.Signal.MinHolding,
			LookbackMultiplier:  e.Signal.LookbackMultiplier,
			MinLookback:         e.Signal.MinLookback,
			MaxLookback:         e.Signal.MaxLookback,
			SizeMin:             e.Signal.SizeMin,
			SizeMax:             e.Signal.SizeMax,
			SizeCapZ:            e.Signal.SizeCapZ,
			FundingBoost:        e.Signal.FundingBoost,
			FundingMomWindow:    e.Signal.FundingMomWindow,
			FundingHighQuantile: e.Signal.FundingHighQuantile,
			FundingLowQuantile:  e.Signal.FundingLowQuantile,
			FundingMinObs:       e.Signal.FundingMinObs,
			WeekendBoost:        e.Signal.WeekendBoost,
		},
		Portfolio: portfolio.Config{
			PairDdKill:         e.Portfolio.PairDdKill,
			ConvictionLookback: e.Portfolio.ConvictionLookback,
			RebalFreq:          e.Portfolio.RebalFreq,
			HighMult:           e.Portfolio.HighMult,
			LowMult:            e.Portfolio.LowMult,
			HighThresh:         e.Portfolio.HighThresh,
			LowThresh:          e.Portfolio.LowThresh,
			TargetVol:          e.Portfolio.TargetVol,
			VolWindow:          e.Portfolio.VolWindow,
			VolFloorQuantile:   e.Portfolio.VolFloorQuantile,
			MaxLeverage:        e.Portfolio.MaxLeverage,
			DrawdownHalt:       e.Portfolio.DrawdownHalt,
			TradingDaysPerYear: float64(e.Portfolio.TradingDaysPerYear),
		},
	}
}

// ProvideSignalRunner creates the engine refresh loop.
func ProvideSignalRunner(
	panel *usecase.PanelUseCase,
	engine strategy.Config,
	sink repository.SignalSink,
	metrics repository.Metrics,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.SignalRunner {
	return usecase.NewSignalRunner(
		panel,
		engine,
		sink,
		metrics,
		l,
		cfg.Exchange.Symbols,
		cfg.Engine.Runner.PanelBars,
		repository.NormalizeTimeframe(cfg.Engine.Runner.Timeframe),
	)
}

// ProvideBacktestUseCase creates the ad-hoc backtest use case.
func ProvideBacktestUseCase(panel *usecase.PanelUseCase, engine strategy.Config) *usecase.BacktestUseCase {
	return usecase.NewBacktestUseCase(panel, engine)
}

// ProvideResponseCache picks redis-backed bytes cache when available,
// in-process TTL cache otherwise.
func ProvideResponseCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideScanQueue wires the redis-backed scan job queue. Returns nil when
// redis is disabled; the app treats a nil queue as "scans only on the timer".
func ProvideScanQueue(cfg *config.Config, runner *usecase.SignalRunner, l *logger.Logger) *queue.RedisQueue {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return queue.NewRedisConsumer(
		l,
		&queue.QueueConfig{Workers: 1, RetryLimit: 2, RetryDelay: 30 * time.Second},
		client,
		[]queue.Job{usecase.NewUniverseScanJob(runner, l)},
		queue.WithKeyPrefix("pairpull:queue"),
	)
}

// ProvideEngineHandler creates the Echo HTTP handler for the engine.
func ProvideEngineHandler(
	l *logger.Logger,
	runner *usecase.SignalRunner,
	backtest *usecase.BacktestUseCase,
	respCache icache.BytesCache,
) xhttp.Handler {
	return api.NewEngineEchoHandler(l, runner, backtest, respCache)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaBarsHandler,
	chClient *pkgch.Client,
	runner *usecase.SignalRunner,
	scanQueue *queue.RedisQueue,
	backfiller *stream.Backfiller,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, collector, consumer, kh, chClient, runner, scanQueue, backfiller)
	app.SetHTTPHandler(handler)
	// attach bar processor to app for closing resources via collector
	if collector != nil {
		app.BarProc = collector.Processor()
	}
	return app
}
