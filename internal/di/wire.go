//go:build wireinject
// +build wireinject

package di

import (
	"PairPull/pkg/config"
	"PairPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideBarStorage,
		ProvideBarPublisher,
		ProvideSignalSink,
		ProvidePanelStore,
		ProvideExchangeStream,

		// Engine
		ProvideEngineConfig,
		ProvidePanelUseCase,
		ProvideSignalRunner,
		ProvideBacktestUseCase,

		// Ingest use cases
		ProvideBarProcessor,
		ProvideBarCollector,
		ProvideKafkaBarsHandler,
		ProvideBackfiller,

		// HTTP and jobs
		ProvideResponseCache,
		ProvideEngineHandler,
		ProvideScanQueue,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
