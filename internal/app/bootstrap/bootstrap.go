// Package bootstrap assembles the report pipeline from configuration. Both binaries share it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/app/service"
	"aave_pnl/internal/infrastructure/configloader"
	"aave_pnl/internal/infrastructure/httpclient"
	"aave_pnl/internal/infrastructure/imagestore"
	clientprovider "aave_pnl/internal/infrastructure/network/client"
	networkdefinition "aave_pnl/internal/infrastructure/network/definition"
	"aave_pnl/internal/infrastructure/renderer"
	"aave_pnl/internal/infrastructure/storage"
	"aave_pnl/internal/infrastructure/tokenloader"
	"aave_pnl/internal/pkg/logger"

	"go.uber.org/zap"
)

// App holds the wired services.
type App struct {
	Registry  *networkdefinition.ChainRegistry
	Reports   *service.ReportServiceImpl
	Publisher *service.PublishService
	Store     port.ReportStore

	clients *clientprovider.EVMClientProvider
}

// Close releases the report store and RPC connections.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
	if a.clients != nil {
		a.clients.Close()
	}
}

// Options toggles optional collaborators.
type Options struct {
	// DisableStore skips opening the report store even when one is configured.
	DisableStore bool
}

// Build wires every collaborator named in cfg.
func Build(ctx context.Context, cfg *configloader.Config, zapLogger *zap.Logger, opts Options) (*App, error) {
	appLogger := logger.NewSlogAdapter()

	tokenLoader := tokenloader.NewTokenLoader(cfg.Data.TokensDir, appLogger.Info, appLogger.Warn)
	defs := networkdefinition.ApplyOverrides(networkdefinition.BuiltinChains(), cfg.Chains)
	defs, err := tokenLoader.MergeTokens(defs)
	if err != nil {
		return nil, fmt.Errorf("load token files: %w", err)
	}
	registry, err := networkdefinition.NewChainRegistry(logger.NewNamed("ChainRegistry"), defs)
	if err != nil {
		return nil, err
	}

	clientProvider := clientprovider.NewEVMClientProvider(cfg.Performance, logger.NewNamed("EVMClientProvider"))
	cooldown := time.Duration(cfg.Performance.EndpointCooldownSeconds) * time.Second

	balances := service.NewBalanceService(registry, clientProvider, logger.NewNamed("BalanceService"), cooldown)
	explorer := httpclient.NewExplorerClient(cfg.Explorer, zapLogger)
	history := service.NewTransactionHistoryService(registry, explorer, clientProvider, logger.NewNamed("TransactionHistory"), cooldown)

	feed := httpclient.NewCoinGeckoClient(cfg.CoinGecko, zapLogger)
	prices := service.NewTokenPriceService(feed, cfg.CoinGecko, registry.Chains(), logger.NewNamed("TokenPriceService"))

	reports := service.NewReportService(
		registry,
		balances,
		balances,
		history,
		service.NewEventDecoder(logger.NewNamed("EventDecoder")),
		service.NewPositionAggregator(),
		service.NewPnLCalculator(prices, logger.NewNamed("PnLCalculator")),
		prices,
		logger.NewNamed("ReportService"),
		service.ReportOptions{
			BalanceConcurrency: cfg.Performance.BalanceConcurrency,
			BalanceQueryDelay:  time.Duration(cfg.Performance.BalanceQueryDelayMillis) * time.Millisecond,
		},
	)

	images, err := imagestore.NewFileStore(cfg.Images.Dir, cfg.Images.PublicPath, zapLogger)
	if err != nil {
		return nil, err
	}

	var store port.ReportStore
	if !opts.DisableStore {
		store, err = storage.New(ctx, cfg.Storage, zapLogger)
		if err != nil {
			return nil, fmt.Errorf("open report store: %w", err)
		}
	}

	var notifier port.Notifier
	if cfg.Discord.Enabled {
		notifier = httpclient.NewDiscordClient(cfg.Discord, zapLogger)
	}

	publisher := service.NewPublishService(reports, renderer.NewCardRenderer(), images, store, notifier, logger.NewNamed("PublishService"))

	return &App{
		Registry:  registry,
		Reports:   reports,
		Publisher: publisher,
		Store:     store,
		clients:   clientProvider,
	}, nil
}
