package service

import (
	"context"
	"errors"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/pkg/metrics"
)

const (
	explorerActionTxList     = "txlist"
	logScanRetryShrinkFactor = 10
	defaultLogScanWindow     = 10_000_000
)

// transactionHistoryServiceImpl implements port.TransactionHistoryFetcher.
type transactionHistoryServiceImpl struct {
	registry port.ChainRegistry
	explorer port.ExplorerClient
	rpc      *rpcFailover
	logger   port.Logger
}

// NewTransactionHistoryService creates the explorer-first, log-scan-fallback history fetcher.
func NewTransactionHistoryService(
	registry port.ChainRegistry,
	explorer port.ExplorerClient,
	clientProvider port.BlockchainClientProvider,
	l port.Logger,
	endpointCooldown time.Duration,
) port.TransactionHistoryFetcher {
	return &transactionHistoryServiceImpl{
		registry: registry,
		explorer: explorer,
		rpc: &rpcFailover{
			clientProvider: clientProvider,
			health:         newEndpointHealth(endpointCooldown),
			logger:         l,
		},
		logger: l,
	}
}

func unavailableHistory() entity.TransactionHistory {
	return entity.TransactionHistory{Transactions: []entity.RawTransaction{}, Source: entity.HistorySourceUnavailable}
}

// GetTransactions implements port.TransactionHistoryFetcher.
func (s *transactionHistoryServiceImpl) GetTransactions(ctx context.Context, address, chainID string, startBlock uint64) entity.TransactionHistory {
	chain, err := s.registry.GetChainConfig(chainID)
	if err != nil {
		s.logger.Warn("History requested for unknown chain", "chain", chainID, "error", err)
		return unavailableHistory()
	}

	history := s.fetch(ctx, chain, address, startBlock)
	metrics.HistoryFetches.WithLabelValues(chain.Identifier, string(history.Source)).Inc()
	s.logger.Info("Transaction history fetched",
		"chain", chain.Identifier, "address", address, "source", history.Source, "count", len(history.Transactions))
	return history
}

func (s *transactionHistoryServiceImpl) fetch(ctx context.Context, chain entity.ChainConfig, address string, startBlock uint64) entity.TransactionHistory {
	if s.explorer != nil {
		txs, err := s.explorer.AccountTransactions(ctx, chain, explorerActionTxList, address, startBlock)
		if err == nil {
			if txs == nil {
				txs = []entity.RawTransaction{}
			}
			return entity.TransactionHistory{Transactions: txs, Source: entity.HistorySourceExplorer}
		}
		s.logger.Warn("Explorer history unavailable, falling back to log scan", "chain", chain.Identifier, "address", address, "error", err)
	}

	window := chain.LogScanWindow
	if window == 0 {
		window = defaultLogScanWindow
	}

	txs, err := s.scanLogs(ctx, chain, address, startBlock, window)
	if err != nil && errors.Is(err, entity.ErrRateLimited) {
		window /= logScanRetryShrinkFactor
		s.logger.Warn("Log scan rate-limited, retrying with a smaller window", "chain", chain.Identifier, "window", window)
		txs, err = s.scanLogs(ctx, chain, address, startBlock, window)
	}
	if err != nil {
		s.logger.Error("Log scan failed, history unavailable", "chain", chain.Identifier, "address", address, "error", err)
		return unavailableHistory()
	}
	if txs == nil {
		txs = []entity.RawTransaction{}
	}
	return entity.TransactionHistory{Transactions: txs, Source: entity.HistorySourceLogScan}
}

// scanLogs covers [max(latest-window, startBlock), latest].
func (s *transactionHistoryServiceImpl) scanLogs(ctx context.Context, chain entity.ChainConfig, address string, startBlock, window uint64) ([]entity.RawTransaction, error) {
	var latest uint64
	err := s.rpc.call(ctx, chain, "eth_blockNumber", func(c port.BlockchainClient) error {
		var callErr error
		latest, callErr = c.LatestBlock(ctx)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	from := uint64(0)
	if latest > window {
		from = latest - window
	}
	if startBlock > from {
		from = startBlock
	}

	var txs []entity.RawTransaction
	err = s.rpc.call(ctx, chain, "eth_getLogs", func(c port.BlockchainClient) error {
		var callErr error
		txs, callErr = c.ScanLendingTransactions(ctx, chain.PoolAddress, address, from, latest)
		return callErr
	})
	return txs, err
}
