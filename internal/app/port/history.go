package port

import (
	"context"

	"aave_pnl/internal/domain/entity"
)

// ExplorerClient talks to an Etherscan-style account API.
type ExplorerClient interface {
	// AccountTransactions runs module=account&action=<action> and returns the result list.
	// A non-"1" status is returned as an error.
	AccountTransactions(ctx context.Context, chain entity.ChainConfig, action, address string, startBlock uint64) ([]entity.RawTransaction, error)
}

// TransactionHistoryFetcher retrieves a wallet's transactions. It never fails.
type TransactionHistoryFetcher interface {
	GetTransactions(ctx context.Context, address, chainID string, startBlock uint64) entity.TransactionHistory
}

// EventDecoder turns raw pool calls into lending events.
type EventDecoder interface {
	FilterRelevant(txs []entity.RawTransaction, chain entity.ChainConfig) []entity.RawTransaction
	Decode(tx entity.RawTransaction, chain entity.ChainConfig) *entity.LendingEvent
	DecodeAll(txs []entity.RawTransaction, chain entity.ChainConfig) []entity.LendingEvent
}

// PositionAggregator folds events into net quantities.
type PositionAggregator interface {
	Aggregate(events []entity.LendingEvent) entity.AggregatedPositions
}
