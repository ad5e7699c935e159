package port

import (
	"context"
	"math/big"

	"aave_pnl/internal/domain/entity"
)

// ChainRegistry provides the static per-chain Aave configuration.
type ChainRegistry interface {
	// GetChainConfig accepts an identifier ("bsc") or a numeric chain id ("56").
	// It returns *entity.UnsupportedChainError for anything else.
	GetChainConfig(chainID string) (entity.ChainConfig, error)

	// Chains returns every configured chain in a stable order.
	Chains() []entity.ChainConfig
}

// BlockchainClient is a read-only connection to one RPC endpoint.
type BlockchainClient interface {
	// BalanceOf calls ERC-20 balanceOf(owner) on token.
	BalanceOf(ctx context.Context, tokenAddress, ownerAddress string) (*big.Int, error)
	// UserAccountData calls the pool's getUserAccountData(owner).
	UserAccountData(ctx context.Context, poolAddress, ownerAddress string) (entity.UserAccountData, error)
	// LatestBlock returns the current head block number.
	LatestBlock(ctx context.Context) (uint64, error)
	// ScanLendingTransactions finds pool Supply/Withdraw/Borrow/Repay logs for wallet in
	// [fromBlock, toBlock] and hydrates each distinct transaction.
	ScanLendingTransactions(ctx context.Context, poolAddress, walletAddress string, fromBlock, toBlock uint64) ([]entity.RawTransaction, error)
}

// BlockchainClientProvider hands out a client for a single RPC endpoint URL.
type BlockchainClientProvider interface {
	GetClient(ctx context.Context, rpcURL string) (BlockchainClient, error)
}

// BalanceResolver reads ERC-20 balances with endpoint failover.
type BalanceResolver interface {
	// GetBalance never fails: when every endpoint errors it returns 0.
	GetBalance(ctx context.Context, ownerAddress, tokenAddress string, decimals uint8, chainID string) float64
}

// AccountHealthReader reads the pool's getUserAccountData with endpoint failover.
type AccountHealthReader interface {
	// GetAccountHealth returns entity.UnknownAccountHealth() when every endpoint errors.
	GetAccountHealth(ctx context.Context, ownerAddress, chainID string) entity.AccountHealth
}
