package service

import (
	"context"
	"math"
	"math/big"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/pkg/utils"

	ethmath "github.com/ethereum/go-ethereum/common/math"
)

const (
	healthFactorDecimals = 18
	oracleBaseDecimals   = 8
)

// BalanceService implements port.BalanceResolver and port.AccountHealthReader.
type BalanceService struct {
	registry port.ChainRegistry
	rpc      *rpcFailover
	logger   port.Logger
}

// NewBalanceService creates a BalanceService. endpointCooldown > 0 enables the degraded-endpoint memo.
func NewBalanceService(
	registry port.ChainRegistry,
	clientProvider port.BlockchainClientProvider,
	l port.Logger,
	endpointCooldown time.Duration,
) *BalanceService {
	return &BalanceService{
		registry: registry,
		rpc: &rpcFailover{
			clientProvider: clientProvider,
			health:         newEndpointHealth(endpointCooldown),
			logger:         l,
		},
		logger: l,
	}
}

// GetBalance implements port.BalanceResolver.
func (s *BalanceService) GetBalance(ctx context.Context, ownerAddress, tokenAddress string, decimals uint8, chainID string) float64 {
	chain, err := s.registry.GetChainConfig(chainID)
	if err != nil {
		s.logger.Warn("Balance requested for unknown chain", "chain", chainID, "error", err)
		return 0
	}

	var raw *big.Int
	err = s.rpc.call(ctx, chain, "balanceOf", func(c port.BlockchainClient) error {
		var callErr error
		raw, callErr = c.BalanceOf(ctx, tokenAddress, ownerAddress)
		return callErr
	})
	if err != nil {
		s.logger.Warn("All RPC endpoints failed for balanceOf, reporting zero", "chain", chain.Identifier, "token", tokenAddress, "owner", ownerAddress, "error", err)
		return 0
	}
	s.logger.Debug("Balance read", "chain", chain.Identifier, "token", tokenAddress, "amount", utils.FormatBigInt(raw, decimals))
	return utils.ToFloat(raw, decimals)
}

// GetAccountHealth implements port.AccountHealthReader.
func (s *BalanceService) GetAccountHealth(ctx context.Context, ownerAddress, chainID string) entity.AccountHealth {
	chain, err := s.registry.GetChainConfig(chainID)
	if err != nil {
		s.logger.Warn("Account health requested for unknown chain", "chain", chainID, "error", err)
		return entity.UnknownAccountHealth()
	}

	var data entity.UserAccountData
	err = s.rpc.call(ctx, chain, "getUserAccountData", func(c port.BlockchainClient) error {
		var callErr error
		data, callErr = c.UserAccountData(ctx, chain.PoolAddress, ownerAddress)
		return callErr
	})
	if err != nil {
		s.logger.Warn("All RPC endpoints failed for getUserAccountData", "chain", chain.Identifier, "owner", ownerAddress, "error", err)
		return entity.UnknownAccountHealth()
	}
	return accountHealthFromData(data)
}

func accountHealthFromData(data entity.UserAccountData) entity.AccountHealth {
	hf := math.Inf(1)
	if data.HealthFactor != nil && data.HealthFactor.Cmp(ethmath.MaxBig256) != 0 {
		hf = utils.ScaleFixedPoint(data.HealthFactor, healthFactorDecimals)
	}
	return entity.AccountHealth{
		HealthFactor:       hf,
		TotalCollateralUSD: utils.ToFloat(data.TotalCollateralBase, oracleBaseDecimals),
		TotalDebtUSD:       utils.ToFloat(data.TotalDebtBase, oracleBaseDecimals),
	}
}
