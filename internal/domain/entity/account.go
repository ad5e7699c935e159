package entity

import "math/big"

// UserAccountData mirrors the Aave V3 pool's getUserAccountData return tuple.
// Base amounts use the oracle's 8-decimal USD base; HealthFactor uses 18 decimals.
type UserAccountData struct {
	TotalCollateralBase         *big.Int
	TotalDebtBase               *big.Int
	AvailableBorrowsBase        *big.Int
	CurrentLiquidationThreshold *big.Int
	LTV                         *big.Int
	HealthFactor                *big.Int
}
