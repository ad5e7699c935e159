package entity

import "strings"

// ZeroAddress represents the Ethereum zero address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// TokenDescriptor describes one Aave reserve on a chain. Symbol is unique per chain.
type TokenDescriptor struct {
	Symbol            string `json:"symbol" yaml:"symbol"`
	UnderlyingAddress string `json:"underlyingAddress" yaml:"underlyingAddress"`
	ATokenAddress     string `json:"aTokenAddress" yaml:"aTokenAddress"`
	DebtTokenAddress  string `json:"debtTokenAddress" yaml:"debtTokenAddress"`
	Decimals          uint8  `json:"decimals" yaml:"decimals"`
}

// ChainConfig holds the static Aave deployment for a single network.
// It is loaded once at start and never mutated afterwards.
type ChainConfig struct {
	ChainID                 uint64            `json:"chainId" yaml:"chainId"`
	Identifier              string            `json:"identifier" yaml:"identifier"` // e.g. "bsc", "base"
	Name                    string            `json:"name" yaml:"name"`
	PoolAddress             string            `json:"poolAddress" yaml:"poolAddress"`
	PoolDataProviderAddress string            `json:"poolDataProviderAddress" yaml:"poolDataProviderAddress"`
	Tokens                  []TokenDescriptor `json:"tokens" yaml:"tokens"`
	RPCURLs                 []string          `json:"rpcUrls" yaml:"rpcUrls"`
	ExplorerAPIURL          string            `json:"explorerApiUrl" yaml:"explorerApiUrl"`
	LogScanWindow           uint64            `json:"logScanWindow" yaml:"logScanWindow"`
}

// TokenByUnderlying finds a descriptor by its underlying asset address (case-insensitive).
func (c ChainConfig) TokenByUnderlying(address string) (TokenDescriptor, bool) {
	for _, t := range c.Tokens {
		if strings.EqualFold(t.UnderlyingAddress, address) {
			return t, true
		}
	}
	return TokenDescriptor{}, false
}

// TokenBySymbol finds a descriptor by symbol (case-insensitive).
func (c ChainConfig) TokenBySymbol(symbol string) (TokenDescriptor, bool) {
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return TokenDescriptor{}, false
}

// IsLendingContract reports whether address is the pool or the pool data provider.
func (c ChainConfig) IsLendingContract(address string) bool {
	if address == "" {
		return false
	}
	return strings.EqualFold(address, c.PoolAddress) || strings.EqualFold(address, c.PoolDataProviderAddress)
}

// Clone returns a deep copy so callers can't mutate registry state through shared slices.
func (c ChainConfig) Clone() ChainConfig {
	out := c
	out.Tokens = append([]TokenDescriptor(nil), c.Tokens...)
	out.RPCURLs = append([]string(nil), c.RPCURLs...)
	return out
}
