package networkdefinition

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"
)

const etherscanV2APIURL = "https://api.etherscan.io/v2/api"

// BSC returns the Aave V3 deployment on BNB Smart Chain.
func BSC() entity.ChainConfig {
	return entity.ChainConfig{
		ChainID:                 56,
		Identifier:              "bsc",
		Name:                    "BNB Smart Chain",
		PoolAddress:             "0x6807dc923806fE8Fd134338EABCA509979a7e0cB",
		PoolDataProviderAddress: "0x41393e5e337606dc3821075Af65AeE84D7688CBD",
		RPCURLs: []string{
			"https://bsc-dataseed1.binance.org",
			"https://bsc-dataseed2.binance.org",
			"https://bsc-dataseed3.binance.org",
			"https://bsc-dataseed4.binance.org",
			"https://bsc.publicnode.com",
			"https://binance.llamarpc.com",
		},
		ExplorerAPIURL: etherscanV2APIURL,
		LogScanWindow:  10_000_000,
		Tokens: []entity.TokenDescriptor{
			{Symbol: "USDT", UnderlyingAddress: "0x55d398326f99059fF775485246999027B3197955", ATokenAddress: "0xa9251ca9DE909CB71783723713B21E4233fbf1B1", DebtTokenAddress: "0xF8bb2Be50647447Fb355e3a77b81be4db64107cd", Decimals: 18},
			{Symbol: "USDC", UnderlyingAddress: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", ATokenAddress: "0x00901a076785e0906d1028c7d6372d247bec7d61", DebtTokenAddress: "0xcDBBEd5606d9c5C98eEedd67933991dC17F0c68d", Decimals: 18},
			{Symbol: "WBNB", UnderlyingAddress: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", ATokenAddress: "0x9B00a09492a626678E5A3009982191586C444Df9", DebtTokenAddress: "0x0E76414d433ddfe8004d2A7505d218874875a996", Decimals: 18},
			{Symbol: "BTCB", UnderlyingAddress: "0x7130d2A12B9BCbFAe4f2634d864A1Ee1Ce3Ead9c", ATokenAddress: "0x56a7ddc4e848EbF43845854205ad71D5D5F72d3D", DebtTokenAddress: "0x7b1E82F4f542fbB25D64c5523Fe3e44aBe4F2702", Decimals: 18},
			{Symbol: "ETH", UnderlyingAddress: "0x2170Ed0880ac9A755fd29B2688956BD959F933F8", ATokenAddress: "0x2E94171493fAbE316b6205f1585779C887771E2F", DebtTokenAddress: "0x8FDea7891b4D6dbdc746309245B316aF691A636C", Decimals: 18},
			{Symbol: "FDUSD", UnderlyingAddress: "0xc5f0f7b66764F6ec8C8Dff7BA683102295E16409", ATokenAddress: "0x75bd1A659bdC62e4C313950d44A2416faB43E785", DebtTokenAddress: "0xE628B8a123e6037f1542e662B9F55141a16945C8", Decimals: 18},
			{Symbol: "CAKE", UnderlyingAddress: "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82", ATokenAddress: "0x4199CC1F5ed0d796563d7CcB2e036253E2C18281", DebtTokenAddress: "0xE20dBC7119c635B1B51462f844861258770e0699", Decimals: 18},
			{Symbol: "wstETH", UnderlyingAddress: "0x26c5e01524d2E6280A48F2c50fF6De7e52E9611C", ATokenAddress: "0xBDFd4E51D3c14a232135f04988a42576eFb31519", DebtTokenAddress: "0x2c391998308c56D7572A8F501D58CB56fB9Fe1C5", Decimals: 18},
		},
	}
}

// Base returns the Aave V3 deployment on Base.
func Base() entity.ChainConfig {
	return entity.ChainConfig{
		ChainID:                 8453,
		Identifier:              "base",
		Name:                    "Base Mainnet",
		PoolAddress:             "0xA238Dd80C259a72e81d7e4664a9801593F98d1c5",
		PoolDataProviderAddress: "0x2d8A3C5677189723C4cB8873CfC9C8976FDF38Ac",
		RPCURLs: []string{
			"https://mainnet.base.org",
			"https://base.publicnode.com",
			"https://base.llamarpc.com",
			"https://1rpc.io/base",
		},
		ExplorerAPIURL: etherscanV2APIURL,
		LogScanWindow:  5_000_000,
		Tokens: []entity.TokenDescriptor{
			{Symbol: "WETH", UnderlyingAddress: "0x4200000000000000000000000000000000000006", ATokenAddress: "0xD4a0e0b9149BCee3C920d2E00b5dE09138fd8bb7", DebtTokenAddress: "0x24e6e0795b3c7c71D965fCc4f371803d1c1DcA1E", Decimals: 18},
			{Symbol: "cbETH", UnderlyingAddress: "0x2Ae3F1Ec7F1F5012CFEab0185bfc7aa3cf0DEc22", ATokenAddress: "0xcf3D55c10DB69f28fD1A75Bd73f3D8A2d9c595ad", DebtTokenAddress: "0x1DabC36f19909425f654777249815c073E8Fd79F", Decimals: 18},
			{Symbol: "USDC", UnderlyingAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", ATokenAddress: "0x4e65fE4DbA92790696d040ac24Aa414708F5c0AB", DebtTokenAddress: "0x59dca05b6c26dbd64b5381374aAaC5CD05644C28", Decimals: 6},
			{Symbol: "wstETH", UnderlyingAddress: "0xc1CBa3fCea344f92D9239c08C0568f6F2F0ee452", ATokenAddress: "0x99CBC45ea5bb7eF3a5BC08FB1B7E56bB2442Ef0D", DebtTokenAddress: "0x41A7C3f5904ad176dACbb1D99101F59ef0811DC1", Decimals: 18},
		},
	}
}

// BuiltinChains returns fresh copies of every built-in definition.
func BuiltinChains() []entity.ChainConfig {
	return []entity.ChainConfig{BSC(), Base()}
}

// ApplyOverrides replaces RPC URLs, explorer URL and log window from config.
func ApplyOverrides(defs []entity.ChainConfig, overrides []configloader.ChainOverride) []entity.ChainConfig {
	out := make([]entity.ChainConfig, len(defs))
	for i, def := range defs {
		def = def.Clone()
		for _, o := range overrides {
			if !strings.EqualFold(o.Identifier, def.Identifier) {
				continue
			}
			if len(o.RPCURLs) > 0 {
				def.RPCURLs = append([]string(nil), o.RPCURLs...)
			}
			if o.ExplorerAPIURL != "" {
				def.ExplorerAPIURL = o.ExplorerAPIURL
			}
			if o.LogScanWindow > 0 {
				def.LogScanWindow = o.LogScanWindow
			}
		}
		out[i] = def
	}
	return out
}

// ChainRegistry implements port.ChainRegistry over an immutable set of definitions.
type ChainRegistry struct {
	logger       port.Logger
	byIdentifier map[string]entity.ChainConfig
	byChainID    map[uint64]string
	ordered      []string
}

// NewChainRegistry validates defs and builds the registry.
// Duplicate identifiers, duplicate symbols on a chain or a chain without RPC endpoints are configuration errors.
func NewChainRegistry(log port.Logger, defs []entity.ChainConfig) (*ChainRegistry, error) {
	r := &ChainRegistry{
		logger:       log,
		byIdentifier: make(map[string]entity.ChainConfig, len(defs)),
		byChainID:    make(map[uint64]string, len(defs)),
	}

	for _, def := range defs {
		id := strings.ToLower(def.Identifier)
		if id == "" {
			return nil, &entity.ConfigurationError{Field: "chains", Reason: fmt.Sprintf("chain %d has no identifier", def.ChainID)}
		}
		if _, dup := r.byIdentifier[id]; dup {
			return nil, &entity.ConfigurationError{Field: "chains", Reason: fmt.Sprintf("duplicate chain identifier %q", id)}
		}
		if len(def.RPCURLs) == 0 {
			return nil, &entity.ConfigurationError{Field: "chains." + id + ".rpcUrls", Reason: "at least one RPC endpoint is required"}
		}

		seen := make(map[string]struct{}, len(def.Tokens))
		for _, tok := range def.Tokens {
			key := strings.ToUpper(tok.Symbol)
			if _, dup := seen[key]; dup {
				return nil, &entity.ConfigurationError{Field: "chains." + id + ".tokens", Reason: fmt.Sprintf("duplicate token symbol %q", tok.Symbol)}
			}
			seen[key] = struct{}{}
		}

		def = def.Clone()
		def.Identifier = id
		r.byIdentifier[id] = def
		r.byChainID[def.ChainID] = id
		r.ordered = append(r.ordered, id)
		log.Debug("Chain registered", "chain", id, "chain_id", def.ChainID, "tokens", len(def.Tokens), "rpc_endpoints", len(def.RPCURLs))
	}
	sort.Strings(r.ordered)

	log.Info("ChainRegistry initialized", "chains", len(r.ordered))
	return r, nil
}

// GetChainConfig returns a copy of the chain's configuration.
func (r *ChainRegistry) GetChainConfig(chainID string) (entity.ChainConfig, error) {
	key := strings.ToLower(strings.TrimSpace(chainID))
	if def, ok := r.byIdentifier[key]; ok {
		return def.Clone(), nil
	}
	if n, err := strconv.ParseUint(key, 10, 64); err == nil {
		if id, ok := r.byChainID[n]; ok {
			return r.byIdentifier[id].Clone(), nil
		}
	}
	return entity.ChainConfig{}, &entity.UnsupportedChainError{ChainID: chainID}
}

// Chains returns copies of every configured chain sorted by identifier.
func (r *ChainRegistry) Chains() []entity.ChainConfig {
	out := make([]entity.ChainConfig, 0, len(r.ordered))
	for _, id := range r.ordered {
		out = append(out, r.byIdentifier[id].Clone())
	}
	return out
}
