package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/pkg/logger"
)

const (
	testWallet = "0x1111111111111111111111111111111111111111"
	testPool   = "0x6807dc923806fE8Fd134338EABCA509979a7e0cB"
	usdtAddr   = "0x55d398326f99059fF775485246999027B3197955"
	usdtAToken = "0xa9251ca9DE909CB71783723713B21E4233fbf1B1"
	usdtDebt   = "0xF8bb2Be50647447Fb355e3a77b81be4db64107cd"
	wbnbAddr   = "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
	wbnbAToken = "0x9B00a09492a626678E5A3009982191586C444Df9"
	wbnbDebt   = "0x0E76414d433ddfe8004d2A7505d218874875a996"
)

var errEndpointDown = errors.New("endpoint down")

func testChain(rpcURLs ...string) entity.ChainConfig {
	if len(rpcURLs) == 0 {
		rpcURLs = []string{"rpc-a"}
	}
	return entity.ChainConfig{
		ChainID:                 56,
		Identifier:              "bsc",
		Name:                    "BNB Smart Chain",
		PoolAddress:             testPool,
		PoolDataProviderAddress: "0x41393e5e337606dc3821075Af65AeE84D7688CBD",
		RPCURLs:                 rpcURLs,
		LogScanWindow:           1000,
		Tokens: []entity.TokenDescriptor{
			{Symbol: "USDT", UnderlyingAddress: usdtAddr, ATokenAddress: usdtAToken, DebtTokenAddress: usdtDebt, Decimals: 18},
			{Symbol: "WBNB", UnderlyingAddress: wbnbAddr, ATokenAddress: wbnbAToken, DebtTokenAddress: wbnbDebt, Decimals: 18},
		},
	}
}

type fakeRegistry struct {
	chains map[string]entity.ChainConfig
}

func newFakeRegistry(chains ...entity.ChainConfig) *fakeRegistry {
	r := &fakeRegistry{chains: make(map[string]entity.ChainConfig)}
	for _, c := range chains {
		r.chains[c.Identifier] = c
	}
	return r
}

func (r *fakeRegistry) GetChainConfig(chainID string) (entity.ChainConfig, error) {
	c, ok := r.chains[strings.ToLower(chainID)]
	if !ok {
		return entity.ChainConfig{}, &entity.UnsupportedChainError{ChainID: chainID}
	}
	return c, nil
}

func (r *fakeRegistry) Chains() []entity.ChainConfig {
	out := make([]entity.ChainConfig, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	return out
}

// fakeClient answers every call from its fields. Nil funcs fail with errEndpointDown.
type fakeClient struct {
	balances    map[string]*big.Int
	balanceErr  error
	accountData *entity.UserAccountData
	latest      uint64
	scan        func(from, to uint64) ([]entity.RawTransaction, error)
}

func (c *fakeClient) BalanceOf(_ context.Context, token, _ string) (*big.Int, error) {
	if c.balanceErr != nil {
		return nil, c.balanceErr
	}
	if b, ok := c.balances[strings.ToLower(token)]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (c *fakeClient) UserAccountData(context.Context, string, string) (entity.UserAccountData, error) {
	if c.accountData == nil {
		return entity.UserAccountData{}, errEndpointDown
	}
	return *c.accountData, nil
}

func (c *fakeClient) LatestBlock(context.Context) (uint64, error) {
	if c.latest == 0 {
		return 0, errEndpointDown
	}
	return c.latest, nil
}

func (c *fakeClient) ScanLendingTransactions(_ context.Context, _, _ string, from, to uint64) ([]entity.RawTransaction, error) {
	if c.scan == nil {
		return nil, errEndpointDown
	}
	return c.scan(from, to)
}

// fakeClientProvider records the order in which endpoints were requested.
type fakeClientProvider struct {
	mu      sync.Mutex
	clients map[string]port.BlockchainClient
	calls   []string
}

func (p *fakeClientProvider) GetClient(_ context.Context, url string) (port.BlockchainClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, url)
	c, ok := p.clients[url]
	if !ok {
		return nil, errEndpointDown
	}
	return c, nil
}

func (p *fakeClientProvider) reset() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}

func wei(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// fakeFeed is a scripted port.PriceFeedClient.
type fakeFeed struct {
	mu            sync.Mutex
	current       map[string]float64
	historical    map[string]float64
	historicalErr error
	currentErr    error
	simpleCalls   [][]string
	histCalls     int
}

func (f *fakeFeed) SimplePrices(_ context.Context, ids []string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simpleCalls = append(f.simpleCalls, append([]string(nil), ids...))
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	out := make(map[string]float64)
	for _, id := range ids {
		if p, ok := f.current[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeFeed) HistoricalPrice(_ context.Context, id string, _ time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histCalls++
	if f.historicalErr != nil {
		return 0, f.historicalErr
	}
	p, ok := f.historical[id]
	if !ok {
		return 0, errors.New("no data")
	}
	return p, nil
}

// fixedPrices is a port.TokenPriceService with constant answers.
type fixedPrices struct {
	current    map[string]float64
	historical map[string]float64
}

func (p fixedPrices) GetCurrentPrice(_ context.Context, id string) float64 { return p.current[id] }

func (p fixedPrices) GetCurrentPrices(_ context.Context, ids []string) map[string]float64 {
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		out[id] = p.current[id]
	}
	return out
}

func (p fixedPrices) GetHistoricalPrice(_ context.Context, id string, _ int64) float64 {
	return p.historical[id]
}

type fakeExplorer struct {
	txs []entity.RawTransaction
	err error
}

func (e *fakeExplorer) AccountTransactions(context.Context, entity.ChainConfig, string, string, uint64) ([]entity.RawTransaction, error) {
	return e.txs, e.err
}

type fakeHealth struct {
	health entity.AccountHealth
}

func (h fakeHealth) GetAccountHealth(context.Context, string, string) entity.AccountHealth {
	return h.health
}

var nopLogger = logger.NewNop()
