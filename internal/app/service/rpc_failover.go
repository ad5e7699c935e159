package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/pkg/metrics"

	"github.com/patrickmn/go-cache"
)

// endpointHealth remembers endpoints that failed recently so later calls try them last.
// A nil *endpointHealth keeps the configured order.
type endpointHealth struct {
	degraded *cache.Cache
}

func newEndpointHealth(cooldown time.Duration) *endpointHealth {
	if cooldown <= 0 {
		return nil
	}
	return &endpointHealth{degraded: cache.New(cooldown, 2*cooldown)}
}

func (h *endpointHealth) markFailed(url string) {
	if h == nil {
		return
	}
	h.degraded.SetDefault(url, struct{}{})
}

func (h *endpointHealth) markHealthy(url string) {
	if h == nil {
		return
	}
	h.degraded.Delete(url)
}

func (h *endpointHealth) isDegraded(url string) bool {
	if h == nil {
		return false
	}
	_, found := h.degraded.Get(url)
	return found
}

// order returns urls with degraded endpoints moved to the end, otherwise stable.
func (h *endpointHealth) order(urls []string) []string {
	if h == nil {
		return urls
	}
	healthy := make([]string, 0, len(urls))
	var degraded []string
	for _, u := range urls {
		if h.isDegraded(u) {
			degraded = append(degraded, u)
			continue
		}
		healthy = append(healthy, u)
	}
	return append(healthy, degraded...)
}

// rpcFailover runs one call against a chain's endpoints until one succeeds.
type rpcFailover struct {
	clientProvider port.BlockchainClientProvider
	health         *endpointHealth
	logger         port.Logger
}

// call tries fn on each endpoint in turn. The returned error joins every endpoint error,
// so errors.Is(err, entity.ErrRateLimited) holds if any endpoint was throttled.
func (f *rpcFailover) call(ctx context.Context, chain entity.ChainConfig, method string, fn func(port.BlockchainClient) error) error {
	urls := f.health.order(chain.RPCURLs)
	if len(urls) == 0 {
		return fmt.Errorf("no RPC endpoints configured for %s", chain.Identifier)
	}

	errs := make([]error, 0, len(urls))
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		client, err := f.clientProvider.GetClient(ctx, url)
		if err == nil {
			err = fn(client)
		}
		if err != nil {
			f.logger.Debug("RPC endpoint failed, trying next", "chain", chain.Identifier, "method", method, "rpc", url, "error", err)
			metrics.RPCCalls.WithLabelValues(chain.Identifier, method, "error").Inc()
			f.health.markFailed(url)
			errs = append(errs, err)
			continue
		}

		metrics.RPCCalls.WithLabelValues(chain.Identifier, method, "success").Inc()
		f.health.markHealthy(url)
		return nil
	}
	return fmt.Errorf("%s on %s failed on all %d endpoints: %w", method, chain.Identifier, len(urls), errors.Join(errs...))
}
