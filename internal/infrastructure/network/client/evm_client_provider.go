package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/infrastructure/configloader"

	"golang.org/x/sync/singleflight"
)

const defaultDialTimeout = 10 * time.Second

// EVMClientProvider implements port.BlockchainClientProvider. Clients are dialed once per
// endpoint URL and shared by every chain and service that names that URL.
type EVMClientProvider struct {
	mu          sync.RWMutex
	clients     map[string]*EVMClient
	dials       singleflight.Group
	logger      port.Logger
	dialTimeout time.Duration
	callTimeout time.Duration
}

// NewEVMClientProvider builds a provider from the performance settings.
func NewEVMClientProvider(perf configloader.PerformanceConfig, l port.Logger) *EVMClientProvider {
	dialTimeout := time.Duration(perf.ConnectionTimeoutSeconds) * time.Second
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &EVMClientProvider{
		clients:     make(map[string]*EVMClient),
		logger:      l,
		dialTimeout: dialTimeout,
		callTimeout: time.Duration(perf.RPCCallTimeoutSeconds) * time.Second,
	}
}

// GetClient returns the client for rpcURL. Concurrent first calls share one dial.
func (p *EVMClientProvider) GetClient(ctx context.Context, rpcURL string) (port.BlockchainClient, error) {
	p.mu.RLock()
	c, ok := p.clients[rpcURL]
	p.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := p.dials.Do(rpcURL, func() (any, error) {
		p.mu.RLock()
		existing, ok := p.clients[rpcURL]
		p.mu.RUnlock()
		if ok {
			return existing, nil
		}

		p.logger.Debug("Dialing RPC endpoint", "rpc", rpcURL)
		dialed, err := NewEVMClient(ctx, rpcURL, p.dialTimeout, p.callTimeout)
		if err != nil {
			p.logger.Error("RPC dial failed", "rpc", rpcURL, "error", err)
			return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
		}

		p.mu.Lock()
		p.clients[rpcURL] = dialed
		p.mu.Unlock()
		return dialed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*EVMClient), nil
}

// Close closes every dialed client.
func (p *EVMClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, c := range p.clients {
		c.Close()
		delete(p.clients, url)
	}
}
