package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"
	"aave_pnl/internal/pkg/metrics"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	defaultUnmappedPrice = 1.0

	priceKindCurrent    = "current"
	priceKindHistorical = "historical"

	provenanceResolved        = "resolved"
	provenanceCached          = "cached"
	provenanceDefaulted       = "defaulted"
	provenanceFallbackCurrent = "fallback_current"
	provenanceError           = "error"

	historicalPriceTTL = 24 * time.Hour
	defaultPriceTTL    = 60 * time.Second
	defaultCooldown    = 1200 * time.Millisecond
)

// tokenPriceServiceImpl implements port.TokenPriceService.
type tokenPriceServiceImpl struct {
	feed       port.PriceFeedClient
	feedIDs    map[string]string
	cache      *cache.Cache
	currentTTL time.Duration
	limiter    *rate.Limiter
	maxIDs     int
	logger     port.Logger
}

// NewTokenPriceService creates a cached price resolver. Feed ids are looked up by upper-cased symbol,
// and by lower-cased underlying address for every registry token whose symbol is mapped.
func NewTokenPriceService(
	feed port.PriceFeedClient,
	cfg configloader.CoinGeckoConfig,
	chains []entity.ChainConfig,
	l port.Logger,
) port.TokenPriceService {
	feedIDs := make(map[string]string, len(cfg.FeedIDs))
	for symbol, id := range cfg.FeedIDs {
		feedIDs[strings.ToUpper(symbol)] = id
	}
	for _, chain := range chains {
		for _, token := range chain.Tokens {
			if id, ok := feedIDs[strings.ToUpper(token.Symbol)]; ok && token.UnderlyingAddress != "" {
				feedIDs[strings.ToLower(token.UnderlyingAddress)] = id
			}
		}
	}

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultPriceTTL
	}
	cooldown := time.Duration(cfg.HistoricalCooldownMillis) * time.Millisecond
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	l.Info("TokenPriceService initialized", "mapped_ids", len(feedIDs), "current_ttl", ttl, "historical_cooldown", cooldown)
	maxIDs := cfg.MaxIDsPerRequest
	if maxIDs <= 0 {
		maxIDs = 50
	}
	return &tokenPriceServiceImpl{
		feed:       feed,
		feedIDs:    feedIDs,
		cache:      cache.New(ttl, 10*time.Minute),
		currentTTL: ttl,
		limiter:    rate.NewLimiter(rate.Every(cooldown), 1),
		maxIDs:     maxIDs,
		logger:     l,
	}
}

func (s *tokenPriceServiceImpl) feedID(symbolOrAddress string) (string, bool) {
	if id, ok := s.feedIDs[strings.ToUpper(symbolOrAddress)]; ok {
		return id, true
	}
	id, ok := s.feedIDs[strings.ToLower(symbolOrAddress)]
	return id, ok
}

func (s *tokenPriceServiceImpl) defaulted(kind, symbolOrAddress string) float64 {
	s.logger.Warn("No price feed mapped, using default price",
		"asset", symbolOrAddress, "kind", kind, "price", defaultUnmappedPrice, "provenance", provenanceDefaulted)
	metrics.PriceLookups.WithLabelValues(kind, provenanceDefaulted).Inc()
	return defaultUnmappedPrice
}

func currentKey(feedID string) string { return feedID + "|" + priceKindCurrent }

func historicalKey(feedID string, at time.Time) string {
	return feedID + "|" + priceKindHistorical + "|" + at.UTC().Format("02-01-2006")
}

func nonNegative(p float64) float64 {
	if p < 0 {
		return 0
	}
	return p
}

// GetCurrentPrice implements port.TokenPriceService.
//
// An unmapped identifier returns 1.0. A mapped identifier whose feed call fails returns 0,
// so a price-feed outage values that asset at zero; only price_lookups_total{provenance="error"}
// and an error log distinguish it from a real zero price.
func (s *tokenPriceServiceImpl) GetCurrentPrice(ctx context.Context, symbolOrAddress string) float64 {
	id, ok := s.feedID(symbolOrAddress)
	if !ok {
		return s.defaulted(priceKindCurrent, symbolOrAddress)
	}
	if v, found := s.cache.Get(currentKey(id)); found {
		metrics.PriceLookups.WithLabelValues(priceKindCurrent, provenanceCached).Inc()
		return v.(float64)
	}

	prices, err := s.feed.SimplePrices(ctx, []string{id})
	if err != nil {
		s.logger.Error("Failed to fetch current price", "asset", symbolOrAddress, "feed_id", id, "error", err)
		metrics.PriceLookups.WithLabelValues(priceKindCurrent, provenanceError).Inc()
		return 0
	}
	price, found := prices[id]
	if !found {
		s.logger.Warn("Price feed returned no quote", "asset", symbolOrAddress, "feed_id", id)
		metrics.PriceLookups.WithLabelValues(priceKindCurrent, provenanceError).Inc()
		return 0
	}

	price = nonNegative(price)
	s.cache.Set(currentKey(id), price, s.currentTTL)
	metrics.PriceLookups.WithLabelValues(priceKindCurrent, provenanceResolved).Inc()
	return price
}

// GetCurrentPrices implements port.TokenPriceService. Uncached feed ids are fetched in batches.
// The 1.0 default and the 0-on-failure rule of GetCurrentPrice apply per identifier.
func (s *tokenPriceServiceImpl) GetCurrentPrices(ctx context.Context, symbolsOrAddresses []string) map[string]float64 {
	result := make(map[string]float64, len(symbolsOrAddresses))
	idsByAsset := make(map[string]string, len(symbolsOrAddresses))
	var missing []string

	for _, asset := range lo.Uniq(symbolsOrAddresses) {
		id, ok := s.feedID(asset)
		if !ok {
			result[asset] = s.defaulted(priceKindCurrent, asset)
			continue
		}
		idsByAsset[asset] = id
		if v, found := s.cache.Get(currentKey(id)); found {
			metrics.PriceLookups.WithLabelValues(priceKindCurrent, provenanceCached).Inc()
			result[asset] = v.(float64)
			continue
		}
		missing = append(missing, id)
	}

	fetched := make(map[string]float64)
	for _, batch := range lo.Chunk(lo.Uniq(missing), s.maxIDs) {
		prices, err := s.feed.SimplePrices(ctx, batch)
		if err != nil {
			s.logger.Error("Failed to fetch current price batch", "feed_ids", batch, "error", err)
			continue
		}
		for id, p := range prices {
			p = nonNegative(p)
			fetched[id] = p
			s.cache.Set(currentKey(id), p, s.currentTTL)
		}
	}

	for asset, id := range idsByAsset {
		if _, done := result[asset]; done {
			continue
		}
		p, ok := fetched[id]
		if !ok {
			metrics.PriceLookups.WithLabelValues(priceKindCurrent, provenanceError).Inc()
			result[asset] = 0
			continue
		}
		metrics.PriceLookups.WithLabelValues(priceKindCurrent, provenanceResolved).Inc()
		result[asset] = p
	}
	return result
}

// GetHistoricalPrice implements port.TokenPriceService. Calls share one limiter; a throttled
// lookup falls back to the current price and any other failure yields 0.
func (s *tokenPriceServiceImpl) GetHistoricalPrice(ctx context.Context, symbolOrAddress string, unixTimestamp int64) float64 {
	id, ok := s.feedID(symbolOrAddress)
	if !ok {
		return s.defaulted(priceKindHistorical, symbolOrAddress)
	}
	at := time.Unix(unixTimestamp, 0).UTC()
	key := historicalKey(id, at)
	if v, found := s.cache.Get(key); found {
		metrics.PriceLookups.WithLabelValues(priceKindHistorical, provenanceCached).Inc()
		return v.(float64)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Warn("Historical price lookup cancelled", "asset", symbolOrAddress, "error", err)
		metrics.PriceLookups.WithLabelValues(priceKindHistorical, provenanceError).Inc()
		return 0
	}

	price, err := s.feed.HistoricalPrice(ctx, id, at)
	if err != nil {
		if errors.Is(err, entity.ErrRateLimited) {
			s.logger.Warn("Historical price rate-limited, using current price",
				"asset", symbolOrAddress, "date", at.Format(time.DateOnly), "provenance", provenanceFallbackCurrent)
			metrics.PriceLookups.WithLabelValues(priceKindHistorical, provenanceFallbackCurrent).Inc()
			return s.GetCurrentPrice(ctx, symbolOrAddress)
		}
		s.logger.Error("Failed to fetch historical price", "asset", symbolOrAddress, "feed_id", id, "error", err)
		metrics.PriceLookups.WithLabelValues(priceKindHistorical, provenanceError).Inc()
		return 0
	}

	price = nonNegative(price)
	s.cache.Set(key, price, historicalPriceTTL)
	metrics.PriceLookups.WithLabelValues(priceKindHistorical, provenanceResolved).Inc()
	return price
}
