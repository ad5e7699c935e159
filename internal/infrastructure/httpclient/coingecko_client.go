package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultClientTimeout = 15 * time.Second

// do runs req honouring the context deadline, falling back to timeout.
func do(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		return client.DoDeadline(req, resp, deadline)
	}
	return client.DoTimeout(req, resp, timeout)
}

type coinGeckoMarketData struct {
	MarketData *struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

// coinGeckoClientImpl is the fasthttp implementation of port.PriceFeedClient.
type coinGeckoClientImpl struct {
	client     *fasthttp.Client
	baseURL    string
	apiKey     string
	vsCurrency string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewCoinGeckoClient creates a CoinGecko price client.
func NewCoinGeckoClient(cfg configloader.CoinGeckoConfig, logger *zap.Logger) port.PriceFeedClient {
	timeout := time.Duration(cfg.ClientTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	vs := strings.ToLower(cfg.VsCurrency)
	if vs == "" {
		vs = "usd"
	}
	return &coinGeckoClientImpl{
		client:     &fasthttp.Client{},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		vsCurrency: vs,
		timeout:    timeout,
		logger:     logger.Named("CoinGeckoClient"),
	}
}

func (c *coinGeckoClientImpl) get(ctx context.Context, path string, args map[string]string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(c.baseURL + path)
	for k, v := range args {
		req.URI().QueryArgs().Add(k, v)
	}
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	requestURL := req.URI().String()
	c.logger.Debug("Requesting CoinGecko", zap.String("url", requestURL))
	if err := do(ctx, c.client, req, resp, c.timeout); err != nil {
		c.logger.Error("Failed to execute request to CoinGecko", zap.String("url", requestURL), zap.Error(err))
		return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusTooManyRequests:
		c.logger.Warn("CoinGecko rate limit hit", zap.String("url", requestURL))
		return nil, fmt.Errorf("%w: coingecko %s", entity.ErrRateLimited, path)
	default:
		c.logger.Error("CoinGecko API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", resp.Body()),
		)
		return nil, fmt.Errorf("CoinGecko request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	// resp is released on return
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// SimplePrices implements port.PriceFeedClient.
func (c *coinGeckoClientImpl) SimplePrices(ctx context.Context, feedIDs []string) (map[string]float64, error) {
	if len(feedIDs) == 0 {
		return map[string]float64{}, nil
	}
	body, err := c.get(ctx, "/simple/price", map[string]string{
		"ids":           strings.Join(feedIDs, ","),
		"vs_currencies": c.vsCurrency,
	})
	if err != nil {
		return nil, err
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal simple price response: %w. Body: %s", err, string(body))
	}
	prices := make(map[string]float64, len(raw))
	for id, quotes := range raw {
		if p, ok := quotes[c.vsCurrency]; ok {
			prices[id] = p
		}
	}
	return prices, nil
}

// HistoricalPrice implements port.PriceFeedClient. The API is day-granular, keyed DD-MM-YYYY in UTC.
func (c *coinGeckoClientImpl) HistoricalPrice(ctx context.Context, feedID string, at time.Time) (float64, error) {
	body, err := c.get(ctx, "/coins/"+feedID+"/history", map[string]string{
		"date":         HistoryDate(at),
		"localization": "false",
	})
	if err != nil {
		return 0, err
	}

	var data coinGeckoMarketData
	if err := json.Unmarshal(body, &data); err != nil {
		return 0, fmt.Errorf("failed to unmarshal history response for %s: %w", feedID, err)
	}
	if data.MarketData == nil {
		return 0, fmt.Errorf("no market data for %s on %s", feedID, HistoryDate(at))
	}
	price, ok := data.MarketData.CurrentPrice[c.vsCurrency]
	if !ok {
		return 0, fmt.Errorf("no %s quote for %s on %s", c.vsCurrency, feedID, HistoryDate(at))
	}
	return price, nil
}

// HistoryDate formats t as the DD-MM-YYYY day key used by the history endpoint.
func HistoryDate(t time.Time) string {
	return t.UTC().Format("02-01-2006")
}
