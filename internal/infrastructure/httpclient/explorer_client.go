package httpclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	explorerEndBlock = "99999999"
	explorerPageSize = "10000"
)

type explorerEnvelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
}

type explorerTx struct {
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Input       string `json:"input"`
	IsError     string `json:"isError"`
}

// explorerClientImpl is the fasthttp implementation of port.ExplorerClient for Etherscan v2 style APIs.
type explorerClientImpl struct {
	client  *fasthttp.Client
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewExplorerClient creates an explorer client limited to cfg.RequestsPerSecond.
func NewExplorerClient(cfg configloader.ExplorerConfig, logger *zap.Logger) port.ExplorerClient {
	timeout := time.Duration(cfg.ClientTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &explorerClientImpl{
		client:  &fasthttp.Client{},
		apiKey:  cfg.APIKey,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("ExplorerClient"),
	}
}

// AccountTransactions implements port.ExplorerClient.
func (c *explorerClientImpl) AccountTransactions(ctx context.Context, chain entity.ChainConfig, action, address string, startBlock uint64) ([]entity.RawTransaction, error) {
	if chain.ExplorerAPIURL == "" {
		return nil, fmt.Errorf("no explorer API configured for %s", chain.Identifier)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("explorer rate limiter: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(chain.ExplorerAPIURL)
	args := req.URI().QueryArgs()
	args.Add("chainid", strconv.FormatUint(chain.ChainID, 10))
	args.Add("module", "account")
	args.Add("action", action)
	args.Add("address", address)
	args.Add("startblock", strconv.FormatUint(startBlock, 10))
	args.Add("endblock", explorerEndBlock)
	args.Add("page", "1")
	args.Add("offset", explorerPageSize)
	args.Add("sort", "asc")
	if c.apiKey != "" {
		args.Add("apikey", c.apiKey)
	}
	req.Header.SetMethod(fasthttp.MethodGet)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	c.logger.Debug("Requesting explorer", zap.String("chain", chain.Identifier), zap.String("action", action), zap.String("address", address))
	if err := do(ctx, c.client, req, resp, c.timeout); err != nil {
		c.logger.Error("Failed to execute request to explorer", zap.String("chain", chain.Identifier), zap.Error(err))
		return nil, fmt.Errorf("explorer request for %s: %w", chain.Identifier, err)
	}
	if resp.StatusCode() == fasthttp.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: explorer %s", entity.ErrRateLimited, chain.Identifier)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("Explorer API request failed",
			zap.String("chain", chain.Identifier),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", resp.Body()),
		)
		return nil, fmt.Errorf("explorer request for %s failed with status %d", chain.Identifier, resp.StatusCode())
	}

	return parseExplorerResponse(resp.Body())
}

func parseExplorerResponse(body []byte) ([]entity.RawTransaction, error) {
	var env explorerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal explorer response: %w", err)
	}
	if env.Status != "1" {
		var detail string
		_ = json.Unmarshal(env.Result, &detail)
		if strings.Contains(strings.ToLower(detail+env.Message), "rate limit") {
			return nil, fmt.Errorf("%w: explorer: %s %s", entity.ErrRateLimited, env.Message, detail)
		}
		return nil, fmt.Errorf("explorer status %q: %s %s", env.Status, env.Message, detail)
	}

	var rows []explorerTx
	if err := json.Unmarshal(env.Result, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal explorer result: %w", err)
	}

	txs := make([]entity.RawTransaction, 0, len(rows))
	for _, r := range rows {
		if r.IsError == "1" {
			continue
		}
		block, _ := strconv.ParseUint(r.BlockNumber, 10, 64)
		ts, _ := strconv.ParseInt(r.TimeStamp, 10, 64)
		txs = append(txs, entity.RawTransaction{
			Hash:        r.Hash,
			BlockNumber: block,
			Timestamp:   time.Unix(ts, 0).UTC(),
			From:        r.From,
			To:          r.To,
			Input:       r.Input,
		})
	}
	return txs, nil
}
