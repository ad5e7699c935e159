package service

import (
	"context"
	"errors"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/pkg/metrics"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ReportOptions tunes the live-mode balance fan-out.
type ReportOptions struct {
	// BalanceConcurrency of 1 reads balances one by one.
	BalanceConcurrency int
	// BalanceQueryDelay paces balance reads; 0 disables pacing.
	BalanceQueryDelay time.Duration
}

// ReportServiceImpl implements port.ReportService.
type ReportServiceImpl struct {
	registry   port.ChainRegistry
	balances   port.BalanceResolver
	health     port.AccountHealthReader
	history    port.TransactionHistoryFetcher
	decoder    port.EventDecoder
	aggregator port.PositionAggregator
	calculator port.PnLCalculator
	prices     port.TokenPriceService
	logger     port.Logger
	opts       ReportOptions
	now        func() time.Time
}

// NewReportService wires the valuation pipeline.
func NewReportService(
	registry port.ChainRegistry,
	balances port.BalanceResolver,
	health port.AccountHealthReader,
	history port.TransactionHistoryFetcher,
	decoder port.EventDecoder,
	aggregator port.PositionAggregator,
	calculator port.PnLCalculator,
	prices port.TokenPriceService,
	l port.Logger,
	opts ReportOptions,
) *ReportServiceImpl {
	if opts.BalanceConcurrency <= 0 {
		opts.BalanceConcurrency = 1
	}
	return &ReportServiceImpl{
		registry:   registry,
		balances:   balances,
		health:     health,
		history:    history,
		decoder:    decoder,
		aggregator: aggregator,
		calculator: calculator,
		prices:     prices,
		logger:     l,
		opts:       opts,
		now:        time.Now,
	}
}

// GenerateReport implements port.ReportService.
func (s *ReportServiceImpl) GenerateReport(ctx context.Context, walletAddress, chainID string, mode entity.ReportMode) (entity.PortfolioReport, error) {
	if err := entity.ValidateWalletAddress(walletAddress); err != nil {
		return entity.PortfolioReport{}, err
	}
	if mode == "" {
		mode = entity.ReportModeLive
	}
	if mode != entity.ReportModeLive && mode != entity.ReportModeHistorical {
		return entity.PortfolioReport{}, &entity.InvalidInputError{Field: "mode", Reason: "unknown report mode " + string(mode)}
	}
	chain, err := s.registry.GetChainConfig(chainID)
	if err != nil {
		return entity.PortfolioReport{}, err
	}

	start := time.Now()
	s.logger.Info("Generating report", "wallet", walletAddress, "chain", chain.Identifier, "mode", mode)

	var position entity.AavePosition
	switch mode {
	case entity.ReportModeHistorical:
		position = s.historicalPosition(ctx, walletAddress, chain)
	default:
		position, err = s.livePosition(ctx, walletAddress, chain)
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && position.IsEmpty() {
		err = &entity.NoPositionsFoundError{WalletAddress: walletAddress, Chain: chain.Identifier, Mode: mode}
	}

	metrics.ReportDuration.WithLabelValues(chain.Identifier, string(mode)).Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		var noPositions *entity.NoPositionsFoundError
		if errors.As(err, &noPositions) {
			outcome = "no_positions"
			s.logger.Info("No Aave positions found", "wallet", walletAddress, "chain", chain.Identifier, "mode", mode)
		} else {
			s.logger.Error("Report generation failed", "wallet", walletAddress, "chain", chain.Identifier, "mode", mode, "error", err)
		}
		metrics.Reports.WithLabelValues(chain.Identifier, string(mode), outcome).Inc()
		return entity.PortfolioReport{}, err
	}

	health := s.health.GetAccountHealth(ctx, walletAddress, chain.Identifier)
	metrics.Reports.WithLabelValues(chain.Identifier, string(mode), "success").Inc()
	s.logger.Info("Report generated",
		"wallet", walletAddress, "chain", chain.Identifier, "mode", mode,
		"supplied", len(position.Supplied), "borrowed", len(position.Borrowed),
		"net_worth", position.CurrentNetWorth, "pnl", position.TotalPnL,
		"duration", time.Since(start))

	return entity.PortfolioReport{
		WalletAddress: walletAddress,
		Chain:         chain.Identifier,
		Mode:          mode,
		Position:      position,
		Health:        health,
		GeneratedAt:   s.now().UTC(),
	}, nil
}

// GetAccountHealth implements port.ReportService.
func (s *ReportServiceImpl) GetAccountHealth(ctx context.Context, walletAddress, chainID string) (entity.AccountHealth, error) {
	if err := entity.ValidateWalletAddress(walletAddress); err != nil {
		return entity.AccountHealth{}, err
	}
	chain, err := s.registry.GetChainConfig(chainID)
	if err != nil {
		return entity.AccountHealth{}, err
	}
	return s.health.GetAccountHealth(ctx, walletAddress, chain.Identifier), nil
}

func balanceRequests(chain entity.ChainConfig) []entity.BalanceRequestItem {
	items := make([]entity.BalanceRequestItem, 0, 2*len(chain.Tokens))
	for _, t := range chain.Tokens {
		if t.ATokenAddress != "" {
			items = append(items, entity.BalanceRequestItem{Side: entity.SideSupplied, Symbol: t.Symbol, Underlying: t.UnderlyingAddress, TokenAddress: t.ATokenAddress, Decimals: t.Decimals})
		}
		if t.DebtTokenAddress != "" {
			items = append(items, entity.BalanceRequestItem{Side: entity.SideBorrowed, Symbol: t.Symbol, Underlying: t.UnderlyingAddress, TokenAddress: t.DebtTokenAddress, Decimals: t.Decimals})
		}
	}
	return items
}

// readBalances reads every item, paced by the query delay and bounded by the configured concurrency.
func (s *ReportServiceImpl) readBalances(ctx context.Context, walletAddress string, chain entity.ChainConfig, items []entity.BalanceRequestItem) ([]entity.TokenBalance, error) {
	var limiter *rate.Limiter
	if s.opts.BalanceQueryDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.opts.BalanceQueryDelay), 1)
	}

	amounts := make([]float64, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BalanceConcurrency)
	for i, item := range items {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			amounts[i] = s.balances.GetBalance(gctx, walletAddress, item.TokenAddress, item.Decimals, chain.Identifier)
			s.logger.Debug("Balance read", "chain", chain.Identifier, "symbol", item.Symbol, "side", item.Side, "amount", amounts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	balances := make([]entity.TokenBalance, 0, len(items))
	for i, item := range items {
		if amounts[i] > entity.DustThreshold {
			balances = append(balances, entity.TokenBalance{Side: item.Side, Symbol: item.Symbol, Amount: amounts[i]})
		}
	}
	return balances, nil
}

func (s *ReportServiceImpl) livePosition(ctx context.Context, walletAddress string, chain entity.ChainConfig) (entity.AavePosition, error) {
	items := balanceRequests(chain)
	balances, err := s.readBalances(ctx, walletAddress, chain, items)
	if err != nil {
		return entity.AavePosition{}, err
	}
	if len(balances) == 0 {
		return entity.AavePosition{}, nil
	}

	symbols := lo.Uniq(lo.Map(balances, func(b entity.TokenBalance, _ int) string { return b.Symbol }))
	prices := s.prices.GetCurrentPrices(ctx, symbols)

	var supplied, borrowed []entity.TokenPosition
	for _, b := range balances {
		price := prices[b.Symbol]
		value := b.Amount * price
		address := ""
		if t, ok := chain.TokenBySymbol(b.Symbol); ok {
			address = t.UnderlyingAddress
		}
		pos := entity.TokenPosition{
			Symbol:       b.Symbol,
			Address:      address,
			Amount:       b.Amount,
			InitialPrice: price,
			CurrentPrice: price,
			InitialValue: value,
			CurrentValue: value,
		}
		if b.Side == entity.SideSupplied {
			supplied = append(supplied, pos)
		} else {
			borrowed = append(borrowed, pos)
		}
	}

	sum := func(ps []entity.TokenPosition) float64 {
		return lo.SumBy(ps, func(p entity.TokenPosition) float64 { return p.CurrentValue })
	}
	net := sum(supplied) - sum(borrowed)
	return assemblePosition(supplied, borrowed, net, net), nil
}

func (s *ReportServiceImpl) historicalPosition(ctx context.Context, walletAddress string, chain entity.ChainConfig) entity.AavePosition {
	history := s.history.GetTransactions(ctx, walletAddress, chain.Identifier, 0)
	relevant := s.decoder.FilterRelevant(history.Transactions, chain)
	events := s.decoder.DecodeAll(relevant, chain)
	aggregated := s.aggregator.Aggregate(events)

	s.logger.Debug("Historical pipeline",
		"chain", chain.Identifier, "source", history.Source,
		"transactions", len(history.Transactions), "relevant", len(relevant), "events", len(events),
		"supplied", len(aggregated.Supplied), "borrowed", len(aggregated.Borrowed))

	if len(aggregated.Supplied) == 0 && len(aggregated.Borrowed) == 0 {
		return entity.AavePosition{}
	}
	return s.calculator.Calculate(ctx, events, aggregated.Supplied, aggregated.Borrowed)
}
