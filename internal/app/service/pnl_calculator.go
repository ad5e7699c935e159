package service

import (
	"context"
	"math"
	"sort"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"

	"github.com/samber/lo"
)

// pnlCalculatorImpl implements port.PnLCalculator.
// Cost basis is the first opening event of each asset valued at that day's price.
type pnlCalculatorImpl struct {
	prices port.TokenPriceService
	logger port.Logger
}

// NewPnLCalculator creates a calculator backed by the price service.
func NewPnLCalculator(prices port.TokenPriceService, l port.Logger) port.PnLCalculator {
	return &pnlCalculatorImpl{prices: prices, logger: l}
}

type valuedPosition struct {
	entity.TokenPosition
	openedAt time.Time
	hasEvent bool
}

// Calculate implements port.PnLCalculator.
func (c *pnlCalculatorImpl) Calculate(ctx context.Context, events []entity.LendingEvent, supplied, borrowed map[string]float64) entity.AavePosition {
	chronological := SortEventsChronologically(events)

	symbols := lo.Uniq(append(lo.Keys(supplied), lo.Keys(borrowed)...))
	current := c.prices.GetCurrentPrices(ctx, symbols)

	suppliedPositions := c.valueSide(ctx, chronological, supplied, entity.EventSupply, current)
	borrowedPositions := c.valueSide(ctx, chronological, borrowed, entity.EventBorrow, current)

	initialSupplied := lo.SumBy(suppliedPositions, func(p entity.TokenPosition) float64 { return p.InitialValue })
	initialBorrowed := lo.SumBy(borrowedPositions, func(p entity.TokenPosition) float64 { return p.InitialValue })
	currentSupplied := lo.SumBy(suppliedPositions, func(p entity.TokenPosition) float64 { return p.CurrentValue })
	currentBorrowed := lo.SumBy(borrowedPositions, func(p entity.TokenPosition) float64 { return p.CurrentValue })

	return assemblePosition(suppliedPositions, borrowedPositions,
		initialSupplied-initialBorrowed, currentSupplied-currentBorrowed)
}

// assemblePosition fills the derived PnL fields.
func assemblePosition(supplied, borrowed []entity.TokenPosition, initialNetWorth, currentNetWorth float64) entity.AavePosition {
	pnl := currentNetWorth - initialNetWorth
	pct := 0.0
	if initialNetWorth != 0 {
		pct = pnl / math.Abs(initialNetWorth) * 100
	}
	return entity.AavePosition{
		Supplied:        supplied,
		Borrowed:        borrowed,
		InitialNetWorth: initialNetWorth,
		CurrentNetWorth: currentNetWorth,
		TotalPnL:        pnl,
		PnLPercentage:   pct,
	}
}

func (c *pnlCalculatorImpl) valueSide(
	ctx context.Context,
	chronological []entity.LendingEvent,
	quantities map[string]float64,
	openingKind entity.EventKind,
	current map[string]float64,
) []entity.TokenPosition {
	valued := make([]valuedPosition, 0, len(quantities))
	for symbol, qty := range quantities {
		currentPrice := current[symbol]
		pos := valuedPosition{TokenPosition: entity.TokenPosition{
			Symbol:       symbol,
			Amount:       qty,
			CurrentPrice: currentPrice,
			CurrentValue: qty * currentPrice,
		}}

		first, found := lo.Find(chronological, func(ev entity.LendingEvent) bool {
			return ev.Kind == openingKind && ev.Symbol == symbol
		})
		if found {
			initialPrice := c.prices.GetHistoricalPrice(ctx, symbol, first.Timestamp.Unix())
			pos.Address = first.AssetAddress
			pos.InitialPrice = initialPrice
			pos.InitialValue = first.Amount * initialPrice
			pos.openedAt = first.Timestamp
			pos.hasEvent = true
		} else {
			c.logger.Warn("No opening event for position, using current value as cost basis", "symbol", symbol, "kind", openingKind)
			pos.InitialPrice = currentPrice
			pos.InitialValue = pos.CurrentValue
		}
		valued = append(valued, pos)
	}

	sort.SliceStable(valued, func(i, j int) bool {
		a, b := valued[i], valued[j]
		if a.hasEvent != b.hasEvent {
			return a.hasEvent
		}
		if !a.openedAt.Equal(b.openedAt) {
			return a.openedAt.Before(b.openedAt)
		}
		return a.Symbol < b.Symbol
	})

	return lo.Map(valued, func(v valuedPosition, _ int) entity.TokenPosition { return v.TokenPosition })
}
