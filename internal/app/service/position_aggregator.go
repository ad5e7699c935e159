package service

import (
	"cmp"
	"slices"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
)

type positionAggregatorImpl struct{}

// NewPositionAggregator creates the chronological event fold.
func NewPositionAggregator() port.PositionAggregator {
	return positionAggregatorImpl{}
}

// SortEventsChronologically orders events by timestamp, then block, keeping input order for ties.
func SortEventsChronologically(events []entity.LendingEvent) []entity.LendingEvent {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b entity.LendingEvent) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.BlockNumber, b.BlockNumber)
	})
	return sorted
}

// Aggregate folds events into net quantities and drops anything at or below entity.DustThreshold.
// A withdraw or repay never resurrects a side that was never opened; it just drives the balance down.
// A CloseAll withdraw or repay resets the symbol to zero, so a later supply or borrow starts fresh.
func (positionAggregatorImpl) Aggregate(events []entity.LendingEvent) entity.AggregatedPositions {
	supplied := make(map[string]float64)
	borrowed := make(map[string]float64)

	for _, ev := range SortEventsChronologically(events) {
		switch ev.Kind {
		case entity.EventSupply:
			supplied[ev.Symbol] += ev.Amount
		case entity.EventWithdraw:
			if ev.CloseAll {
				supplied[ev.Symbol] = 0
				continue
			}
			supplied[ev.Symbol] -= ev.Amount
		case entity.EventBorrow:
			borrowed[ev.Symbol] += ev.Amount
		case entity.EventRepay:
			if ev.CloseAll {
				borrowed[ev.Symbol] = 0
				continue
			}
			borrowed[ev.Symbol] -= ev.Amount
		}
	}

	return entity.AggregatedPositions{
		Supplied: dropDust(supplied),
		Borrowed: dropDust(borrowed),
	}
}

func dropDust(m map[string]float64) map[string]float64 {
	for symbol, qty := range m {
		if qty <= entity.DustThreshold {
			delete(m, symbol)
		}
	}
	return m
}
