package entity

// DustThreshold is the quantity at or below which a position is treated as closed.
const DustThreshold = 0.0001

// PositionSide is either the supplied (aToken) or borrowed (debt token) side of a reserve.
type PositionSide string

const (
	SideSupplied PositionSide = "supplied"
	SideBorrowed PositionSide = "borrowed"
)

// BalanceRequestItem is a single receipt-token balance to read in live mode.
type BalanceRequestItem struct {
	Side         PositionSide
	Symbol       string
	Underlying   string
	TokenAddress string
	Decimals     uint8
}

// TokenBalance is an on-chain balance converted with the token's decimals.
type TokenBalance struct {
	Side   PositionSide `json:"side"`
	Symbol string       `json:"symbol"`
	Amount float64      `json:"amount"`
}

// TokenPosition is one asset on one side of the report.
type TokenPosition struct {
	Symbol       string  `json:"symbol"`
	Address      string  `json:"address"`
	Amount       float64 `json:"amount"`
	InitialPrice float64 `json:"initialPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
}

// AavePosition is the valuation of a wallet. PnLPercentage is 0 when InitialNetWorth is 0.
type AavePosition struct {
	Supplied        []TokenPosition `json:"supplied"`
	Borrowed        []TokenPosition `json:"borrowed"`
	InitialNetWorth float64         `json:"initialNetWorth"`
	CurrentNetWorth float64         `json:"currentNetWorth"`
	TotalPnL        float64         `json:"totalPnL"`
	PnLPercentage   float64         `json:"pnlPercentage"`
}

// IsEmpty reports whether neither side holds a position.
func (p AavePosition) IsEmpty() bool {
	return len(p.Supplied) == 0 && len(p.Borrowed) == 0
}

// SuppliedTotal is the current USD value of the supplied side.
func (p AavePosition) SuppliedTotal() float64 {
	var total float64
	for _, pos := range p.Supplied {
		total += pos.CurrentValue
	}
	return total
}

// BorrowedTotal is the current USD value of the borrowed side.
func (p AavePosition) BorrowedTotal() float64 {
	var total float64
	for _, pos := range p.Borrowed {
		total += pos.CurrentValue
	}
	return total
}

// AggregatedPositions holds net quantities per symbol after folding an event stream.
type AggregatedPositions struct {
	Supplied map[string]float64 `json:"supplied"`
	Borrowed map[string]float64 `json:"borrowed"`
}
