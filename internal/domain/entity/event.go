package entity

import "time"

// EventKind is the type of a decoded lending action.
type EventKind string

const (
	EventSupply   EventKind = "supply"
	EventWithdraw EventKind = "withdraw"
	EventBorrow   EventKind = "borrow"
	EventRepay    EventKind = "repay"
)

// LendingEvent is a decoded Aave pool call. It is always derived from exactly one RawTransaction.
type LendingEvent struct {
	Kind         EventKind `json:"kind"`
	AssetAddress string    `json:"assetAddress"`
	// Symbol is the registry symbol for AssetAddress, or the address itself for unknown reserves.
	Symbol      string    `json:"symbol"`
	Amount      float64   `json:"amount"`
	// CloseAll marks a withdraw or repay of type(uint256).max, which empties the position
	// whatever its size. Amount is 0 for such events.
	CloseAll    bool      `json:"closeAll,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	TxHash      string    `json:"txHash"`
	BlockNumber uint64    `json:"blockNumber"`
}
