package entity

import "time"

// RawTransaction is a transaction as returned by the explorer API or hydrated from logs.
type RawTransaction struct {
	Hash        string    `json:"hash"`
	BlockNumber uint64    `json:"blockNumber"`
	Timestamp   time.Time `json:"timestamp"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Input       string    `json:"input"`
}

// HistorySource tells where a transaction list came from.
type HistorySource string

const (
	HistorySourceExplorer    HistorySource = "explorer"
	HistorySourceLogScan     HistorySource = "log_scan"
	HistorySourceUnavailable HistorySource = "unavailable"
)

// TransactionHistory is the outcome of a history fetch. Transactions is never nil.
// An empty list with Source == HistorySourceUnavailable means every path failed.
type TransactionHistory struct {
	Transactions []RawTransaction `json:"transactions"`
	Source       HistorySource    `json:"source"`
}
