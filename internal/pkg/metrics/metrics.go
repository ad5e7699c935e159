package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aave_pnl"

var (
	// RPCCalls counts eth_call attempts per endpoint outcome.
	RPCCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_calls_total",
		Help:      "RPC calls by chain, method and outcome.",
	}, []string{"chain", "method", "outcome"})

	// PriceLookups counts price resolutions by provenance (resolved, cached, defaulted, fallback_current, error).
	PriceLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_lookups_total",
		Help:      "Price lookups by kind and provenance.",
	}, []string{"kind", "provenance"})

	// HistoryFetches counts which path produced a transaction history.
	HistoryFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_fetches_total",
		Help:      "Transaction history fetches by chain and source.",
	}, []string{"chain", "source"})

	// Reports counts report generations.
	Reports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_total",
		Help:      "Generated reports by chain, mode and outcome.",
	}, []string{"chain", "mode", "outcome"})

	// ReportDuration observes end-to-end report latency.
	ReportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_duration_seconds",
		Help:      "Report generation latency.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	}, []string{"chain", "mode"})

	// Notifications counts chat notifications by outcome reason.
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Chat notifications by outcome.",
	}, []string{"outcome"})

	registerOnce sync.Once
)

// MustRegisterMetrics registers every collector with the default registry. Safe to call twice.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RPCCalls, PriceLookups, HistoryFetches, Reports, ReportDuration, Notifications)
	})
}
