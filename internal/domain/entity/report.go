package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ReportMode selects the valuation pipeline.
type ReportMode string

const (
	// ReportModeLive values current receipt-token balances only.
	ReportModeLive ReportMode = "live"
	// ReportModeHistorical reconstructs cost basis from transaction history.
	ReportModeHistorical ReportMode = "historical"
)

// ParseReportMode maps user input to a mode; empty input means live.
func ParseReportMode(s string) (ReportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ReportModeLive):
		return ReportModeLive, nil
	case string(ReportModeHistorical), "history":
		return ReportModeHistorical, nil
	default:
		return "", &InvalidInputError{Field: "mode", Reason: fmt.Sprintf("unknown report mode %q", s)}
	}
}

// HealthStatus is the display tier for a health factor.
type HealthStatus string

const (
	HealthNoDebt          HealthStatus = "No Debt"
	HealthSafe            HealthStatus = "Safe"
	HealthCaution         HealthStatus = "Caution"
	HealthWarning         HealthStatus = "Warning"
	HealthLiquidationRisk HealthStatus = "Liquidation Risk"
)

// AccountHealth is the pool's aggregate view of an account.
// HealthFactor is +Inf when no data is available or the account has no debt.
type AccountHealth struct {
	HealthFactor       float64 `json:"healthFactor"`
	TotalCollateralUSD float64 `json:"totalCollateralUSD"`
	TotalDebtUSD       float64 `json:"totalDebtUSD"`
}

// UnknownAccountHealth is returned when every endpoint failed.
func UnknownAccountHealth() AccountHealth {
	return AccountHealth{HealthFactor: math.Inf(1)}
}

// Status returns the display tier.
func (h AccountHealth) Status() HealthStatus {
	hf := h.HealthFactor
	switch {
	case math.IsInf(hf, 1) || hf > 1e6:
		return HealthNoDebt
	case hf > 2:
		return HealthSafe
	case hf > 1.5:
		return HealthCaution
	case hf > 1.1:
		return HealthWarning
	default:
		return HealthLiquidationRisk
	}
}

// FormatHealthFactor renders the factor, using ∞ for the no-debt case.
func (h AccountHealth) FormatHealthFactor() string {
	if math.IsInf(h.HealthFactor, 1) || h.HealthFactor > 1e6 {
		return "∞"
	}
	return fmt.Sprintf("%.2f", h.HealthFactor)
}

type accountHealthJSON struct {
	HealthFactor        *float64     `json:"healthFactor"`
	HealthFactorDisplay string       `json:"healthFactorDisplay"`
	Status              HealthStatus `json:"status"`
	TotalCollateralUSD  float64      `json:"totalCollateralUSD"`
	TotalDebtUSD        float64      `json:"totalDebtUSD"`
}

// MarshalJSON writes an infinite health factor as null.
func (h AccountHealth) MarshalJSON() ([]byte, error) {
	out := accountHealthJSON{
		HealthFactorDisplay: h.FormatHealthFactor(),
		Status:              h.Status(),
		TotalCollateralUSD:  h.TotalCollateralUSD,
		TotalDebtUSD:        h.TotalDebtUSD,
	}
	if !math.IsInf(h.HealthFactor, 0) && !math.IsNaN(h.HealthFactor) {
		hf := h.HealthFactor
		out.HealthFactor = &hf
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads null back as +Inf.
func (h *AccountHealth) UnmarshalJSON(data []byte) error {
	var in accountHealthJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	h.TotalCollateralUSD = in.TotalCollateralUSD
	h.TotalDebtUSD = in.TotalDebtUSD
	if in.HealthFactor == nil {
		h.HealthFactor = math.Inf(1)
	} else {
		h.HealthFactor = *in.HealthFactor
	}
	return nil
}

// PortfolioReport is the unit handed to renderers, stores and notifiers.
type PortfolioReport struct {
	WalletAddress string        `json:"walletAddress"`
	Chain         string        `json:"chain"`
	Mode          ReportMode    `json:"mode"`
	Position      AavePosition  `json:"position"`
	Health        AccountHealth `json:"health"`
	GeneratedAt   time.Time     `json:"generatedAt"`
}

// ReportSummary is the flattened view used by the messaging collaborator.
type ReportSummary struct {
	WalletAddress   string  `json:"walletAddress"`
	Chain           string  `json:"chain"`
	CurrentNetWorth float64 `json:"currentNetWorth"`
	TotalPnL        float64 `json:"totalPnL"`
	PnLPercentage   float64 `json:"pnlPercentage"`
	SuppliedTotal   float64 `json:"suppliedTotal"`
	BorrowedTotal   float64 `json:"borrowedTotal"`
}

// Summary flattens the report.
func (r PortfolioReport) Summary() ReportSummary {
	return ReportSummary{
		WalletAddress:   r.WalletAddress,
		Chain:           r.Chain,
		CurrentNetWorth: r.Position.CurrentNetWorth,
		TotalPnL:        r.Position.TotalPnL,
		PnLPercentage:   r.Position.PnLPercentage,
		SuppliedTotal:   r.Position.SuppliedTotal(),
		BorrowedTotal:   r.Position.BorrowedTotal(),
	}
}

// Breakdown renders a plain-text position summary.
func (r PortfolioReport) Breakdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Aave V3 positions for %s on %s (%s)\n", r.WalletAddress, strings.ToUpper(r.Chain), r.Mode)

	writeSide := func(title string, positions []TokenPosition) {
		fmt.Fprintf(&b, "\n%s:\n", title)
		if len(positions) == 0 {
			b.WriteString("  none\n")
			return
		}
		for _, p := range positions {
			fmt.Fprintf(&b, "  %-8s %16.6f  @ $%-12.4f = $%.2f\n", p.Symbol, p.Amount, p.CurrentPrice, p.CurrentValue)
		}
	}
	writeSide("Supplied", r.Position.Supplied)
	writeSide("Borrowed", r.Position.Borrowed)

	fmt.Fprintf(&b, "\nInitial net worth: $%.2f\n", r.Position.InitialNetWorth)
	fmt.Fprintf(&b, "Current net worth: $%.2f\n", r.Position.CurrentNetWorth)
	fmt.Fprintf(&b, "PnL: %s (%s)\n", FormatSignedUSD(r.Position.TotalPnL), FormatSignedPercent(r.Position.PnLPercentage))
	fmt.Fprintf(&b, "Health factor: %s (%s)\n", r.Health.FormatHealthFactor(), r.Health.Status())
	return b.String()
}

// FormatSignedUSD renders e.g. "+$12.34" or "-$5.00".
func FormatSignedUSD(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("+$%.2f", v)
}

// FormatSignedPercent renders e.g. "+3.20%".
func FormatSignedPercent(v float64) string {
	if v < 0 {
		return fmt.Sprintf("%.2f%%", v)
	}
	return fmt.Sprintf("+%.2f%%", v)
}

// ShortAddress returns 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// NotifyResult is the messaging collaborator's answer. Reason is machine-readable.
type NotifyResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}
