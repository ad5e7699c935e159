package port

import (
	"context"

	"aave_pnl/internal/domain/entity"
)

// PnLCalculator values aggregated positions against their reconstructed cost basis.
type PnLCalculator interface {
	Calculate(ctx context.Context, events []entity.LendingEvent, supplied, borrowed map[string]float64) entity.AavePosition
}

// ReportService is the entry point every collaborator calls into.
type ReportService interface {
	GenerateReport(ctx context.Context, walletAddress, chainID string, mode entity.ReportMode) (entity.PortfolioReport, error)
	GetAccountHealth(ctx context.Context, walletAddress, chainID string) (entity.AccountHealth, error)
}

// ReportStore persists a generated report and returns the stored record id.
type ReportStore interface {
	SaveReport(ctx context.Context, userID string, report entity.PortfolioReport, imageRef string) (string, error)
	Close()
}

// CardRenderer draws a report as an image.
type CardRenderer interface {
	Render(report entity.PortfolioReport) ([]byte, error)
}

// ImageStore keeps rendered cards and returns a public reference.
type ImageStore interface {
	Put(name string, data []byte) (string, error)
}

// Notifier posts a summary, optionally with an image, to a chat channel.
type Notifier interface {
	IsConfigured() bool
	Notify(ctx context.Context, summary entity.ReportSummary, image []byte) entity.NotifyResult
}
