package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
)

// PublishRequest asks for a report to be generated, rendered, stored and optionally shared.
type PublishRequest struct {
	WalletAddress string
	Chain         string
	Mode          entity.ReportMode
	UserID        string
	Share         bool
}

// PublishResult is what callers get back from a publish.
type PublishResult struct {
	ID           string                 `json:"id,omitempty"`
	ImageURL     string                 `json:"imageUrl"`
	Report       entity.PortfolioReport `json:"report"`
	Notification *entity.NotifyResult   `json:"notification,omitempty"`
}

// PublishService runs render, image store, persistence and notification on top of a report.
// store and notifier are optional.
type PublishService struct {
	reports  port.ReportService
	renderer port.CardRenderer
	images   port.ImageStore
	store    port.ReportStore
	notifier port.Notifier
	logger   port.Logger
}

// NewPublishService creates a PublishService.
func NewPublishService(
	reports port.ReportService,
	renderer port.CardRenderer,
	images port.ImageStore,
	store port.ReportStore,
	notifier port.Notifier,
	l port.Logger,
) *PublishService {
	return &PublishService{
		reports:  reports,
		renderer: renderer,
		images:   images,
		store:    store,
		notifier: notifier,
		logger:   l,
	}
}

// CardName is the stored file name for a report's card.
func CardName(report entity.PortfolioReport) string {
	addr := strings.ToLower(report.WalletAddress)
	if len(addr) > 10 {
		addr = addr[:10]
	}
	return fmt.Sprintf("aave-pnl-%s-%s-%s.png", report.Chain, addr, report.GeneratedAt.UTC().Format("20060102T150405"))
}

// RenderCard renders the report, wrapping any failure in entity.RenderError.
func (s *PublishService) RenderCard(report entity.PortfolioReport) ([]byte, error) {
	png, err := s.renderer.Render(report)
	if err != nil {
		var renderErr *entity.RenderError
		if errors.As(err, &renderErr) {
			return nil, err
		}
		return nil, &entity.RenderError{Cause: err}
	}
	return png, nil
}

// Publish implements the full report flow. A failed notification is reported in the result, not as an error.
func (s *PublishService) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	report, err := s.reports.GenerateReport(ctx, req.WalletAddress, req.Chain, req.Mode)
	if err != nil {
		return PublishResult{}, err
	}
	result := PublishResult{Report: report}

	png, err := s.RenderCard(report)
	if err != nil {
		s.logger.Error("Failed to render PnL card", "wallet", report.WalletAddress, "error", err)
		return result, err
	}

	ref, err := s.images.Put(CardName(report), png)
	if err != nil {
		s.logger.Error("Failed to store PnL card", "wallet", report.WalletAddress, "error", err)
		return result, &entity.PersistenceError{Op: "card image", Cause: err}
	}
	result.ImageURL = ref

	if s.store != nil {
		id, err := s.store.SaveReport(ctx, req.UserID, report, ref)
		if err != nil {
			s.logger.Error("Failed to persist report", "wallet", report.WalletAddress, "error", err)
			var perr *entity.PersistenceError
			if errors.As(err, &perr) {
				return result, err
			}
			return result, &entity.PersistenceError{Op: "report", Cause: err}
		}
		result.ID = id
	}

	if req.Share {
		notification := s.Share(ctx, report.Summary(), png)
		result.Notification = &notification
	}

	s.logger.Info("Report published", "wallet", report.WalletAddress, "chain", report.Chain, "id", result.ID, "image", result.ImageURL)
	return result, nil
}

// NotifierConfigured reports whether sharing can succeed at all.
func (s *PublishService) NotifierConfigured() bool {
	return s.notifier != nil && s.notifier.IsConfigured()
}

// Share posts a summary and optional image to the configured chat channel.
func (s *PublishService) Share(ctx context.Context, summary entity.ReportSummary, image []byte) entity.NotifyResult {
	if s.notifier == nil {
		return entity.NotifyResult{Reason: "not_configured", Message: "no notifier configured"}
	}
	res := s.notifier.Notify(ctx, summary, image)
	if !res.Success {
		s.logger.Warn("Notification failed", "wallet", summary.WalletAddress, "reason", res.Reason, "message", res.Message)
	}
	return res
}
