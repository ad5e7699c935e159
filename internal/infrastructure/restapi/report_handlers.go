package restapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/app/service"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/export"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const defaultChain = "bsc"

// Publisher is the part of service.PublishService the API needs.
type Publisher interface {
	Publish(ctx context.Context, req service.PublishRequest) (service.PublishResult, error)
	NotifierConfigured() bool
	Share(ctx context.Context, summary entity.ReportSummary, image []byte) entity.NotifyResult
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string           `json:"error"`
	Kind  entity.ErrorKind `json:"kind"`
}

// ChainView is one entry of GET /chains.
type ChainView struct {
	Identifier  string   `json:"identifier"`
	ChainID     uint64   `json:"chainId"`
	Name        string   `json:"name"`
	PoolAddress string   `json:"poolAddress"`
	Tokens      []string `json:"tokens"`
}

// HealthResponse is the body of GET /positions/:wallet/health.
type HealthResponse struct {
	WalletAddress string               `json:"walletAddress"`
	Chain         string               `json:"chain"`
	Health        entity.AccountHealth `json:"health"`
}

// PositionsResponse is the body of GET /positions/:wallet.
type PositionsResponse struct {
	Report    entity.PortfolioReport `json:"report"`
	Breakdown string                 `json:"breakdown"`
}

// CreateReportRequest is the body of POST /reports.
type CreateReportRequest struct {
	WalletAddress  string `json:"walletAddress" binding:"required"`
	Chain          string `json:"chain"`
	Mode           string `json:"mode"`
	UserID         string `json:"userId"`
	ShareToDiscord bool   `json:"shareToDiscord"`
}

// ShareRequest is the body of POST /share/discord.
type ShareRequest struct {
	entity.ReportSummary
	ImageBase64 string `json:"imageBase64"`
}

// ReportHandler serves the report endpoints.
type ReportHandler struct {
	reports   port.ReportService
	publisher Publisher
	registry  port.ChainRegistry
	logger    port.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports port.ReportService, publisher Publisher, registry port.ChainRegistry, l port.Logger) *ReportHandler {
	return &ReportHandler{
		reports:   reports,
		publisher: publisher,
		registry:  registry,
		logger:    l,
	}
}

func statusFor(kind entity.ErrorKind) int {
	switch kind {
	case entity.KindInvalidInput, entity.KindUnsupportedChain:
		return http.StatusBadRequest
	case entity.KindNoPositions:
		return http.StatusNotFound
	case entity.KindRenderFailed, entity.KindNotifyFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *ReportHandler) writeError(c *gin.Context, err error) {
	kind := entity.KindOf(err)
	msg := err.Error()
	if kind == entity.KindInternal {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.JSON(statusFor(kind), ErrorResponse{Error: msg, Kind: kind})
}

func chainParam(c *gin.Context) string {
	if chain := strings.TrimSpace(c.Query("chain")); chain != "" {
		return chain
	}
	return defaultChain
}

func (h *ReportHandler) report(c *gin.Context) (entity.PortfolioReport, bool) {
	mode, err := entity.ParseReportMode(c.Query("mode"))
	if err != nil {
		h.writeError(c, err)
		return entity.PortfolioReport{}, false
	}
	report, err := h.reports.GenerateReport(c.Request.Context(), c.Param("wallet"), chainParam(c), mode)
	if err != nil {
		h.writeError(c, err)
		return entity.PortfolioReport{}, false
	}
	return report, true
}

// ListChains handles GET /api/v1/chains.
func (h *ReportHandler) ListChains(c *gin.Context) {
	chains := lo.Map(h.registry.Chains(), func(ch entity.ChainConfig, _ int) ChainView {
		return ChainView{
			Identifier:  ch.Identifier,
			ChainID:     ch.ChainID,
			Name:        ch.Name,
			PoolAddress: ch.PoolAddress,
			Tokens:      lo.Map(ch.Tokens, func(t entity.TokenDescriptor, _ int) string { return t.Symbol }),
		}
	})
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// GetPositions handles GET /api/v1/positions/:wallet.
func (h *ReportHandler) GetPositions(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, PositionsResponse{Report: report, Breakdown: report.Breakdown()})
}

// GetHealth handles GET /api/v1/positions/:wallet/health.
func (h *ReportHandler) GetHealth(c *gin.Context) {
	wallet := c.Param("wallet")
	chain := chainParam(c)
	health, err := h.reports.GetAccountHealth(c.Request.Context(), wallet, chain)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, HealthResponse{WalletAddress: wallet, Chain: chain, Health: health})
}

// CreateReport handles POST /api/v1/reports.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, &entity.InvalidInputError{Field: "body", Reason: err.Error()})
		return
	}
	mode, err := entity.ParseReportMode(req.Mode)
	if err != nil {
		h.writeError(c, err)
		return
	}
	chain := strings.TrimSpace(req.Chain)
	if chain == "" {
		chain = defaultChain
	}

	result, err := h.publisher.Publish(c.Request.Context(), service.PublishRequest{
		WalletAddress: req.WalletAddress,
		Chain:         chain,
		Mode:          mode,
		UserID:        req.UserID,
		Share:         req.ShareToDiscord,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ShareDiscord handles POST /api/v1/share/discord.
func (h *ReportHandler) ShareDiscord(c *gin.Context) {
	if !h.publisher.NotifierConfigured() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "discord is not configured", Kind: entity.KindConfiguration})
		return
	}
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, &entity.InvalidInputError{Field: "body", Reason: err.Error()})
		return
	}
	if err := entity.ValidateWalletAddress(req.WalletAddress); err != nil {
		h.writeError(c, err)
		return
	}
	var image []byte
	if req.ImageBase64 != "" {
		raw := req.ImageBase64
		if i := strings.Index(raw, ","); strings.HasPrefix(raw, "data:") && i > 0 {
			raw = raw[i+1:]
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			h.writeError(c, &entity.InvalidInputError{Field: "imageBase64", Reason: "not valid base64"})
			return
		}
		image = decoded
	}

	res := h.publisher.Share(c.Request.Context(), req.ReportSummary, image)
	if !res.Success {
		c.JSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExportReport handles GET /api/v1/reports/:wallet/export.
func (h *ReportHandler) ExportReport(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	data, err := export.Bytes(report)
	if err != nil {
		h.writeError(c, fmt.Errorf("export report: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(report)))
	c.Data(http.StatusOK, export.ContentType, data)
}
