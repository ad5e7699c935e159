package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"
	"aave_pnl/internal/pkg/metrics"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notify result reasons.
const (
	ReasonNotConfigured      = "not_configured"
	ReasonInvalidToken       = "invalid_token"
	ReasonMissingPermissions = "missing_permissions"
	ReasonChannelNotFound    = "channel_not_found"
	ReasonRateLimited        = "rate_limited"
	ReasonTransportError     = "transport_error"
	ReasonUnexpectedStatus   = "unexpected_status"
)

const (
	profitColor = 0x00d4aa
	lossColor   = 0xff4444
)

var usdPrinter = message.NewPrinter(language.English)

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
	Timestamp string `json:"timestamp"`
	Image     *struct {
		URL string `json:"url"`
	} `json:"image,omitempty"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

// discordClientImpl implements port.Notifier over the Discord bot REST API.
type discordClientImpl struct {
	client    *fasthttp.Client
	baseURL   string
	botToken  string
	channelID string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDiscordClient creates a Discord notifier. It reports not_configured when credentials are missing.
func NewDiscordClient(cfg configloader.DiscordConfig, logger *zap.Logger) port.Notifier {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &discordClientImpl{
		client:    &fasthttp.Client{},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		botToken:  cfg.BotToken,
		channelID: cfg.ChannelID,
		timeout:   timeout,
		logger:    logger.Named("DiscordClient"),
	}
}

func (c *discordClientImpl) IsConfigured() bool {
	return c.botToken != "" && c.channelID != ""
}

func formatUSD(v float64) string {
	return usdPrinter.Sprintf("$%.2f", v)
}

func buildEmbed(summary entity.ReportSummary, now time.Time) discordEmbed {
	isProfit := summary.TotalPnL >= 0
	emoji, color, sign := "📈", profitColor, "+"
	if !isProfit {
		emoji, color, sign = "📉", lossColor, ""
	}
	pnl := usdPrinter.Sprintf("%s$%.2f (%s%.2f%%)", sign, summary.TotalPnL, sign, summary.PnLPercentage)
	if !isProfit {
		pnl = usdPrinter.Sprintf("-$%.2f (%.2f%%)", -summary.TotalPnL, summary.PnLPercentage)
	}

	embed := discordEmbed{
		Title:       fmt.Sprintf("%s Aave V3 Portfolio - %s", emoji, strings.ToUpper(summary.Chain)),
		Description: fmt.Sprintf("Wallet: `%s`", entity.ShortAddress(summary.WalletAddress)),
		Color:       color,
		Fields: []discordEmbedField{
			{Name: "💰 Net Worth", Value: formatUSD(summary.CurrentNetWorth), Inline: true},
			{Name: emoji + " PnL", Value: pnl, Inline: true},
			{Name: "💎 Supplied", Value: formatUSD(summary.SuppliedTotal), Inline: true},
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if summary.BorrowedTotal > 0 {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "🔴 Borrowed", Value: formatUSD(summary.BorrowedTotal), Inline: true})
	}
	embed.Footer.Text = "Aave PnL Generator"
	return embed
}

// CardFilename is the attachment name used for a wallet's card.
func CardFilename(walletAddress string) string {
	prefix := walletAddress
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("aave-pnl-%s.png", prefix)
}

func multipartBody(msg discordMessage, filename string, image []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("payload_json", string(payload)); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[0]"; filename="%s"`, filename))
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// Notify posts the summary embed, attaching image when it is non-empty.
func (c *discordClientImpl) Notify(ctx context.Context, summary entity.ReportSummary, image []byte) entity.NotifyResult {
	result := c.notify(ctx, summary, image)
	outcome := result.Reason
	if result.Success {
		outcome = "success"
	}
	metrics.Notifications.WithLabelValues(outcome).Inc()
	return result
}

func (c *discordClientImpl) notify(ctx context.Context, summary entity.ReportSummary, image []byte) entity.NotifyResult {
	if !c.IsConfigured() {
		return entity.NotifyResult{Reason: ReasonNotConfigured, Message: "Discord bot not configured. Set DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID."}
	}

	msg := discordMessage{Embeds: []discordEmbed{buildEmbed(summary, time.Now())}}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(fmt.Sprintf("%s/channels/%s/messages", c.baseURL, c.channelID))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Bot "+c.botToken)

	if len(image) > 0 {
		filename := CardFilename(summary.WalletAddress)
		msg.Embeds[0].Image = &struct {
			URL string `json:"url"`
		}{URL: "attachment://" + filename}
		body, contentType, err := multipartBody(msg, filename, image)
		if err != nil {
			return entity.NotifyResult{Reason: ReasonTransportError, Message: err.Error()}
		}
		req.Header.SetContentType(contentType)
		req.SetBody(body)
	} else {
		body, err := json.Marshal(msg)
		if err != nil {
			return entity.NotifyResult{Reason: ReasonTransportError, Message: err.Error()}
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := do(ctx, c.client, req, resp, c.timeout); err != nil {
		c.logger.Error("Failed to post Discord message", zap.Error(err))
		return entity.NotifyResult{Reason: ReasonTransportError, Message: err.Error()}
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		c.logger.Info("Posted PnL card to Discord", zap.String("wallet", entity.ShortAddress(summary.WalletAddress)), zap.Bool("withImage", len(image) > 0))
		return entity.NotifyResult{Success: true}
	}

	c.logger.Warn("Discord API rejected message", zap.Int("statusCode", status), zap.ByteString("responseBody", resp.Body()))
	switch status {
	case fasthttp.StatusUnauthorized:
		return entity.NotifyResult{Reason: ReasonInvalidToken, Message: "Invalid bot token. Please check your DISCORD_BOT_TOKEN."}
	case fasthttp.StatusForbidden:
		return entity.NotifyResult{Reason: ReasonMissingPermissions, Message: "Bot lacks permissions. Ensure it has Send Messages and Attach Files permissions."}
	case fasthttp.StatusNotFound:
		return entity.NotifyResult{Reason: ReasonChannelNotFound, Message: "Channel not found. Please check your DISCORD_CHANNEL_ID."}
	case fasthttp.StatusTooManyRequests:
		return entity.NotifyResult{Reason: ReasonRateLimited, Message: "Discord rate limit reached, try again later."}
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	detail := fmt.Sprintf("Discord returned status %d", status)
	if err := json.Unmarshal(resp.Body(), &apiErr); err == nil && apiErr.Message != "" {
		detail = apiErr.Message
	}
	return entity.NotifyResult{Reason: ReasonUnexpectedStatus, Message: detail}
}
