package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	CardWidth  = 900
	CardHeight = 600

	margin     = 40
	rowHeight  = 22
	maxRows    = 6
	lineAdjust = 10 // basicfont ascent
)

var (
	colorBackground = color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}
	colorPrimary    = color.RGBA{R: 0x00, G: 0xd4, B: 0xaa, A: 0xff}
	colorProfit     = color.RGBA{R: 0x00, G: 0xff, B: 0x88, A: 0xff}
	colorLoss       = color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 0xff}
	colorText       = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorMuted      = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	colorPanel      = color.RGBA{R: 0x24, G: 0x24, B: 0x24, A: 0xff}
)

// CardRenderer draws 900x600 PnL cards with the embedded bitmap font.
type CardRenderer struct {
	face font.Face
}

// NewCardRenderer returns a renderer ready to use.
func NewCardRenderer() port.CardRenderer {
	return &CardRenderer{face: basicfont.Face7x13}
}

// Render encodes the report as a PNG.
func (r *CardRenderer) Render(report entity.PortfolioReport) ([]byte, error) {
	if report.WalletAddress == "" {
		return nil, &entity.RenderError{Cause: fmt.Errorf("report has no wallet address")}
	}

	img := image.NewRGBA(image.Rect(0, 0, CardWidth, CardHeight))
	fill(img, img.Bounds(), colorBackground)
	fill(img, image.Rect(0, 0, CardWidth, 6), colorPrimary)

	pnlColor := colorProfit
	if report.Position.TotalPnL < 0 {
		pnlColor = colorLoss
	}

	r.text(img, margin, 40, 3, colorPrimary, "AAVE V3 PnL")
	r.text(img, CardWidth-margin-r.width(strings.ToUpper(report.Chain))*2, 48, 2, colorText, strings.ToUpper(report.Chain))
	r.text(img, margin, 96, 1, colorMuted, "Wallet "+entity.ShortAddress(report.WalletAddress)+"  |  "+string(report.Mode))

	r.text(img, margin, 130, 1, colorMuted, "NET WORTH")
	r.text(img, margin, 146, 3, colorText, fmt.Sprintf("$%.2f", report.Position.CurrentNetWorth))

	r.text(img, CardWidth/2, 130, 1, colorMuted, "PnL")
	r.text(img, CardWidth/2, 146, 3, pnlColor, entity.FormatSignedUSD(report.Position.TotalPnL))
	r.text(img, CardWidth/2, 192, 2, pnlColor, entity.FormatSignedPercent(report.Position.PnLPercentage))

	panelTop := 236
	panelBottom := CardHeight - 80
	colWidth := (CardWidth - 3*margin) / 2
	left := image.Rect(margin, panelTop, margin+colWidth, panelBottom)
	right := image.Rect(2*margin+colWidth, panelTop, CardWidth-margin, panelBottom)
	r.positionPanel(img, left, "SUPPLIED", report.Position.Supplied, report.Position.SuppliedTotal())
	r.positionPanel(img, right, "BORROWED", report.Position.Borrowed, report.Position.BorrowedTotal())

	healthColor := colorProfit
	switch report.Health.Status() {
	case entity.HealthCaution, entity.HealthWarning:
		healthColor = color.RGBA{R: 0xff, G: 0xc1, B: 0x07, A: 0xff}
	case entity.HealthLiquidationRisk:
		healthColor = colorLoss
	}
	hf := strings.ReplaceAll(report.Health.FormatHealthFactor(), "∞", "INF")
	r.text(img, margin, CardHeight-56, 2, healthColor, fmt.Sprintf("Health %s  %s", hf, report.Health.Status()))

	ts := report.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")
	r.text(img, CardWidth-margin-r.width(ts), CardHeight-40, 1, colorMuted, ts)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &entity.RenderError{Cause: err}
	}
	return buf.Bytes(), nil
}

func (r *CardRenderer) positionPanel(img *image.RGBA, rect image.Rectangle, title string, positions []entity.TokenPosition, total float64) {
	fill(img, rect, colorPanel)
	x := rect.Min.X + 16
	y := rect.Min.Y + 16
	r.text(img, x, y, 1, colorPrimary, fmt.Sprintf("%s  $%.2f", title, total))
	y += 2 * rowHeight

	if len(positions) == 0 {
		r.text(img, x, y, 1, colorMuted, "none")
		return
	}
	for i, p := range positions {
		if i == maxRows {
			r.text(img, x, y, 1, colorMuted, fmt.Sprintf("+%d more", len(positions)-maxRows))
			return
		}
		r.text(img, x, y, 1, colorText, fmt.Sprintf("%-8s %14.4f", p.Symbol, p.Amount))
		value := fmt.Sprintf("$%.2f", p.CurrentValue)
		r.text(img, rect.Max.X-16-r.width(value), y, 1, colorText, value)
		y += rowHeight
	}
}

func (r *CardRenderer) width(s string) int {
	return font.MeasureString(r.face, s).Ceil()
}

// text draws s with its top-left at (x, y), scaled by an integer factor.
func (r *CardRenderer) text(dst *image.RGBA, x, y, scale int, c color.Color, s string) {
	w := r.width(s)
	h := r.face.Metrics().Height.Ceil()
	if w == 0 || h == 0 {
		return
	}
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(0, lineAdjust+1),
	}
	d.DrawString(s)

	target := image.Rect(x, y, x+w*scale, y+h*scale)
	xdraw.NearestNeighbor.Scale(dst, target, src, src.Bounds(), xdraw.Over, nil)
}

func fill(dst *image.RGBA, rect image.Rectangle, c color.Color) {
	xdraw.Draw(dst, rect, image.NewUniform(c), image.Point{}, xdraw.Src)
}
