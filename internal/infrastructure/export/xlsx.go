package export

import (
	"bytes"
	"fmt"
	"io"

	"aave_pnl/internal/domain/entity"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "Summary"
	positionsSheet = "Positions"

	// ContentType is the XLSX MIME type.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var positionHeader = []any{"Side", "Symbol", "Address", "Amount", "Initial Price", "Current Price", "Initial Value", "Current Value"}

// Filename is the download name for a report workbook.
func Filename(report entity.PortfolioReport) string {
	addr := report.WalletAddress
	if len(addr) > 10 {
		addr = addr[:10]
	}
	return fmt.Sprintf("aave-pnl-%s-%s-%s.xlsx", report.Chain, addr, report.GeneratedAt.UTC().Format("20060102"))
}

// WriteXLSX writes a Summary sheet and a Positions sheet.
func WriteXLSX(w io.Writer, report entity.PortfolioReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(positionsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	summary := [][]any{
		{"Wallet", report.WalletAddress},
		{"Chain", report.Chain},
		{"Mode", string(report.Mode)},
		{"Generated At", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"Initial Net Worth (USD)", report.Position.InitialNetWorth},
		{"Current Net Worth (USD)", report.Position.CurrentNetWorth},
		{"Total PnL (USD)", report.Position.TotalPnL},
		{"PnL %", report.Position.PnLPercentage},
		{"Supplied (USD)", report.Position.SuppliedTotal()},
		{"Borrowed (USD)", report.Position.BorrowedTotal()},
		{"Health Factor", report.Health.FormatHealthFactor()},
		{"Health Status", string(report.Health.Status())},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 26); err != nil {
		return fmt.Errorf("size summary: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 46); err != nil {
		return fmt.Errorf("size summary: %w", err)
	}

	if err := f.SetSheetRow(positionsSheet, "A1", &positionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(positionsSheet, "A1", "H1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	row := 2
	writeSide := func(side entity.PositionSide, positions []entity.TokenPosition) error {
		for _, p := range positions {
			values := []any{string(side), p.Symbol, p.Address, p.Amount, p.InitialPrice, p.CurrentPrice, p.InitialValue, p.CurrentValue}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(positionsSheet, cell, &values); err != nil {
				return fmt.Errorf("write position row %d: %w", row, err)
			}
			row++
		}
		return nil
	}
	if err := writeSide(entity.SideSupplied, report.Position.Supplied); err != nil {
		return err
	}
	if err := writeSide(entity.SideBorrowed, report.Position.Borrowed); err != nil {
		return err
	}
	if err := f.SetColWidth(positionsSheet, "C", "C", 44); err != nil {
		return fmt.Errorf("size positions: %w", err)
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Bytes renders the workbook into memory.
func Bytes(report entity.PortfolioReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
