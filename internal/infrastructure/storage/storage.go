package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"

	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// New opens the report store selected by cfg.Driver. Driver "none" returns a nil store.
func New(ctx context.Context, cfg configloader.StorageConfig, logger *zap.Logger) (port.ReportStore, error) {
	switch cfg.Driver {
	case "none":
		logger.Info("Report persistence disabled")
		return nil, nil
	case "postgres":
		store, err := OpenPostgres(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite", "":
		store, err := OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, &entity.ConfigurationError{Field: "storage.driver", Reason: fmt.Sprintf("unknown driver %q", cfg.Driver)}
	}
}

func migrationFS(root embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(root, dir)
	if err != nil {
		panic(fmt.Sprintf("embedded migrations %s: %v", dir, err))
	}
	return sub
}

// upMigrations lists *.up.sql files in apply order.
func upMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

type positionRow struct {
	side entity.PositionSide
	pos  entity.TokenPosition
}

func positionRows(report entity.PortfolioReport) []positionRow {
	rows := make([]positionRow, 0, len(report.Position.Supplied)+len(report.Position.Borrowed))
	for _, p := range report.Position.Supplied {
		rows = append(rows, positionRow{side: entity.SideSupplied, pos: p})
	}
	for _, p := range report.Position.Borrowed {
		rows = append(rows, positionRow{side: entity.SideBorrowed, pos: p})
	}
	return rows
}

// healthFactorValue is nil for the no-debt case, which neither driver stores as a number.
func healthFactorValue(h entity.AccountHealth) *float64 {
	if math.IsInf(h.HealthFactor, 0) || math.IsNaN(h.HealthFactor) {
		return nil
	}
	v := h.HealthFactor
	return &v
}
