package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"aave_pnl/internal/domain/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists reports in a local sqlite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps :memory: on a single connection
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;", "PRAGMA foreign_keys=ON;"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if err := runSQLiteMigrations(ctx, db, migrationFS(sqliteMigrations, "migrations/sqlite")); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger = logger.Named("SQLiteStore")
	logger.Info("Report store ready", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

func runSQLiteMigrations(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT    PRIMARY KEY,
			applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	files, err := upMigrations(fsys)
	if err != nil {
		return err
	}
	for _, file := range files {
		var n int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE filename = ?`, file).Scan(&n); err != nil {
			return fmt.Errorf("checking migration %s: %w", file, err)
		}
		if n > 0 {
			continue
		}
		stmt, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", file, err)
		}
		if err := applySQLiteMigration(ctx, db, file, string(stmt)); err != nil {
			return err
		}
	}
	return nil
}

// applySQLiteMigration runs one file and records it in the same transaction.
func applySQLiteMigration(ctx context.Context, db *sql.DB, file, stmt string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration %s: %w", file, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("executing migration %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES (?)`, file); err != nil {
		return fmt.Errorf("recording migration %s: %w", file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s: %w", file, err)
	}
	return nil
}

// SaveReport writes the report and its positions in one transaction.
func (s *SQLiteStore) SaveReport(ctx context.Context, userID string, report entity.PortfolioReport, imageRef string) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", &entity.PersistenceError{Op: "begin", Cause: err}
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO pnl_reports (id, user_id, wallet_address, chain, mode, initial_net_worth, current_net_worth,
		                          total_pnl, pnl_percentage, health_factor, image_url, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, report.WalletAddress, report.Chain, string(report.Mode),
		report.Position.InitialNetWorth, report.Position.CurrentNetWorth,
		report.Position.TotalPnL, report.Position.PnLPercentage,
		healthFactorValue(report.Health), imageRef, report.GeneratedAt.UTC().Unix())
	if err != nil {
		return "", &entity.PersistenceError{Op: "insert report", Cause: err}
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO positions (report_id, side, symbol, token_address, amount, initial_price, current_price, initial_value, current_value)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", &entity.PersistenceError{Op: "prepare positions", Cause: err}
	}
	defer insert.Close()
	for _, row := range positionRows(report) {
		if _, err := insert.ExecContext(ctx, id, string(row.side), row.pos.Symbol, row.pos.Address, row.pos.Amount,
			row.pos.InitialPrice, row.pos.CurrentPrice, row.pos.InitialValue, row.pos.CurrentValue); err != nil {
			return "", &entity.PersistenceError{Op: "insert positions", Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", &entity.PersistenceError{Op: "commit", Cause: err}
	}
	s.logger.Debug("Saved report", zap.String("id", id), zap.String("wallet", report.WalletAddress))
	return id, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("Failed to close sqlite", zap.Error(err))
	}
}
