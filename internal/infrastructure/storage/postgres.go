package storage

import (
	"context"
	"fmt"
	"io/fs"

	"aave_pnl/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore persists reports with pgx.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects, pings and migrates.
func OpenPostgres(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := RunPostgresMigrations(ctx, pool, migrationFS(postgresMigrations, "migrations/postgres")); err != nil {
		pool.Close()
		return nil, err
	}
	logger = logger.Named("PostgresStore")
	logger.Info("Report store ready")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// RunPostgresMigrations applies all .up.sql files from fsys once, tracking them in schema_migrations.
func RunPostgresMigrations(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT        PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scanning applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	files, err := upMigrations(fsys)
	if err != nil {
		return err
	}
	for _, file := range files {
		if done[file] {
			continue
		}
		sql, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", file, err)
		}
		if err := applyPostgresMigration(ctx, pool, file, string(sql)); err != nil {
			return err
		}
	}
	return nil
}

// applyPostgresMigration runs one file and records it in the same transaction.
func applyPostgresMigration(ctx context.Context, pool *pgxpool.Pool, file, stmt string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning migration %s: %w", file, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("executing migration %s: %w", file, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, file); err != nil {
		return fmt.Errorf("recording migration %s: %w", file, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing migration %s: %w", file, err)
	}
	return nil
}

// SaveReport writes the report and its positions in one transaction.
func (s *PostgresStore) SaveReport(ctx context.Context, userID string, report entity.PortfolioReport, imageRef string) (string, error) {
	id := uuid.NewString()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", &entity.PersistenceError{Op: "begin", Cause: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO pnl_reports (id, user_id, wallet_address, chain, mode, initial_net_worth, current_net_worth,
		                          total_pnl, pnl_percentage, health_factor, image_url, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, userID, report.WalletAddress, report.Chain, string(report.Mode),
		report.Position.InitialNetWorth, report.Position.CurrentNetWorth,
		report.Position.TotalPnL, report.Position.PnLPercentage,
		healthFactorValue(report.Health), imageRef, report.GeneratedAt.UTC())
	if err != nil {
		return "", &entity.PersistenceError{Op: "insert report", Cause: err}
	}

	batch := &pgx.Batch{}
	for _, row := range positionRows(report) {
		batch.Queue(
			`INSERT INTO positions (report_id, side, symbol, token_address, amount, initial_price, current_price, initial_value, current_value)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, string(row.side), row.pos.Symbol, row.pos.Address, row.pos.Amount,
			row.pos.InitialPrice, row.pos.CurrentPrice, row.pos.InitialValue, row.pos.CurrentValue)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return "", &entity.PersistenceError{Op: "insert positions", Cause: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", &entity.PersistenceError{Op: "commit", Cause: err}
	}
	s.logger.Debug("Saved report", zap.String("id", id), zap.String("wallet", report.WalletAddress))
	return id, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
