package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"aave_pnl/internal/app/bootstrap"
	"aave_pnl/internal/app/port"
	"aave_pnl/internal/app/service"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"
	"aave_pnl/internal/infrastructure/export"
	"aave_pnl/internal/infrastructure/walletloader"
	"aave_pnl/internal/pkg/logger"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := newApp()

	if err := app.RunContext(ctx, os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", entity.KindOf(err), err)
		os.Exit(1)
	}
}

// newApp declares the command line. Action runs the batch.
func newApp() *cli.App {
	return &cli.App{
		Name:  "pnlreport",
		Usage: "generate Aave V3 PnL reports and cards for one or more wallets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config/config.yml", EnvVars: []string{"CONFIG_PATH"}, Usage: "YAML configuration file"},
			&cli.StringFlag{Name: "chain", Value: "bsc", Usage: "chain identifier or numeric chain id"},
			&cli.StringFlag{Name: "mode", Value: string(entity.ReportModeLive), Usage: "live or historical"},
			&cli.StringSliceFlag{Name: "wallet", Aliases: []string{"w"}, Usage: "wallet address (repeatable)"},
			&cli.StringFlag{Name: "wallets-file", Usage: `wallet file, one "<address> [chain] [label]" per line`},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "out", Usage: "directory for PNG cards"},
			&cli.BoolFlag{Name: "xlsx", Usage: "also write an XLSX workbook per wallet"},
			&cli.BoolFlag{Name: "share", Usage: "post each report to Discord"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	configloader.LoadDotEnv(".env.local", ".env")
	cfg, err := configloader.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", entity.KindConfiguration, err), 2)
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logrus.SetLevel(level)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Logging.Level, true)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize logger: %v", err), 1)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger.InitZapSlog(zapLogger)

	mode, err := entity.ParseReportMode(c.String("mode"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", entity.KindOf(err), err), 2)
	}

	wallets, err := collectWallets(c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", entity.KindInvalidInput, err), 2)
	}

	app, err := bootstrap.Build(c.Context, cfg, zapLogger, bootstrap.Options{DisableStore: true})
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", entity.KindOf(err), err), 2)
	}
	defer app.Close()

	for _, w := range wallets {
		if _, err := app.Registry.GetChainConfig(w.Chain); err != nil {
			return cli.Exit(fmt.Sprintf("%s: %v", entity.KindOf(err), err), 2)
		}
	}
	if c.Bool("share") && !app.Publisher.NotifierConfigured() {
		return cli.Exit(fmt.Sprintf("%s: --share needs discord.enabled with DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID", entity.KindConfiguration), 2)
	}

	outDir := c.String("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return cli.Exit(fmt.Sprintf("create output directory: %v", err), 1)
	}

	failed := 0
	for _, w := range wallets {
		if err := reportWallet(c, app.Reports, app.Publisher, w, mode, outDir); err != nil {
			var noPositions *entity.NoPositionsFoundError
			if errors.As(err, &noPositions) {
				logger.Warn("No Aave positions", "wallet", w.Address, "chain", w.Chain, "label", w.Label)
				continue
			}
			failed++
			logger.Error("Report failed", "wallet", w.Address, "chain", w.Chain, "kind", entity.KindOf(err), "error", err)
		}
	}

	logger.Info("Batch finished", "wallets", len(wallets), "failed", failed)
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d reports failed", failed, len(wallets)), 1)
	}
	return nil
}

// collectWallets merges --wallet flags with the wallet file. Entries without a chain get --chain.
// The configured wallet file is used only when neither flag names a wallet.
func collectWallets(c *cli.Context, cfg *configloader.Config) ([]entity.Wallet, error) {
	file := c.String("wallets-file")
	if file == "" && len(c.StringSlice("wallet")) == 0 {
		file = cfg.Data.WalletsFile
	}
	var src port.WalletSource
	if file != "" {
		src = walletloader.NewFileSource(file, logger.Warn)
	}
	return walletloader.Collect(c.StringSlice("wallet"), src, c.String("chain"))
}

func reportWallet(c *cli.Context, reports *service.ReportServiceImpl, publisher *service.PublishService, w entity.Wallet, mode entity.ReportMode, outDir string) error {
	report, err := reports.GenerateReport(c.Context, w.Address, w.Chain, mode)
	if err != nil {
		return err
	}
	fmt.Println(report.Breakdown())

	png, err := publisher.RenderCard(report)
	if err != nil {
		return err
	}
	cardPath := filepath.Join(outDir, service.CardName(report))
	if err := os.WriteFile(cardPath, png, 0o644); err != nil {
		return &entity.PersistenceError{Op: "card file", Cause: err}
	}
	logger.Info("Card written", "wallet", w.Address, "path", cardPath)

	if c.Bool("xlsx") {
		data, err := export.Bytes(report)
		if err != nil {
			return err
		}
		xlsxPath := filepath.Join(outDir, export.Filename(report))
		if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
			return &entity.PersistenceError{Op: "xlsx file", Cause: err}
		}
		logger.Info("Workbook written", "wallet", w.Address, "path", xlsxPath)
	}

	if c.Bool("share") {
		res := publisher.Share(c.Context, report.Summary(), png)
		if !res.Success {
			logger.Warn("Discord share failed", "wallet", w.Address, "reason", res.Reason, "message", res.Message)
		}
	}
	return nil
}
