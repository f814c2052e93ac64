package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/economic/internal/domain/economic"
	"github.com/erp/economic/internal/infrastructure/config"
	"github.com/erp/economic/internal/infrastructure/logger"
	"github.com/erp/economic/internal/infrastructure/rpc"
	"github.com/erp/economic/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		logLevel   string
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./config.toml)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(execute(ctx, cfg, args))
}

func execute(ctx context.Context, cfg *config.Config, args []string) int {
	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	telCfg := telemetry.FromConfig(cfg.Telemetry)
	tp, err := telemetry.NewTracerProvider(ctx, telCfg, bootLog)
	if err != nil {
		bootLog.Error("Failed to initialize tracing", zap.Error(err))
		return 1
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(telCfg), bootLog)
	if err != nil {
		bootLog.Error("Failed to initialize metrics", zap.Error(err))
		return 1
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfigFrom(telCfg), bootLog)
	if err != nil {
		bootLog.Error("Failed to initialize log export", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
		_ = mp.Shutdown(shutdownCtx)
		_ = lp.Shutdown(shutdownCtx)
	}()

	log, err := logger.New(logCfg, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    telCfg.ServiceName,
		LoggerProvider: lp,
		Level:          logger.ParseLevel(cfg.Log.Level),
	}))
	if err != nil {
		bootLog.Error("Failed to initialize logger", zap.Error(err))
		return 1
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	metrics, err := telemetry.NewCallMetrics(mp.Meter(telemetry.MeterName), rpc.Outcome)
	if err != nil {
		log.Error("Failed to register call metrics", zap.Error(err))
		return 1
	}
	client, err := rpc.NewClient(rpc.FromConfig(cfg.API), rpc.WithLogger(log), rpc.WithMetrics(metrics))
	if err != nil {
		log.Error("Invalid API configuration", zap.Error(err))
		return 1
	}
	session, err := economic.NewSession(economic.Credentials{
		AgreementNumber: cfg.API.AgreementNumber,
		UserName:        cfg.API.UserName,
		Password:        cfg.API.Password,
	}, client, economic.WithLogger(log))
	if err != nil {
		log.Error("Invalid API credentials", zap.Error(err))
		return 1
	}

	ctx, _ = logger.WithAgreement(ctx, log, session.AgreementNumber())
	if err := run(ctx, session, log, args, os.Stdout); err != nil {
		log.Error("Command failed", zap.String("command", args[0]), zap.Error(err))
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: economic [flags] <command> [args]

Commands:
  debtors                             List all debtors
  debtor <number>                     Show one debtor
  next-debtor-number                  Print the next free debtor number
  cash-books                          List all cash books
  contacts <name>                     Find debtor contacts by name
  creditor-entries <invoice-number>   Show creditor entries posted for an invoice

Flags:`)
	flag.PrintDefaults()
}
