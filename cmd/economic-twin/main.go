package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/economic/internal/domain/economic"
	"github.com/erp/economic/internal/infrastructure/config"
	"github.com/erp/economic/internal/infrastructure/logger"
	"github.com/erp/economic/internal/infrastructure/telemetry"
	"github.com/erp/economic/internal/infrastructure/twin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath   string
		fixturesPath string
		port         string
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./config.toml)")
	flag.StringVar(&fixturesPath, "fixtures", "", "YAML fixtures to seed the twin with (overrides twin.fixtures_path)")
	flag.StringVar(&port, "port", "", "Listen port (overrides twin.port)")
	flag.Parse()

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if fixturesPath != "" {
		cfg.Twin.FixturesPath = fixturesPath
	}
	if port != "" {
		cfg.Twin.Port = port
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telCfg := telemetry.FromConfig(cfg.Telemetry)
	if telCfg.ServiceName == cfg.App.Name {
		telCfg.ServiceName = cfg.App.Name + "-twin"
	}
	tp, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	server, err := twin.New(twin.Config{
		Credentials: economic.Credentials{
			AgreementNumber: cfg.Twin.AgreementNumber,
			UserName:        cfg.Twin.UserName,
			Password:        cfg.Twin.Password,
		},
		ServiceName: telCfg.ServiceName,
	}, twin.WithLogger(log))
	if err != nil {
		log.Fatal("Invalid twin configuration", zap.Error(err))
	}

	if cfg.Twin.FixturesPath != "" {
		if err := server.Store().LoadFixtures(cfg.Twin.FixturesPath); err != nil {
			log.Fatal("Failed to load fixtures", zap.String("path", cfg.Twin.FixturesPath), zap.Error(err))
		}
		log.Info("Fixtures loaded", zap.String("path", cfg.Twin.FixturesPath))
	}

	log.Info("Starting e-conomic twin",
		zap.String("port", cfg.Twin.Port),
		zap.Int64("agreement_number", cfg.Twin.AgreementNumber),
		zap.String("rpc", fmt.Sprintf("http://localhost:%s%s", cfg.Twin.Port, twin.PathRPC)),
	)
	if err := server.Run(ctx, ":"+cfg.Twin.Port); err != nil {
		log.Error("Twin stopped", zap.Error(err))
		return
	}
	log.Info("Twin exited gracefully")
}
