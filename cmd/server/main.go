// Package main serves backtests over gRPC and a gin REST API
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/api"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/clickhouse"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/config"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/feed"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/logging"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/strategies"
)

var version = "1.0.0"

func main() {
	var source, arrowFile string
	root := &cobra.Command{
		Use:   "server",
		Short: "Backtest service with gRPC and REST APIs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(source, arrowFile)
		},
	}
	root.Flags().StringVar(&source, "source", "csv", "Bar source: csv, arrow or clickhouse")
	root.Flags().StringVar(&arrowFile, "arrow-file", "", "Arrow IPC file for --source arrow")

	if err := root.Execute(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func serve(source, arrowFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting backtesting service",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
		zap.String("source", source))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, closer, err := feed.OpenHistory(ctx, feed.HistoryConfig{
		Source:     source,
		DataDir:    cfg.Feed.DataDir,
		ArrowFile:  arrowFile,
		ArrowBatch: cfg.Arrow.BatchSize,
		ClickHouse: clickhouse.Config{DSN: cfg.ClickHouse.DSN, Database: cfg.ClickHouse.Database, Table: cfg.ClickHouse.Table},
	}, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	catalog, err := strategies.Catalog(cfg.StrategiesFile)
	if err != nil {
		return err
	}
	sim, err := engine.NewSimulator(cfg.SimConfig(), logger)
	if err != nil {
		return err
	}
	service, err := api.NewService(api.Options{
		Provider:   history,
		Simulator:  sim,
		Strategies: catalog,
		Snapshot:   cfg.Snapshot(version),
		Version:    version,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create backtest service: %w", err)
	}

	grpcServer := api.NewGRPCServer(service)

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           api.NewRouter(service),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			errs <- fmt.Errorf("listen on gRPC port: %w", err)
			return
		}
		logger.Info("Starting gRPC server", zap.Int("port", cfg.Server.GRPCPort))
		errs <- grpcServer.Serve(lis)
	}()
	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errs:
		logger.Error("Server failed", zap.Error(err))
	}

	logger.Info("Shutting down servers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	service.Wait()
	logger.Info("Servers stopped")
	return nil
}
