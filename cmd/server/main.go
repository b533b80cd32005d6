package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/MonkyMars/gecho"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/resto-orders/internal/adapter/handler"
	"github.com/rl1809/resto-orders/internal/adapter/storage"
	"github.com/rl1809/resto-orders/internal/config"
	"github.com/rl1809/resto-orders/internal/core/service"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Get()
	logger := config.NewLogger(cfg, true)
	accessLogger := config.NewLogger(cfg, false)

	if envErr != nil {
		logger.Warn("No .env file found, proceeding with system environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", gecho.Field("error", err))
	}
	loc, _ := cfg.ReportLocation()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", gecho.Field("error", err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error("Failed to close storage", gecho.Field("error", err))
		}
		logger.Info("Connections closed")
	}()

	codes := service.NewCodeGenerator(stores.Orders, stores.Cache, logger, cfg.Orders.CodeAttempts)
	orderService := service.NewOrderService(stores.Orders, stores.Catalog, stores.Cache, codes, logger)
	orderService.SetIdempotencyTTL(cfg.Orders.IdempotencyTTL)
	catalogService := service.NewCatalogService(stores.Catalog, logger)
	reportService := service.NewReportService(stores.Orders, stores.Catalog, logger, loc)

	auth, err := handler.NewAdminAuth(cfg.Auth, logger)
	if err != nil {
		logger.Fatal("Failed to initialize admin auth", gecho.Field("error", err))
	}

	httpHandler := handler.NewHTTPHandler(orderService, catalogService, reportService, auth, logger, loc)
	httpServer := &http.Server{
		Addr:           cfg.Server.HTTPAddr,
		Handler:        httpHandler.Router(cfg.Cors, accessLogger),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.LoggingInterceptor(logger)))
	handler.RegisterOrderStationServer(grpcServer, handler.NewGRPCHandler(orderService))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(fmt.Sprintf("HTTP server (%s) listening on %s", cfg.Server.AppName, cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		logger.Info(fmt.Sprintf("gRPC server listening on %s", cfg.Server.GRPCAddr))
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		logger.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", gecho.Field("error", err))
	}
}
