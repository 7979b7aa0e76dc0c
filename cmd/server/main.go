package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/app"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, false); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront API")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()
	storefront, err := app.New(ctx, cfg, true)
	if err != nil {
		logger.Fatal("Failed to start storefront", zap.Error(err))
	}
	defer storefront.Close()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if storefront.Worker != nil {
		go func() {
			if err := storefront.Worker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
				logger.Error("Stock worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	services := api.Services{
		Catalog:  storefront.Catalog,
		Carts:    storefront.Carts,
		Checkout: storefront.Checkout,
		Orders:   storefront.Orders,
	}
	if storefront.Stock != nil {
		services.Stock = storefront.Stock
	}

	handler := api.NewHandler(services, cfg.Business.AdminToken)
	for name, check := range storefront.ReadinessChecks() {
		handler.AddReadinessCheck(name, check)
	}

	router := gin.New()
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if storefront.Worker != nil {
		if err := storefront.Worker.Stop(); err != nil {
			logger.Warn("Error stopping stock worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
