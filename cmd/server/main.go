package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/lending-engine/internal/app"
	"github.com/segyhp/lending-engine/internal/handler"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/pkg/logger"
)

func main() {
	ctx := context.Background()

	infra, err := app.Setup(ctx)
	if err != nil {
		logger.Fatal(err, "message", "failed to initialize")
	}
	defer infra.Close()
	defer logger.Sync()

	cfg := infra.Config

	notifier, waitNotifications, err := infra.Notifier()
	if err != nil {
		logger.Fatal(err, "message", "failed to initialize notifier")
	}

	rules := service.RulesFromConfig(cfg)
	applicationService := service.NewLoanApplicationService(infra.Repos, infra.Locker(), notifier, rules, nil)
	repaymentService := service.NewRepaymentService(infra.Repos, notifier, rules, nil)
	productService := service.NewProductService(infra.Repos, nil)

	v := handler.NewValidator()
	router := handler.NewRouter(handler.Handlers{
		Applications: handler.NewLoanApplicationHandler(applicationService, v),
		Repayments:   handler.NewRepaymentHandler(repaymentService, v),
		Products:     handler.NewProductHandler(productService, v),
		Health:       handler.NewHealthHandler(infra.Pingers(), cfg.GetHealthTimeout()),
	}, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "addr", server.Addr, "env", cfg.Server.Env, "store", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "message", "server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	waitNotifications()

	logger.Info("server exited")
}
