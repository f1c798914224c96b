package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	billing "cloud.google.com/go/billing/apiv1"
	budgets "cloud.google.com/go/billing/budgets/apiv1"

	"gblaquiere.dev/billing-disabler/handler"
	"gblaquiere.dev/billing-disabler/internal/billingApi"
	"gblaquiere.dev/billing-disabler/internal/budgetApi"
	"gblaquiere.dev/billing-disabler/internal/cloudlog"
	"gblaquiere.dev/billing-disabler/internal/config"
	"gblaquiere.dev/billing-disabler/internal/disabler"
	"gblaquiere.dev/billing-disabler/internal/metrics"
	"gblaquiere.dev/billing-disabler/internal/retry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config.Load: %v\n", err)
	}

	logger, err := cloudlog.New(ctx, cfg.LogName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("cloudlog.New: %v\n", err)
	}
	defer logger.Close()

	budgetClient, err := budgets.NewBudgetClient(ctx)
	if err != nil {
		log.Fatalf("budgets.NewBudgetClient: %v\n", err)
	}
	defer budgetClient.Close()

	billingClient, err := billing.NewCloudBillingClient(ctx)
	if err != nil {
		log.Fatalf("billing.NewCloudBillingClient: %v\n", err)
	}
	defer billingClient.Close()

	policy := retry.Default()
	if cfg.RetryMaxAttempts > 0 {
		policy.MaxAttempts = cfg.RetryMaxAttempts
	}

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder, err = metrics.New(ctx)
		if err != nil {
			logger.Warningf("metrics disabled: %v", err)
		}
	}
	defer recorder.Close()

	engine := disabler.New(
		budgetApi.New(budgetClient, billingClient, policy, cfg.AllowUnscopedBudget),
		billingApi.New(billingClient, policy),
		logger,
		cfg.SimulateDeactivation,
		cfg.MaxParallelProjects,
	)

	if cfg.SimulateDeactivation {
		logger.Infof("simulation mode on, no project will be detached from its billing account")
	}

	h := &handler.BudgetAlert{Engine: engine, Metrics: recorder, Log: logger}
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.Router(h),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("listening on :%s", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("srv.ListenAndServe: %v\n", err)
	}
}
