package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"vaultpay/internal/config"
	httpx "vaultpay/internal/http"
	"vaultpay/internal/http/handlers"
	stripeprovider "vaultpay/internal/provider/stripe"
	"vaultpay/internal/services/reconcile"
	"vaultpay/internal/store/postgres"
	redisstore "vaultpay/internal/store/redis"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init DB
	pool := postgres.MustOpen(ctx, cfg.DB.DSN)
	defer pool.Close()

	events := postgres.NewEventRepository(pool)
	assignments := postgres.NewAssignmentRepository(pool)
	automations := postgres.NewAutomationRepository(pool)
	clients := postgres.NewClientRepository(pool)
	transactions := postgres.NewTransactionRepository(pool)
	users := postgres.NewUserRepository(pool)
	notifications := postgres.NewNotificationRepository(pool)
	uow := postgres.NewUnitOfWork(pool)

	// Redis duplicate guard (optional; nil when REDIS_ADDR is unset)
	deduper := redisstore.NewDeduper(cfg.Redis.Addr)
	defer deduper.Close()

	// Stripe
	stripeClient := stripeprovider.New(cfg.Stripe, cfg.App.BaseURL)

	// Start reconciliation worker
	notifier := reconcile.NewNotifier(notifications, users)
	processor := reconcile.NewProcessor(uow, events, notifier)
	worker := reconcile.NewWorker(events, processor, 0, 0)
	go worker.Run(ctx)

	// Router
	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:   cfg,
		Webhooks: handlers.NewWebhookHandler(cfg.Stripe, stripeprovider.DefaultVerifier{}, deduper, events),
		Checkout: handlers.NewCheckoutHandler(stripeClient, automations, clients, assignments),
		Data:     handlers.NewDataHandler(transactions, events, notifications),
		Admin:    handlers.NewAdminHandler(reconcile.NewReplayService(events), stripeClient, automations),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Msgf("VaultPay API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}
