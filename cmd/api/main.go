package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arvestapp/arvest-backend/internal/api"
	"github.com/arvestapp/arvest-backend/internal/api/handlers"
	"github.com/arvestapp/arvest-backend/internal/auth"
	"github.com/arvestapp/arvest-backend/internal/clock"
	"github.com/arvestapp/arvest-backend/internal/config"
	"github.com/arvestapp/arvest-backend/internal/db"
	"github.com/arvestapp/arvest-backend/internal/gateway"
	"github.com/arvestapp/arvest-backend/internal/ledger"
	"github.com/arvestapp/arvest-backend/internal/logger"
	"github.com/arvestapp/arvest-backend/internal/metrics"
	"github.com/arvestapp/arvest-backend/internal/middleware"
	"github.com/arvestapp/arvest-backend/internal/notify"
	"github.com/arvestapp/arvest-backend/internal/pending"
	"github.com/arvestapp/arvest-backend/internal/repository/postgres"
	"github.com/arvestapp/arvest-backend/internal/scheduler"
	"github.com/arvestapp/arvest-backend/internal/services"
	"github.com/arvestapp/arvest-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.WorkerCount)
	defer wp.Stop()

	notifier := notify.New(wp, notify.LogSink{}, notify.LogOTPSender{})
	engine := ledger.NewEngine(repos.Ledger, repos.AuditLogs)

	gateways := gateway.NewRegistry(
		gateway.NewPaystack(cfg.PaystackSecretKey),
		gateway.NewFlutterwave(cfg.FlutterwaveSecretKey),
	)

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer,
		cfg.AccessTTL, cfg.RefreshTTL)

	userSvc := services.NewUserService(repos.Users, engine, tm, cfg)
	walletSvc := services.NewWalletService(repos.Ledger, repos.Users, gateways, notifier, cfg)
	pendingSvc := pending.NewService(pending.Config{
		Secret:        []byte(cfg.PendingSecret),
		TTL:           cfg.PendingTTL,
		MinWithdrawal: cfg.MinWithdrawal,
		MinTransfer:   cfg.MinTransfer,
		Currency:      cfg.Currency,
	}, pending.NewRedisStore(rdb), engine, repos.Users, gateways, notifier, clock.Real{})

	sched := scheduler.New(repos.Plans, repos.Users, repos.Cards, repos.Listings,
		gateways, wp, notifier, clock.Real{})
	go sched.Start(ctx, cfg.SchedulerInterval)

	metrics.Init()
	router := api.NewRouter(api.RouterDeps{
		Cfg:     cfg,
		Auth:    handlers.NewAuthHandler(userSvc, tm),
		Wallet:  handlers.NewWalletHandler(walletSvc),
		Pending: handlers.NewPendingHandler(pendingSvc),
		AuthMW:  middleware.NewAuthMiddleware(tm),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
