package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/settleco/usdt-ledger/internal/chain"
	"github.com/settleco/usdt-ledger/internal/config"
	"github.com/settleco/usdt-ledger/internal/handler"
	"github.com/settleco/usdt-ledger/internal/logging"
	"github.com/settleco/usdt-ledger/internal/middleware"
	"github.com/settleco/usdt-ledger/internal/money"
	"github.com/settleco/usdt-ledger/internal/repository"
	"github.com/settleco/usdt-ledger/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("usdt-ledger", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 15*time.Second)
	chainClient, err := chain.Dial(dialCtx, cfg.ChainRPCURL, cfg.TokenContract, cfg.HotWalletKey)
	dialCancel()
	if err != nil {
		slog.Error("failed to connect to chain RPC", "error", err)
		os.Exit(1)
	}
	defer chainClient.Close()

	fee, err := money.ParseToken(cfg.WithdrawalFee)
	if err != nil {
		slog.Error("invalid WITHDRAWAL_FEE", "value", cfg.WithdrawalFee, "error", err)
		os.Exit(1)
	}

	intentTTL := time.Duration(cfg.IntentTTLHours) * time.Hour

	accounts := repository.NewAccountRepository(db)
	txs := repository.NewTransactionRepository(db)
	intents := repository.NewIntentRepository(db, intentTTL)
	rates := repository.NewRateRepository(db)

	accountSvc := service.NewAccountService(accounts, txs)
	balanceSvc := service.NewBalanceService(txs)
	depositSvc := service.NewDepositService(db, intents, txs, chainClient, cfg.DepositAddress, cfg.MinConfirmations)
	withdrawalSvc := service.NewWithdrawalService(db, accounts, txs, txs, chainClient, fee)
	exchangeSvc := service.NewExchangeService(db, accounts, txs, txs, rates)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := service.NewSettleWorker(withdrawalSvc, txs, slog.Default(), time.Duration(cfg.SettlePollIntervalS)*time.Second)
	go worker.Start(workerCtx)

	accountHandler := handler.NewAccountHandler(accountSvc, balanceSvc)
	depositHandler := handler.NewDepositHandler(depositSvc, intentTTL)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalSvc)
	exchangeHandler := handler.NewExchangeHandler(exchangeSvc)
	treasuryHandler := handler.NewTreasuryHandler(chainClient)
	healthHandler := handler.NewHealthHandler(db)

	adminOnly := middleware.AdminKey(cfg.AdminAPIKey)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/accounts", accountHandler.Register)
	mux.HandleFunc("GET /api/v1/accounts/{id}/balance", accountHandler.Balance)
	mux.HandleFunc("GET /api/v1/accounts/{id}/history", accountHandler.History)

	mux.HandleFunc("POST /api/v1/deposits/intent", depositHandler.OpenIntent)
	mux.HandleFunc("GET /api/v1/accounts/{id}/deposit-intent", depositHandler.GetIntent)
	mux.HandleFunc("POST /api/v1/deposits/verify", depositHandler.Verify)

	mux.HandleFunc("POST /api/v1/withdrawals", withdrawalHandler.Create)
	mux.HandleFunc("POST /api/v1/exchanges", exchangeHandler.Create)
	mux.HandleFunc("GET /api/v1/rate", exchangeHandler.Rate)

	mux.Handle("POST /api/v1/admin/withdrawals/{id}/process", adminOnly(http.HandlerFunc(withdrawalHandler.Process)))
	mux.Handle("POST /api/v1/admin/exchanges/{id}/decision", adminOnly(http.HandlerFunc(exchangeHandler.Decide)))
	mux.Handle("PUT /api/v1/admin/rate", adminOnly(http.HandlerFunc(exchangeHandler.SetRate)))
	mux.Handle("GET /api/v1/admin/hot-wallet", adminOnly(http.HandlerFunc(treasuryHandler.HotWallet)))

	var root http.Handler = mux
	root = middleware.Recovery(root)
	root = middleware.Logging(root)
	root = middleware.Tracing(root)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connectDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeS) * time.Second)

	for i := range 30 {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
