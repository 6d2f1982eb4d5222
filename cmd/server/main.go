package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/contacorrente/ledger-service/internal/config"
	"github.com/contacorrente/ledger-service/internal/events/kafka"
	"github.com/contacorrente/ledger-service/internal/guard"
	"github.com/contacorrente/ledger-service/internal/interfaces"
	"github.com/contacorrente/ledger-service/internal/ledger"
	"github.com/contacorrente/ledger-service/internal/models"
	"github.com/contacorrente/ledger-service/internal/storage/memory"
	"github.com/contacorrente/ledger-service/internal/storage/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	var store interfaces.LedgerStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			logger.Error("failed to reach database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = postgres.NewLedgerStore(db)
		logger.Info("using postgres store")
	} else {
		store = seedMemoryStore(logger)
	}

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		opts = append(opts, ledger.WithPublisher(publisher, cfg.KafkaTopic))
		logger.Info("notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	srv := &server{
		ledger: ledger.NewLedger(store, opts...),
		guard:  guard.New(store),
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("POST /accounts/{id}/deposit", srv.handleDeposit)
	mux.HandleFunc("POST /accounts/{id}/withdraw", srv.handleWithdraw)
	mux.HandleFunc("POST /accounts/{id}/pay", srv.handlePay)
	mux.HandleFunc("POST /accounts/{id}/transfer", srv.handleTransfer)
	mux.HandleFunc("GET /accounts/{id}/balance", srv.handleBalance)
	mux.HandleFunc("GET /accounts/{id}/statement", srv.handleStatement)

	logger.Info("starting server", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// seedMemoryStore builds the in-memory store used when no database is
// configured. Two demo accounts, one per user, so the service is usable
// out of the box.
func seedMemoryStore(logger *slog.Logger) *memory.LedgerStore {
	store := memory.NewLedgerStore()
	store.CreateAccount(models.Account{ID: 1, UserID: 1, Name: "Conta Demo 1", Balance: decimal.Zero})
	store.CreateAccount(models.Account{ID: 2, UserID: 2, Name: "Conta Demo 2", Balance: decimal.Zero})
	logger.Info("using in-memory store with demo accounts", "accounts", 2)
	return store
}
