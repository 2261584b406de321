package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	accountrepo "github.com/ubudget/service-ledger-go/internal/account/repo"
	ledgerrepo "github.com/ubudget/service-ledger-go/internal/ledger/repo"
	obligationrepo "github.com/ubudget/service-ledger-go/internal/obligation/repo"
	reminderrepo "github.com/ubudget/service-ledger-go/internal/reminder/repo"
	"github.com/ubudget/service-ledger-go/internal/router"
	userrepo "github.com/ubudget/service-ledger-go/internal/user/repo"
	"github.com/ubudget/service-ledger-go/pkg/database"
	"github.com/ubudget/service-ledger-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-ledger-go")

	cfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	// wrap with sqlx for convenience in repos/services
	db := sqlx.NewDb(sqlDB, "postgres")
	defer db.Close()

	// idempotent schema setup; order follows the foreign keys
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()
	if err := ensureSchema(setupCtx, db); err != nil {
		sugar.Fatalf("schema setup: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	handler := router.RegisterRoutes(sugar, db)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		sugar.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

func ensureSchema(ctx context.Context, db *sqlx.DB) error {
	if err := userrepo.NewUserRepo(db).EnsureTable(ctx); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	if err := userrepo.NewSessionRepo(db).EnsureTable(ctx); err != nil {
		return fmt.Errorf("refresh sessions: %w", err)
	}
	if err := accountrepo.NewAccountRepo(db).EnsureTable(ctx); err != nil {
		return fmt.Errorf("accounts: %w", err)
	}
	if err := ledgerrepo.NewSQLStore(db).EnsureTables(ctx); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := obligationrepo.NewObligationRepo(db).EnsureTable(ctx); err != nil {
		return fmt.Errorf("obligations: %w", err)
	}
	if err := reminderrepo.NewReminderRepo(db).EnsureTable(ctx); err != nil {
		return fmt.Errorf("reminders: %w", err)
	}
	return nil
}
