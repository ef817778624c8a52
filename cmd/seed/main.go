package main

import (
	"context"
	"log"

	"github.com/payflowhq/payflow/internal/config"
	"github.com/payflowhq/payflow/internal/domain/model"
	"github.com/payflowhq/payflow/internal/infrastructure/database"
	"github.com/payflowhq/payflow/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Seeds a pair of demo accounts so the API can be exercised immediately
// after a fresh migration. Existing accounts are left untouched.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db, zapLogger)

	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db, zapLogger)
	ctx := context.Background()

	accounts := []model.Account{
		{
			Name:    "Demo User",
			Email:   "demo@payflow.dev",
			Balance: decimal.NewFromInt(1000),
		},
		{
			Name:    "Jane Smith",
			Email:   "jane@payflow.dev",
			Balance: decimal.NewFromInt(500),
		},
	}

	for i := range accounts {
		if err := repos.Ledger.CreateAccount(ctx, &accounts[i]); err != nil {
			zapLogger.Warn("Skipping account",
				zap.String("email", accounts[i].Email),
				zap.Error(err))
			continue
		}
		zapLogger.Info("Seeded account",
			zap.String("account_id", accounts[i].ID.String()),
			zap.String("email", accounts[i].Email),
			zap.String("balance", accounts[i].Balance.StringFixed(2)))
	}
}
