package database

import (
	"github.com/payflowhq/payflow/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	// Custom enum types must exist before auto-migrate references them.
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.Account{},
		&model.Payment{},
		&model.Transaction{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomConstraints(db); err != nil {
		logger.Error("Failed to create custom constraints", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func createExtensions(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error
}

// createCustomTypes creates custom PostgreSQL enum types
func createCustomTypes(db *gorm.DB) error {
	var exists bool

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'payment_status')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE payment_status AS ENUM ('pending', 'processing', 'completed', 'failed', 'refunded')`).Error; err != nil {
			return err
		}
	}

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'transaction_type')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE transaction_type AS ENUM ('credit', 'debit')`).Error; err != nil {
			return err
		}
	}

	return nil
}

// createCustomConstraints adds the constraints GORM does not express: ledger
// entries are positive, and balances never go negative.
func createCustomConstraints(db *gorm.DB) error {
	constraints := []struct {
		table string
		name  string
		check string
	}{
		{"transactions", "chk_transactions_amount_positive", "amount > 0"},
		{"accounts", "chk_accounts_balance_non_negative", "balance >= 0"},
		{"payments", "chk_payments_amount_positive", "amount > 0"},
	}

	for _, c := range constraints {
		var exists bool
		db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name).Scan(&exists)
		if exists {
			continue
		}
		sql := "ALTER TABLE " + c.table + " ADD CONSTRAINT " + c.name + " CHECK (" + c.check + ")"
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}

	return nil
}
