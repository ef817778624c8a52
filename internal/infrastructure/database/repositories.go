package database

import (
	"github.com/payflowhq/payflow/internal/adapter/repository"
	domainRepo "github.com/payflowhq/payflow/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Ledger domainRepo.LedgerStore
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Ledger: repository.NewLedgerRepository(db, logger),
	}
}
