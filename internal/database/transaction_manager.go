package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
)

// TransactionManager runs units of work atomically
type TransactionManager struct {
	db     *gorm.DB
	logger hclog.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *gorm.DB, logger hclog.Logger) *TransactionManager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &TransactionManager{
		db:     db,
		logger: logger.Named("tx"),
	}
}

// WithTransaction runs fn inside a transaction. The transaction commits when
// fn returns nil and rolls back on an error or panic.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	txID := "tx_" + uuid.NewString()[:8]
	started := time.Now()

	err := tm.db.WithContext(ctx).Transaction(fn)
	if err != nil {
		tm.logger.Debug("rolled back transaction", "id", txID, "duration", time.Since(started), "error", err)
		return fmt.Errorf("transaction failed: %w", err)
	}

	tm.logger.Debug("committed transaction", "id", txID, "duration", time.Since(started))
	return nil
}

// DB returns the non-transactional handle
func (tm *TransactionManager) DB() *gorm.DB {
	return tm.db
}
