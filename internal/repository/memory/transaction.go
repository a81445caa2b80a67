package memory

import (
	"context"

	"loom/internal/domain/repositories"
)

// TxManager satisfies repositories.TransactionManager for the in-memory
// store. The store's mutex already serializes individual operations, so fn
// simply runs without transactional scope.
type TxManager struct{}

// NewTxManager creates a pass-through transaction manager.
func NewTxManager() repositories.TransactionManager {
	return &TxManager{}
}

func (TxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
