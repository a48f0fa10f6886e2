package inventory

import (
	"context"

	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
)

// Repository defines operations for the batch ledger.
// All mutating reads take exclusive row locks: concurrent sales competing
// for the same lot must serialize on the batch row.
type Repository interface {
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)

	// GetForUpdate fetches one batch under an exclusive row lock.
	GetForUpdate(ctx context.Context, batchID id.ID) (*Batch, error)

	// ListInStockForUpdate fetches all non-depleted batches for a product at
	// a branch, oldest first, locking each row. This is the FIFO scan.
	ListInStockForUpdate(ctx context.Context, productID, branchID id.ID) ([]*Batch, error)

	// UpdateQuantities persists remaining_quantity and status after a
	// deduction or restore. Must run inside the owning transaction.
	UpdateQuantities(ctx context.Context, b *Batch) error

	// AvailableQuantity sums remaining stock for a product at a branch
	// (unlocked; used for error messages and availability reads).
	AvailableQuantity(ctx context.Context, productID, branchID id.ID) (types.Quantity, error)

	List(ctx context.Context, filter ListFilter) ([]*Batch, error)
}

// ListFilter for filtering batches.
type ListFilter struct {
	ProductID   *id.ID
	BranchID    *id.ID
	InStockOnly bool
	Limit       int
	Offset      int
}
