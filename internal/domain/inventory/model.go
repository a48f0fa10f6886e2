// Package inventory provides the batch ledger: dated stock lots per product
// and branch, consumed oldest-first by default, plus the allocation
// strategies that draw from them.
package inventory

import (
	"context"
	"time"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
)

// BatchStatus is the lifecycle state of a stock lot.
type BatchStatus string

const (
	BatchInStock  BatchStatus = "in_stock"
	BatchDepleted BatchStatus = "depleted"
)

// Batch is a dated quantity of stock for one product at one branch.
// CreatedAt is the FIFO ordering key.
//
// Invariant: 0 ≤ RemainingQuantity ≤ InitialQuantity, and
// Status == depleted iff RemainingQuantity is zero.
type Batch struct {
	ID                id.ID          `db:"id" json:"id"`
	ProductID         id.ID          `db:"product_id" json:"productId"`
	BranchID          id.ID          `db:"branch_id" json:"branchId"`
	BatchNumber       string         `db:"batch_number" json:"batchNumber"`
	InitialQuantity   types.Quantity `db:"initial_quantity" json:"initialQuantity"`
	RemainingQuantity types.Quantity `db:"remaining_quantity" json:"remainingQuantity"`
	Status            BatchStatus    `db:"status" json:"status"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

// NewBatch creates a full batch for a product at a branch.
func NewBatch(productID, branchID id.ID, batchNumber string, quantity types.Quantity) *Batch {
	now := time.Now()
	return &Batch{
		ID:                id.New(),
		ProductID:         productID,
		BranchID:          branchID,
		BatchNumber:       batchNumber,
		InitialQuantity:   quantity,
		RemainingQuantity: quantity,
		Status:            BatchInStock,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Validate checks batch invariants on intake.
func (b *Batch) Validate(ctx context.Context) error {
	if id.IsNil(b.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if id.IsNil(b.BranchID) {
		return apperror.NewValidation("branch is required").
			WithDetail("field", "branchId")
	}
	if !b.InitialQuantity.IsPositive() {
		return apperror.NewValidation("initial quantity must be positive").
			WithDetail("field", "initialQuantity")
	}
	return nil
}

// Deduct removes quantity from the batch, flipping it to depleted at zero.
// The caller must hold the batch's row lock.
func (b *Batch) Deduct(quantity types.Quantity) error {
	if quantity.Cmp(b.RemainingQuantity) > 0 {
		return apperror.NewInsufficientStock(
			b.ProductID.String(),
			quantity.String(),
			b.RemainingQuantity.String(),
		).WithDetail("batch_id", b.ID)
	}
	b.RemainingQuantity = b.RemainingQuantity.Sub(quantity)
	if !b.RemainingQuantity.IsPositive() {
		b.RemainingQuantity = types.Zero()
		b.Status = BatchDepleted
	}
	b.UpdatedAt = time.Now()
	return nil
}

// Restore re-credits quantity to the batch during reversal,
// flipping depleted back to in_stock when quantity becomes positive.
func (b *Batch) Restore(quantity types.Quantity) {
	b.RemainingQuantity = b.RemainingQuantity.Add(quantity)
	if b.RemainingQuantity.IsPositive() {
		b.Status = BatchInStock
	}
	b.UpdatedAt = time.Now()
}
