package inventory

import (
	"context"
	"fmt"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
)

// Deduction records a single draw from a batch. One sale line may produce
// several deductions when it spans partial lots.
type Deduction struct {
	Batch    *Batch
	Quantity types.Quantity
}

// ManualAssignment is an operator-specified draw request.
type ManualAssignment struct {
	BatchID  id.ID
	Quantity types.Quantity
}

// Allocator implements the two allocation strategies against the batch
// ledger. Both run inside the caller's transaction and lock every batch
// they touch; any violation aborts the whole sale.
type Allocator struct {
	batches Repository
}

// NewAllocator creates an allocator over the batch ledger.
func NewAllocator(batches Repository) *Allocator {
	return &Allocator{batches: batches}
}

// AllocateFIFO deducts the required quantity from the oldest in-stock
// batches first, one assignment per batch touched. Fails the sale when the
// branch cannot cover the full quantity.
func (a *Allocator) AllocateFIFO(ctx context.Context, productID, branchID id.ID, required types.Quantity, productName string) ([]Deduction, error) {
	if !required.IsPositive() {
		return nil, apperror.NewValidation("required quantity must be positive").
			WithDetail("product", productName)
	}

	batches, err := a.batches.ListInStockForUpdate(ctx, productID, branchID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	remaining := required
	deductions := make([]Deduction, 0, 1)

	for _, batch := range batches {
		if !remaining.IsPositive() {
			break
		}
		take := remaining
		if take.Cmp(batch.RemainingQuantity) > 0 {
			take = batch.RemainingQuantity
		}
		if !take.IsPositive() {
			continue
		}
		if err := batch.Deduct(take); err != nil {
			return nil, err
		}
		if err := a.batches.UpdateQuantities(ctx, batch); err != nil {
			return nil, fmt.Errorf("update batch %s: %w", batch.ID, err)
		}
		deductions = append(deductions, Deduction{Batch: batch, Quantity: take})
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		available := required.Sub(remaining)
		return nil, apperror.NewInsufficientStock(productName, required.String(), available.String()).
			WithDetail("product_id", productID).
			WithDetail("branch_id", branchID)
	}

	return deductions, nil
}

// AllocateManual deducts operator-specified quantities from explicit batches.
// The assignment total must equal the required quantity (the recipe-converted
// raw quantity for manufactured items) within the assignment tolerance, and
// every batch must belong to the expected underlying product and the
// order's branch.
func (a *Allocator) AllocateManual(ctx context.Context, assignments []ManualAssignment, expectedProductID, branchID id.ID, required types.Quantity, productName string) ([]Deduction, error) {
	if len(assignments) == 0 {
		return nil, apperror.NewValidation("item assignments are required").
			WithDetail("product", productName)
	}

	total := types.Zero()
	for _, asg := range assignments {
		if !asg.Quantity.IsPositive() {
			return nil, apperror.NewValidation("assignment quantity must be positive").
				WithDetail("batch_id", asg.BatchID)
		}
		total = total.Add(asg.Quantity)
	}

	if !types.WithinTolerance(total, required) {
		return nil, apperror.NewBusinessRule(
			apperror.CodeAssignmentMismatch,
			fmt.Sprintf("assignments for %s total %s but %s is required", productName, total.String(), required.String()),
		).WithDetail("assigned", total.String()).
			WithDetail("required", required.String())
	}

	deductions := make([]Deduction, 0, len(assignments))
	for _, asg := range assignments {
		batch, err := a.batches.GetForUpdate(ctx, asg.BatchID)
		if err != nil {
			return nil, err
		}
		if batch.ProductID != expectedProductID {
			return nil, apperror.NewBusinessRule(
				apperror.CodeAssignmentMismatch,
				fmt.Sprintf("batch %s does not belong to the expected product for %s", batch.BatchNumber, productName),
			).WithDetail("batch_id", batch.ID).
				WithDetail("expected_product_id", expectedProductID)
		}
		if batch.BranchID != branchID {
			return nil, apperror.NewBusinessRule(
				apperror.CodeAssignmentMismatch,
				fmt.Sprintf("batch %s belongs to another branch", batch.BatchNumber),
			).WithDetail("batch_id", batch.ID).
				WithDetail("branch_id", branchID)
		}
		if asg.Quantity.Cmp(batch.RemainingQuantity) > 0 {
			return nil, apperror.NewInsufficientStock(
				productName,
				asg.Quantity.String(),
				batch.RemainingQuantity.String(),
			).WithDetail("batch_id", batch.ID)
		}
		if err := batch.Deduct(asg.Quantity); err != nil {
			return nil, err
		}
		if err := a.batches.UpdateQuantities(ctx, batch); err != nil {
			return nil, fmt.Errorf("update batch %s: %w", batch.ID, err)
		}
		deductions = append(deductions, Deduction{Batch: batch, Quantity: asg.Quantity})
	}

	return deductions, nil
}

// Restore re-credits a previously deducted quantity to a batch under lock.
// Used by the cancellation flow.
func (a *Allocator) Restore(ctx context.Context, batchID id.ID, quantity types.Quantity) error {
	batch, err := a.batches.GetForUpdate(ctx, batchID)
	if err != nil {
		return err
	}
	batch.Restore(quantity)
	if err := a.batches.UpdateQuantities(ctx, batch); err != nil {
		return fmt.Errorf("restore batch %s: %w", batch.ID, err)
	}
	return nil
}
