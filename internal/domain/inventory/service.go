package inventory

import (
	"context"
	"fmt"

	"craftpos/internal/core/id"
	"craftpos/internal/core/security"
	"craftpos/internal/core/tx"
	"craftpos/internal/core/types"
	"craftpos/pkg/logger"
)

// Service provides stock intake and availability reads over the batch ledger.
type Service struct {
	batches Repository
	txm     tx.Manager
}

// NewService creates an inventory service.
func NewService(batches Repository, txm tx.Manager) *Service {
	return &Service{batches: batches, txm: txm}
}

// Intake registers a new stock lot at a branch.
func (s *Service) Intake(ctx context.Context, scope *security.AccessScope, b *Batch) error {
	if err := scope.RequirePermission(security.PermissionManageStock); err != nil {
		return err
	}
	if err := scope.RequireBranch(b.BranchID.String()); err != nil {
		return err
	}
	if err := b.Validate(ctx); err != nil {
		return err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.batches.Create(ctx, b); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "batch received",
		"batch_id", b.ID,
		"product_id", b.ProductID,
		"quantity", b.InitialQuantity.String(),
	)
	return nil
}

// Availability sums remaining stock for a product at a branch.
func (s *Service) Availability(ctx context.Context, productID, branchID id.ID) (types.Quantity, error) {
	return s.batches.AvailableQuantity(ctx, productID, branchID)
}

// List lists batches.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Batch, error) {
	return s.batches.List(ctx, filter)
}
