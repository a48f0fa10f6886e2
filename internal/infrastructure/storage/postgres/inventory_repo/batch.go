// Package inventory_repo provides the PostgreSQL implementation of the
// batch ledger. FIFO correctness depends on the lock discipline here:
// every mutating read takes FOR UPDATE so competing sales serialize on
// the batch rows.
package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
	"craftpos/internal/domain/inventory"
	"craftpos/internal/infrastructure/storage/postgres"
)

const batchTable = "inventory_batches"

// BatchRepo implements inventory.Repository.
type BatchRepo struct {
	txm        *postgres.TxManager
	selectCols []string
}

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(txm *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[inventory.Batch](),
	}
}

func (r *BatchRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BatchRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(batchTable)
}

// Create inserts a batch.
func (r *BatchRepo) Create(ctx context.Context, b *inventory.Batch) error {
	q := r.builder().
		Insert(batchTable).
		SetMap(postgres.StructToMap(b))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetByID retrieves a batch by id.
func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*inventory.Batch, error) {
	return r.getOne(ctx, batchID, false)
}

// GetForUpdate retrieves a batch under an exclusive row lock.
func (r *BatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*inventory.Batch, error) {
	return r.getOne(ctx, batchID, true)
}

func (r *BatchRepo) getOne(ctx context.Context, batchID id.ID, forUpdate bool) (*inventory.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": batchID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b inventory.Batch
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// ListInStockForUpdate fetches all in-stock batches for a product at a
// branch, oldest first, locking every row. created_at is the FIFO key.
func (r *BatchRepo) ListInStockForUpdate(ctx context.Context, productID, branchID id.ID) ([]*inventory.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"branch_id": branchID}).
		Where(squirrel.Eq{"status": inventory.BatchInStock}).
		OrderBy("created_at ASC, id ASC").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*inventory.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list in-stock batches: %w", err)
	}
	return items, nil
}

// UpdateQuantities persists remaining_quantity and status.
func (r *BatchRepo) UpdateQuantities(ctx context.Context, b *inventory.Batch) error {
	q := r.builder().
		Update(batchTable).
		Set("remaining_quantity", b.RemainingQuantity).
		Set("status", b.Status).
		Set("updated_at", b.UpdatedAt).
		Where(squirrel.Eq{"id": b.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update batch quantities: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", b.ID.String())
	}
	return nil
}

// AvailableQuantity sums remaining stock for a product at a branch.
func (r *BatchRepo) AvailableQuantity(ctx context.Context, productID, branchID id.ID) (types.Quantity, error) {
	q := r.builder().
		Select("COALESCE(SUM(remaining_quantity), 0)").
		From(batchTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"branch_id": branchID}).
		Where(squirrel.Eq{"status": inventory.BatchInStock})

	sql, args, err := q.ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var total types.Quantity
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.Zero(), fmt.Errorf("sum available quantity: %w", err)
	}
	return total, nil
}

// List retrieves batches with filtering.
func (r *BatchRepo) List(ctx context.Context, filter inventory.ListFilter) ([]*inventory.Batch, error) {
	q := r.baseSelect()

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.BranchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
	}
	if filter.InStockOnly {
		q = q.Where(squirrel.Eq{"status": inventory.BatchInStock})
	}

	q = q.OrderBy("created_at ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*inventory.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return items, nil
}
