// Package sales_repo provides the PostgreSQL implementation of the order
// graph: orders, items, batch assignments, and agent commissions.
package sales_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/domain/sales"
	"craftpos/internal/infrastructure/storage/postgres"
)

const (
	orderTable      = "sales_orders"
	itemTable       = "sales_order_items"
	assignmentTable = "sales_item_assignments"
	commissionTable = "agent_commissions"
)

// OrderRepo implements sales.Repository.
type OrderRepo struct {
	txm            *postgres.TxManager
	orderCols      []string
	itemCols       []string
	assignmentCols []string
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txm:            txm,
		orderCols:      postgres.ExtractDBColumns[sales.Order](),
		itemCols:       postgres.ExtractDBColumns[sales.Item](),
		assignmentCols: postgres.ExtractDBColumns[sales.Assignment](),
	}
}

func (r *OrderRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *OrderRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.orderCols...).From(orderTable)
}

// Create inserts the order row.
func (r *OrderRepo) Create(ctx context.Context, o *sales.Order) error {
	q := r.builder().
		Insert(orderTable).
		SetMap(postgres.StructToMap(o))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("order", "invoice_number", o.InvoiceNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by id.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*sales.Order, error) {
	return r.getOne(ctx, orderID, false)
}

// GetForUpdate retrieves an order under an exclusive row lock.
func (r *OrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*sales.Order, error) {
	return r.getOne(ctx, orderID, true)
}

func (r *OrderRepo) getOne(ctx context.Context, orderID id.ID, forUpdate bool) (*sales.Order, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": orderID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var o sales.Order
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// Update persists the mutable order fields.
func (r *OrderRepo) Update(ctx context.Context, o *sales.Order) error {
	data := postgres.StructToMap(o)
	delete(data, "id")
	delete(data, "created_at")

	q := r.builder().
		Update(orderTable).
		SetMap(data).
		Where(squirrel.Eq{"id": o.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("order", o.ID.String())
	}
	return nil
}

// SaveItems inserts the order's items.
func (r *OrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []sales.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.builder().Insert(itemTable).Columns(r.itemCols...)
	for i := range items {
		data := postgres.StructToMap(&items[i])
		row := make([]any, 0, len(r.itemCols))
		for _, col := range r.itemCols {
			row = append(row, data[col])
		}
		q = q.Values(row...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

// GetItems loads the order's items in insertion order.
func (r *OrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]sales.Item, error) {
	q := r.builder().
		Select(r.itemCols...).
		From(itemTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []sales.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	return items, nil
}

// SaveAssignments inserts the batch assignments of one item.
func (r *OrderRepo) SaveAssignments(ctx context.Context, itemID id.ID, assignments []sales.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	q := r.builder().Insert(assignmentTable).Columns(r.assignmentCols...)
	for i := range assignments {
		data := postgres.StructToMap(&assignments[i])
		row := make([]any, 0, len(r.assignmentCols))
		for _, col := range r.assignmentCols {
			row = append(row, data[col])
		}
		q = q.Values(row...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert assignments: %w", err)
	}
	return nil
}

// GetAssignmentsByOrder loads every assignment of an order's items.
func (r *OrderRepo) GetAssignmentsByOrder(ctx context.Context, orderID id.ID) ([]sales.Assignment, error) {
	cols := make([]string, 0, len(r.assignmentCols))
	for _, col := range r.assignmentCols {
		cols = append(cols, "a."+col)
	}

	q := r.builder().
		Select(cols...).
		From(assignmentTable + " a").
		Join(itemTable + " i ON i.id = a.item_id").
		Where(squirrel.Eq{"i.order_id": orderID}).
		OrderBy("a.created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var assignments []sales.Assignment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &assignments, sql, args...); err != nil {
		return nil, fmt.Errorf("get assignments: %w", err)
	}
	return assignments, nil
}

// DeleteAssignmentsByOrder removes every assignment of an order.
func (r *OrderRepo) DeleteAssignmentsByOrder(ctx context.Context, orderID id.ID) error {
	sql := fmt.Sprintf(`
		DELETE FROM %s a
		USING %s i
		WHERE a.item_id = i.id AND i.order_id = $1
	`, assignmentTable, itemTable)

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, orderID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	return nil
}

// DeleteItemsByOrder removes the order's items.
func (r *OrderRepo) DeleteItemsByOrder(ctx context.Context, orderID id.ID) error {
	q := r.builder().
		Delete(itemTable).
		Where(squirrel.Eq{"order_id": orderID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

// Delete removes the order row.
func (r *OrderRepo) Delete(ctx context.Context, orderID id.ID) error {
	q := r.builder().
		Delete(orderTable).
		Where(squirrel.Eq{"id": orderID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("order", orderID.String())
	}
	return nil
}

// CreateCommission inserts a commission row.
func (r *OrderRepo) CreateCommission(ctx context.Context, c *sales.Commission) error {
	q := r.builder().
		Insert(commissionTable).
		SetMap(postgres.StructToMap(c))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert commission: %w", err)
	}
	return nil
}

// DeleteCommissionByOrder removes an order's commission rows.
func (r *OrderRepo) DeleteCommissionByOrder(ctx context.Context, orderID id.ID) error {
	q := r.builder().
		Delete(commissionTable).
		Where(squirrel.Eq{"order_id": orderID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete commission: %w", err)
	}
	return nil
}

// List retrieves orders with filtering, newest first.
func (r *OrderRepo) List(ctx context.Context, filter sales.ListFilter) ([]*sales.Order, error) {
	q := r.baseSelect()

	if filter.BranchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.OrderType != nil {
		q = q.Where(squirrel.Eq{"order_type": *filter.OrderType})
	}
	if filter.ProductionStatus != nil {
		q = q.Where(squirrel.Eq{"production_status": *filter.ProductionStatus})
	}
	if filter.DiscountStatus != nil {
		q = q.Where(squirrel.Eq{"discount_status": *filter.DiscountStatus})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.DateTo})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"invoice_number": "%" + filter.Search + "%"})
	}

	q = q.OrderBy("created_at DESC")
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

	var orders []*sales.Order
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
