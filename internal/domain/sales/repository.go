package sales

import (
	"context"
	"time"

	"craftpos/internal/core/id"
)

// Repository defines storage operations for the order graph.
// An order exclusively owns its items; each item exclusively owns its
// assignments. Reversal deletes assignments before items before the order
// explicitly rather than relying on storage-engine cascades.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// GetForUpdate fetches the order under an exclusive row lock so two
	// concurrent status transitions or cancellations serialize.
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	Update(ctx context.Context, o *Order) error

	SaveItems(ctx context.Context, orderID id.ID, items []Item) error
	GetItems(ctx context.Context, orderID id.ID) ([]Item, error)

	SaveAssignments(ctx context.Context, itemID id.ID, assignments []Assignment) error
	GetAssignmentsByOrder(ctx context.Context, orderID id.ID) ([]Assignment, error)

	DeleteAssignmentsByOrder(ctx context.Context, orderID id.ID) error
	DeleteItemsByOrder(ctx context.Context, orderID id.ID) error
	Delete(ctx context.Context, orderID id.ID) error

	CreateCommission(ctx context.Context, c *Commission) error
	DeleteCommissionByOrder(ctx context.Context, orderID id.ID) error

	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}

// ListFilter for filtering orders.
type ListFilter struct {
	BranchID         *id.ID
	CustomerID       *id.ID
	OrderType        *OrderType
	ProductionStatus *ProductionStatus
	DiscountStatus   *DiscountStatus
	DateFrom         *time.Time
	DateTo           *time.Time
	Search           string
	Limit            int
	Offset           int
}
