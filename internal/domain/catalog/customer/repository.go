package customer

import (
	"context"

	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
)

// Repository defines operations for customers and agents.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)

	// GetForUpdate fetches a customer under an exclusive row lock.
	// Required before any ledger_balance mutation.
	GetForUpdate(ctx context.Context, customerID id.ID) (*Customer, error)

	// UpdateLedgerBalance persists a new cached balance. Must be called
	// inside the same transaction that appended the ledger entry.
	UpdateLedgerBalance(ctx context.Context, customerID id.ID, balance types.Money) error

	List(ctx context.Context, filter ListFilter) ([]*Customer, error)

	CreateAgent(ctx context.Context, a *Agent) error
	GetAgent(ctx context.Context, agentID id.ID) (*Agent, error)
}

// ListFilter for filtering customers.
type ListFilter struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
