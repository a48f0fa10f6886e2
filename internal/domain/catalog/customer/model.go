// Package customer provides the customer/agent catalog.
// Customers carry a running ledger balance maintained by the accounting ledger.
package customer

import (
	"context"
	"time"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
)

// Customer represents a buying party with a running ledger balance.
// Balance = Σ debits − Σ credits: positive means the customer owes us,
// negative means the customer holds a credit.
type Customer struct {
	ID            id.ID       `db:"id" json:"id"`
	Code          string      `db:"code" json:"code"`
	Name          string      `db:"name" json:"name"`
	Phone         *string     `db:"phone" json:"phone,omitempty"`
	Email         *string     `db:"email" json:"email,omitempty"`
	LedgerBalance types.Money `db:"ledger_balance" json:"ledgerBalance"`
	Active        bool        `db:"active" json:"active"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updatedAt"`
}

// NewCustomer creates a customer with required fields.
func NewCustomer(code, name string) *Customer {
	now := time.Now()
	return &Customer{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasCreditCovering reports whether a pre-existing credit fully covers amount.
// A credit shows as a negative balance; coverage requires −balance ≥ amount.
func (c *Customer) HasCreditCovering(amount types.Money) bool {
	return c.LedgerBalance.Neg().Cmp(amount) >= 0
}

// Validate implements basic catalog validation.
func (c *Customer) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("customer name is required").
			WithDetail("field", "name")
	}
	return nil
}

// Agent represents a sales agent earning commission on orders.
type Agent struct {
	ID             id.ID           `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	CommissionRate types.Money     `db:"commission_rate" json:"commissionRate"` // percent
	Active         bool            `db:"active" json:"active"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// NewAgent creates an agent with a commission rate in percent.
func NewAgent(name string, rate types.Money) *Agent {
	return &Agent{
		ID:             id.New(),
		Name:           name,
		CommissionRate: rate,
		Active:         true,
		CreatedAt:      time.Now(),
	}
}
