package ledger

import (
	"context"
	"fmt"

	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
	"craftpos/internal/domain/catalog/customer"
	"craftpos/pkg/logger"
)

// Service posts entries and keeps the party's cached balance in sync.
// Post must always run inside the transaction of the order mutation that
// caused it: an entry without a durable order-side cause is an integrity
// violation, and vice versa for reversals.
type Service struct {
	entries   Repository
	customers customer.Repository
}

// NewService creates a ledger service.
func NewService(entries Repository, customers customer.Repository) *Service {
	return &Service{entries: entries, customers: customers}
}

// Post appends an entry and atomically applies its delta to the party's
// running balance. The customer row is locked before the balance is read.
// Only customers carry a cached balance column; supplier entries append
// as-is and their balance is derived from the entries on read.
func (s *Service) Post(ctx context.Context, e *Entry) error {
	if err := e.Validate(ctx); err != nil {
		return err
	}

	if e.PartyType == PartyCustomer {
		cust, err := s.customers.GetForUpdate(ctx, e.PartyID)
		if err != nil {
			return err
		}
		newBalance := cust.LedgerBalance.Add(e.Delta())
		if err := s.customers.UpdateLedgerBalance(ctx, cust.ID, newBalance); err != nil {
			return fmt.Errorf("update ledger balance: %w", err)
		}
	}

	if err := s.entries.Append(ctx, e); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	logger.Debug(ctx, "ledger entry posted",
		"party_id", e.PartyID,
		"type", e.TransactionType,
		"debit", e.DebitAmount.String(),
		"credit", e.CreditAmount.String(),
	)
	return nil
}

// Statement lists a party's entries, newest first.
func (s *Service) Statement(ctx context.Context, partyID id.ID, partyType PartyType, limit, offset int) ([]*Entry, error) {
	return s.entries.ListByParty(ctx, partyID, partyType, limit, offset)
}

// Balance returns the party's current balance. Customers read the cached
// column Post maintains; suppliers have no account row, so their balance
// is summed from the entries.
func (s *Service) Balance(ctx context.Context, partyID id.ID, partyType PartyType) (types.Money, error) {
	if partyType == PartyCustomer {
		cust, err := s.customers.GetByID(ctx, partyID)
		if err != nil {
			return types.Zero(), err
		}
		return cust.LedgerBalance, nil
	}
	return s.entries.SumByParty(ctx, partyID, partyType)
}
