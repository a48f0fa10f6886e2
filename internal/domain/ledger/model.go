// Package ledger provides the party accounting ledger: immutable
// debit/credit entries feeding each party's running balance.
package ledger

import (
	"context"
	"time"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
)

// PartyType identifies which catalog the party reference points into.
type PartyType string

const (
	PartyCustomer PartyType = "customer"
	PartySupplier PartyType = "supplier"
)

// TransactionType classifies an entry's business cause.
type TransactionType string

const (
	TransactionInvoice    TransactionType = "INVOICE"
	TransactionPayment    TransactionType = "PAYMENT"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

// Entry is an immutable accounting record against a party.
// Debits increase the amount owed, credits decrease it.
type Entry struct {
	ID              id.ID           `db:"id" json:"id"`
	PartyID         id.ID           `db:"party_id" json:"partyId"`
	PartyType       PartyType       `db:"party_type" json:"partyType"`
	TransactionType TransactionType `db:"transaction_type" json:"transactionType"`
	DebitAmount     types.Money     `db:"debit_amount" json:"debitAmount"`
	CreditAmount    types.Money     `db:"credit_amount" json:"creditAmount"`
	BranchID        id.ID           `db:"branch_id" json:"branchId"`
	Description     string          `db:"description" json:"description"`
	CreatedBy       string          `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// NewDebit creates a debit entry (party owes more).
func NewDebit(partyID id.ID, partyType PartyType, txType TransactionType, amount types.Money, branchID id.ID, description string) *Entry {
	return &Entry{
		ID:              id.New(),
		PartyID:         partyID,
		PartyType:       partyType,
		TransactionType: txType,
		DebitAmount:     amount,
		CreditAmount:    types.Zero(),
		BranchID:        branchID,
		Description:     description,
		CreatedAt:       time.Now(),
	}
}

// NewCredit creates a credit entry (party owes less).
func NewCredit(partyID id.ID, partyType PartyType, txType TransactionType, amount types.Money, branchID id.ID, description string) *Entry {
	return &Entry{
		ID:              id.New(),
		PartyID:         partyID,
		PartyType:       partyType,
		TransactionType: txType,
		DebitAmount:     types.Zero(),
		CreditAmount:    amount,
		BranchID:        branchID,
		Description:     description,
		CreatedAt:       time.Now(),
	}
}

// Delta returns the balance effect of this entry (debit − credit).
func (e *Entry) Delta() types.Money {
	return e.DebitAmount.Sub(e.CreditAmount)
}

// Validate checks entry invariants.
func (e *Entry) Validate(ctx context.Context) error {
	if id.IsNil(e.PartyID) {
		return apperror.NewValidation("party is required").
			WithDetail("field", "partyId")
	}
	if e.DebitAmount.IsNegative() || e.CreditAmount.IsNegative() {
		return apperror.NewValidation("ledger amounts cannot be negative")
	}
	if e.DebitAmount.IsZero() && e.CreditAmount.IsZero() {
		return apperror.NewValidation("ledger entry must carry a debit or a credit")
	}
	return nil
}

// Repository defines storage operations for ledger entries.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByParty(ctx context.Context, partyID id.ID, partyType PartyType, limit, offset int) ([]*Entry, error)
	SumByParty(ctx context.Context, partyID id.ID, partyType PartyType) (types.Money, error)
}
