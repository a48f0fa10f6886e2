// Package invoiceno provides race-free invoice number generation.
// Numbers have the form INV-YYYYMMDD-NNNN where NNNN is a 4-digit
// zero-padded sequence that resets daily and is per-day monotonic.
package invoiceno

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"craftpos/internal/infrastructure/storage/postgres"
)

// Prefix is the invoice number prefix.
const Prefix = "INV"

// Generator produces the next invoice number for a point in time.
type Generator interface {
	NextNumber(ctx context.Context, at time.Time) (string, error)
}

// Querier is the minimal database surface the generator needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service generates numbers from the sales order table.
//
// Concurrency: the generator takes a per-day advisory lock for the duration
// of the surrounding transaction, then reads the day's last invoice under a
// row lock. Two concurrent sale creations on the same day therefore
// serialize on the day key and can never compute the same sequence.
type Service struct {
	// staticQuerier is used when constructed with New (tests, tooling).
	staticQuerier Querier

	// txm provides the in-transaction querier per request.
	txm *postgres.TxManager
}

// New creates a generator with a static querier. Use for testing.
func New(querier Querier) *Service {
	return &Service{staticQuerier: querier}
}

// NewFromTxManager creates a generator that uses the caller's transaction.
// NextNumber must be called inside a transaction: the advisory lock is
// transaction-scoped and released on commit or rollback.
func NewFromTxManager(txm *postgres.TxManager) *Service {
	return &Service{txm: txm}
}

func (s *Service) getQuerier(ctx context.Context) Querier {
	if s.txm != nil {
		return s.txm.GetQuerier(ctx)
	}
	return s.staticQuerier
}

// NextNumber returns the next unused number for at's calendar day.
func (s *Service) NextNumber(ctx context.Context, at time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("invoice number generator is not initialized")
	}

	querier := s.getQuerier(ctx)
	day := at.Format("20060102")

	// Serialize all generators working on the same day.
	var locked bool
	err := querier.QueryRow(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1)) IS NULL OR true",
		"invoice_"+day,
	).Scan(&locked)
	if err != nil {
		return "", fmt.Errorf("acquire day lock: %w", err)
	}

	// Read the day's last number under a row lock to close the
	// read-then-insert race with a writer that committed mid-flight.
	// Length sorts before the string: sequences past 9999 widen the
	// suffix, and a bare lexicographic sort would rank 9999 above 10000.
	var last string
	err = querier.QueryRow(ctx, `
		SELECT invoice_number FROM sales_orders
		WHERE invoice_number LIKE $1
		ORDER BY length(invoice_number) DESC, invoice_number DESC
		LIMIT 1
		FOR UPDATE
	`, Prefix+"-"+day+"-%").Scan(&last)

	seq := int64(0)
	switch {
	case err == nil:
		seq = ParseSequence(last)
		if seq < 0 {
			return "", fmt.Errorf("malformed invoice number in store: %s", last)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// first invoice of the day
	default:
		return "", fmt.Errorf("read last invoice: %w", err)
	}

	return Format(day, seq+1), nil
}

// Format renders an invoice number from a day key and sequence.
func Format(day string, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", Prefix, day, seq)
}

// ParseSequence extracts the numeric sequence from a formatted number.
// Returns -1 if parsing fails.
func ParseSequence(formatted string) int64 {
	parts := strings.Split(formatted, "-")
	if len(parts) != 3 {
		return -1
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return -1
	}
	return seq
}
