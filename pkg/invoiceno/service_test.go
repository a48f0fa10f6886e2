package invoiceno

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRow struct {
	boolVal bool
	strVal  string
	err     error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) == 0 {
		return nil
	}
	switch ptr := dest[0].(type) {
	case *bool:
		*ptr = m.boolVal
	case *string:
		*ptr = m.strVal
	}
	return nil
}

// mockQuerier answers the advisory-lock query with true and the
// last-invoice query with a configured value.
type mockQuerier struct {
	lastInvoice string
	lastErr     error
	lockCalls   int
	readCalls   int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if strings.Contains(sql, "pg_advisory_xact_lock") {
		m.lockCalls++
		return &mockRow{boolVal: true}
	}
	m.readCalls++
	if m.lastErr != nil {
		return &mockRow{err: m.lastErr}
	}
	return &mockRow{strVal: m.lastInvoice}
}

// storeQuerier mimics the table: it answers the last-invoice query by
// applying the query's own ordering clauses to a stored set of numbers.
type storeQuerier struct {
	numbers []string
}

func (m *storeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if strings.Contains(sql, "pg_advisory_xact_lock") {
		return &mockRow{boolVal: true}
	}
	if len(m.numbers) == 0 {
		return &mockRow{err: pgx.ErrNoRows}
	}
	sorted := append([]string(nil), m.numbers...)
	byLength := strings.Contains(sql, "length(invoice_number)")
	sort.Slice(sorted, func(i, j int) bool {
		if byLength && len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] > sorted[j]
	})
	return &mockRow{strVal: sorted[0]}
}

func TestNextNumber_FirstOfDay(t *testing.T) {
	q := &mockQuerier{lastErr: pgx.ErrNoRows}
	svc := New(q)

	at := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	num, err := svc.NextNumber(context.Background(), at)
	require.NoError(t, err)

	assert.Equal(t, "INV-20260315-0001", num)
	assert.Equal(t, 1, q.lockCalls)
	assert.Equal(t, 1, q.readCalls)
}

func TestNextNumber_Increments(t *testing.T) {
	q := &mockQuerier{lastInvoice: "INV-20260315-0041"}
	svc := New(q)

	at := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	num, err := svc.NextNumber(context.Background(), at)
	require.NoError(t, err)
	assert.Equal(t, "INV-20260315-0042", num)
}

func TestNextNumber_PastFourDigits(t *testing.T) {
	q := &mockQuerier{lastInvoice: "INV-20260315-9999"}
	svc := New(q)

	num, err := svc.NextNumber(context.Background(), time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	// Sequence keeps counting; padding just stops mattering.
	assert.Equal(t, "INV-20260315-10000", num)
}

func TestNextNumber_KeepsCountingAboveFourDigits(t *testing.T) {
	// A lexicographic max would pick 9999 over 10000 and hand out a
	// duplicate; the length-first ordering must find the true last number.
	q := &storeQuerier{numbers: []string{
		"INV-20260315-9998",
		"INV-20260315-9999",
		"INV-20260315-10000",
	}}
	svc := New(q)

	num, err := svc.NextNumber(context.Background(), time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "INV-20260315-10001", num)
}

func TestNextNumber_MalformedStoredNumber(t *testing.T) {
	q := &mockQuerier{lastInvoice: "INV-garbage"}
	svc := New(q)

	_, err := svc.NextNumber(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed invoice number")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "INV-20260101-0007", Format("20260101", 7))
	assert.Equal(t, "INV-20261231-0100", Format("20261231", 100))
}

func TestParseSequence(t *testing.T) {
	assert.Equal(t, int64(42), ParseSequence("INV-20260315-0042"))
	assert.Equal(t, int64(10000), ParseSequence("INV-20260315-10000"))
	assert.Equal(t, int64(-1), ParseSequence("INV-20260315"))
	assert.Equal(t, int64(-1), ParseSequence("INV-20260315-00x2"))
	assert.Equal(t, int64(-1), ParseSequence(""))
}
