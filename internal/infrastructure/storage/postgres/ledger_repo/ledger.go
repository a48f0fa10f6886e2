// Package ledger_repo provides the PostgreSQL implementation of the
// append-only accounting ledger.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
	"craftpos/internal/domain/ledger"
	"craftpos/internal/infrastructure/storage/postgres"
)

const entryTable = "ledger_entries"

// EntryRepo implements ledger.Repository. Entries are append-only:
// there is deliberately no update or delete here.
type EntryRepo struct {
	txm        *postgres.TxManager
	selectCols []string
}

// NewEntryRepo creates a new ledger entry repository.
func NewEntryRepo(txm *postgres.TxManager) *EntryRepo {
	return &EntryRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[ledger.Entry](),
	}
}

func (r *EntryRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Append inserts an entry.
func (r *EntryRepo) Append(ctx context.Context, e *ledger.Entry) error {
	q := r.builder().
		Insert(entryTable).
		SetMap(postgres.StructToMap(e))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByParty lists a party's entries, newest first.
func (r *EntryRepo) ListByParty(ctx context.Context, partyID id.ID, partyType ledger.PartyType, limit, offset int) ([]*ledger.Entry, error) {
	q := r.builder().
		Select(r.selectCols...).
		From(entryTable).
		Where(squirrel.Eq{"party_id": partyID}).
		Where(squirrel.Eq{"party_type": partyType}).
		OrderBy("created_at DESC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []*ledger.Entry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

// SumByParty derives a party's balance from its entries.
func (r *EntryRepo) SumByParty(ctx context.Context, partyID id.ID, partyType ledger.PartyType) (types.Money, error) {
	q := r.builder().
		Select("COALESCE(SUM(debit_amount - credit_amount), 0)").
		From(entryTable).
		Where(squirrel.Eq{"party_id": partyID}).
		Where(squirrel.Eq{"party_type": partyType})

	sql, args, err := q.ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var total types.Money
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.Zero(), fmt.Errorf("sum ledger entries: %w", err)
	}
	return total, nil
}
