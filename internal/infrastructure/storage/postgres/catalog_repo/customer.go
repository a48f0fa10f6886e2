package catalog_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
	"craftpos/internal/domain/catalog/customer"
	"craftpos/internal/infrastructure/storage/postgres"
)

const (
	customerTable = "customers"
	agentTable    = "agents"
)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	txm        *postgres.TxManager
	selectCols []string
	agentCols  []string
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[customer.Customer](),
		agentCols:  postgres.ExtractDBColumns[customer.Agent](),
	}
}

func (r *CustomerRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *CustomerRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(customerTable)
}

// Create inserts a customer.
func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	q := r.builder().
		Insert(customerTable).
		SetMap(postgres.StructToMap(c))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("customer", "code", c.Code)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID retrieves a customer by id.
func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.getOne(ctx, customerID, false)
}

// GetForUpdate retrieves a customer under an exclusive row lock.
func (r *CustomerRepo) GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.getOne(ctx, customerID, true)
}

func (r *CustomerRepo) getOne(ctx context.Context, customerID id.ID, forUpdate bool) (*customer.Customer, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": customerID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c customer.Customer
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("customer", customerID.String())
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// UpdateLedgerBalance persists a new cached balance.
func (r *CustomerRepo) UpdateLedgerBalance(ctx context.Context, customerID id.ID, balance types.Money) error {
	q := r.builder().
		Update(customerTable).
		Set("ledger_balance", balance).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": customerID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update ledger balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("customer", customerID.String())
	}
	return nil
}

// List retrieves customers with filtering.
func (r *CustomerRepo) List(ctx context.Context, filter customer.ListFilter) ([]*customer.Customer, error) {
	q := r.baseSelect()

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}

	q = q.OrderBy("name ASC")
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

	var items []*customer.Customer
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return items, nil
}

// CreateAgent inserts an agent.
func (r *CustomerRepo) CreateAgent(ctx context.Context, a *customer.Agent) error {
	q := r.builder().
		Insert(agentTable).
		SetMap(postgres.StructToMap(a))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by id.
func (r *CustomerRepo) GetAgent(ctx context.Context, agentID id.ID) (*customer.Agent, error) {
	q := r.builder().
		Select(r.agentCols...).
		From(agentTable).
		Where(squirrel.Eq{"id": agentID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a customer.Agent
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("agent", agentID.String())
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &a, nil
}
