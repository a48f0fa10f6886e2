package sales

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/security"
	"craftpos/internal/core/types"
	"craftpos/internal/domain/catalog/customer"
	"craftpos/internal/domain/catalog/product"
	"craftpos/internal/domain/inventory"
	"craftpos/internal/domain/ledger"
	"craftpos/internal/domain/notification"
)

// --- In-memory fakes ---

type fakeTxManager struct{}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrderRepo struct {
	orders      map[id.ID]*Order
	items       map[id.ID][]Item       // keyed by order id
	assignments map[id.ID][]Assignment // keyed by item id
	commissions map[id.ID]*Commission  // keyed by order id
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:      map[id.ID]*Order{},
		items:       map[id.ID][]Item{},
		assignments: map[id.ID][]Assignment{},
		commissions: map[id.ID]*Commission{},
	}
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error) {
	return r.GetByID(ctx, orderID)
}

func (r *fakeOrderRepo) Update(ctx context.Context, o *Order) error {
	if _, ok := r.orders[o.ID]; !ok {
		return apperror.NewNotFound("order", o.ID)
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []Item) error {
	r.items[orderID] = append([]Item(nil), items...)
	return nil
}

func (r *fakeOrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]Item, error) {
	return append([]Item(nil), r.items[orderID]...), nil
}

func (r *fakeOrderRepo) SaveAssignments(ctx context.Context, itemID id.ID, assignments []Assignment) error {
	r.assignments[itemID] = append(r.assignments[itemID], assignments...)
	return nil
}

func (r *fakeOrderRepo) GetAssignmentsByOrder(ctx context.Context, orderID id.ID) ([]Assignment, error) {
	var out []Assignment
	for _, item := range r.items[orderID] {
		out = append(out, r.assignments[item.ID]...)
	}
	return out, nil
}

func (r *fakeOrderRepo) DeleteAssignmentsByOrder(ctx context.Context, orderID id.ID) error {
	for _, item := range r.items[orderID] {
		delete(r.assignments, item.ID)
	}
	return nil
}

func (r *fakeOrderRepo) DeleteItemsByOrder(ctx context.Context, orderID id.ID) error {
	delete(r.items, orderID)
	return nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, orderID id.ID) error {
	if _, ok := r.orders[orderID]; !ok {
		return apperror.NewNotFound("order", orderID)
	}
	delete(r.orders, orderID)
	return nil
}

func (r *fakeOrderRepo) CreateCommission(ctx context.Context, c *Commission) error {
	r.commissions[c.OrderID] = c
	return nil
}

func (r *fakeOrderRepo) DeleteCommissionByOrder(ctx context.Context, orderID id.ID) error {
	delete(r.commissions, orderID)
	return nil
}

func (r *fakeOrderRepo) List(ctx context.Context, filter ListFilter) ([]*Order, error) {
	var out []*Order
	for _, o := range r.orders {
		if filter.BranchID != nil && o.BranchID != *filter.BranchID {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

type fakeProductRepo struct {
	products map[id.ID]*product.Product
	recipes  map[id.ID]*product.Recipe
}

func (r *fakeProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return p, nil
}

func (r *fakeProductRepo) GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	out := make(map[id.ID]*product.Product)
	for _, pid := range productIDs {
		if p, ok := r.products[pid]; ok {
			out[pid] = p
		}
	}
	return out, nil
}

func (r *fakeProductRepo) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) CreateRecipe(ctx context.Context, recipe *product.Recipe) error {
	r.recipes[recipe.VirtualProductID] = recipe
	return nil
}

func (r *fakeProductRepo) GetRecipes(ctx context.Context, virtualProductIDs []id.ID) (map[id.ID]*product.Recipe, error) {
	out := make(map[id.ID]*product.Recipe)
	for _, pid := range virtualProductIDs {
		if rec, ok := r.recipes[pid]; ok {
			out[pid] = rec
		}
	}
	return out, nil
}

type fakeCustomerRepo struct {
	customers map[id.ID]*customer.Customer
	agents    map[id.ID]*customer.Agent
}

func (r *fakeCustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *fakeCustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	c, ok := r.customers[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID)
	}
	return c, nil
}

func (r *fakeCustomerRepo) GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.GetByID(ctx, customerID)
}

func (r *fakeCustomerRepo) UpdateLedgerBalance(ctx context.Context, customerID id.ID, balance types.Money) error {
	c, ok := r.customers[customerID]
	if !ok {
		return apperror.NewNotFound("customer", customerID)
	}
	c.LedgerBalance = balance
	return nil
}

func (r *fakeCustomerRepo) List(ctx context.Context, filter customer.ListFilter) ([]*customer.Customer, error) {
	return nil, nil
}

func (r *fakeCustomerRepo) CreateAgent(ctx context.Context, a *customer.Agent) error {
	r.agents[a.ID] = a
	return nil
}

func (r *fakeCustomerRepo) GetAgent(ctx context.Context, agentID id.ID) (*customer.Agent, error) {
	a, ok := r.agents[agentID]
	if !ok {
		return nil, apperror.NewNotFound("agent", agentID)
	}
	return a, nil
}

type fakeBatchRepo struct {
	batches map[id.ID]*inventory.Batch
}

func (r *fakeBatchRepo) Create(ctx context.Context, b *inventory.Batch) error {
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, batchID id.ID) (*inventory.Batch, error) {
	return r.GetForUpdate(ctx, batchID)
}

func (r *fakeBatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*inventory.Batch, error) {
	b, ok := r.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID)
	}
	return b, nil
}

func (r *fakeBatchRepo) ListInStockForUpdate(ctx context.Context, productID, branchID id.ID) ([]*inventory.Batch, error) {
	var out []*inventory.Batch
	for _, b := range r.batches {
		if b.ProductID == productID && b.BranchID == branchID && b.Status == inventory.BatchInStock {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeBatchRepo) UpdateQuantities(ctx context.Context, b *inventory.Batch) error {
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) AvailableQuantity(ctx context.Context, productID, branchID id.ID) (types.Quantity, error) {
	total := types.Zero()
	for _, b := range r.batches {
		if b.ProductID == productID && b.BranchID == branchID {
			total = total.Add(b.RemainingQuantity)
		}
	}
	return total, nil
}

func (r *fakeBatchRepo) List(ctx context.Context, filter inventory.ListFilter) ([]*inventory.Batch, error) {
	return nil, nil
}

type fakeLedgerRepo struct {
	entries []*ledger.Entry
}

func (r *fakeLedgerRepo) Append(ctx context.Context, e *ledger.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeLedgerRepo) ListByParty(ctx context.Context, partyID id.ID, partyType ledger.PartyType, limit, offset int) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	for _, e := range r.entries {
		if e.PartyID == partyID && e.PartyType == partyType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) SumByParty(ctx context.Context, partyID id.ID, partyType ledger.PartyType) (types.Money, error) {
	total := types.Zero()
	for _, e := range r.entries {
		if e.PartyID == partyID && e.PartyType == partyType {
			total = total.Add(e.Delta())
		}
	}
	return total, nil
}

type fakeSink struct {
	sent []*notification.Notification
}

func (s *fakeSink) Notify(ctx context.Context, n *notification.Notification) error {
	s.sent = append(s.sent, n)
	return nil
}

type fakeApprovers struct {
	userIDs []id.ID
}

func (a *fakeApprovers) ListActiveWithPermission(ctx context.Context, permission string) ([]id.ID, error) {
	return a.userIDs, nil
}

type fakeInvoices struct {
	seq int64
}

func (g *fakeInvoices) NextNumber(ctx context.Context, at time.Time) (string, error) {
	g.seq++
	return fmt.Sprintf("INV-%s-%04d", at.Format("20060102"), g.seq), nil
}

type fakeAuditor struct {
	actions []string
}

func (a *fakeAuditor) Record(ctx context.Context, action string, orderID id.ID, snapshot any) error {
	a.actions = append(a.actions, action)
	return nil
}

// --- Fixture ---

type testEnv struct {
	svc       *Service
	orders    *fakeOrderRepo
	products  *fakeProductRepo
	customers *fakeCustomerRepo
	batches   *fakeBatchRepo
	ledger    *fakeLedgerRepo
	sink      *fakeSink
	approvers *fakeApprovers
	auditor   *fakeAuditor

	branchID   id.ID
	chair      *product.Product // standard, list price 120
	plank      *product.Product // raw_tracked, batch stock
	table      *product.Product // manufactured_virtual, 12 planks each
	customer   *customer.Customer
	agent      *customer.Agent
	plankLot1  *inventory.Batch // oldest, 100
	plankLot2  *inventory.Batch // newer, 100
	chairLot   *inventory.Batch // 50
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		orders:    newFakeOrderRepo(),
		products:  &fakeProductRepo{products: map[id.ID]*product.Product{}, recipes: map[id.ID]*product.Recipe{}},
		customers: &fakeCustomerRepo{customers: map[id.ID]*customer.Customer{}, agents: map[id.ID]*customer.Agent{}},
		batches:   &fakeBatchRepo{batches: map[id.ID]*inventory.Batch{}},
		ledger:    &fakeLedgerRepo{},
		sink:      &fakeSink{},
		approvers: &fakeApprovers{},
		auditor:   &fakeAuditor{},
		branchID:  id.New(),
	}

	env.chair = product.NewProduct("FURN-001", "Oak Chair", product.TypeStandard, types.MustFromString("120"))
	env.plank = product.NewProduct("RAW-OAK", "Oak Plank", product.TypeRawTracked, types.MustFromString("8.50"))
	env.table = product.NewProduct("FURN-010", "Oak Table", product.TypeManufacturedVirtual, types.MustFromString("640"))
	for _, p := range []*product.Product{env.chair, env.plank, env.table} {
		env.products.products[p.ID] = p
	}
	env.products.recipes[env.table.ID] = product.NewRecipe(env.table.ID, env.plank.ID, types.MustFromString("12"))

	env.customer = customer.NewCustomer("CUST-001", "Riverside Workshop")
	env.customers.customers[env.customer.ID] = env.customer

	env.agent = customer.NewAgent("Jordan Reyes", types.MustFromString("2.5"))
	env.customers.agents[env.agent.ID] = env.agent

	now := time.Now()
	env.plankLot1 = inventory.NewBatch(env.plank.ID, env.branchID, "LOT-1", types.MustFromString("100"))
	env.plankLot1.CreatedAt = now.Add(-48 * time.Hour)
	env.plankLot2 = inventory.NewBatch(env.plank.ID, env.branchID, "LOT-2", types.MustFromString("100"))
	env.plankLot2.CreatedAt = now.Add(-24 * time.Hour)
	env.chairLot = inventory.NewBatch(env.chair.ID, env.branchID, "LOT-CH", types.MustFromString("50"))
	env.chairLot.CreatedAt = now.Add(-24 * time.Hour)
	for _, b := range []*inventory.Batch{env.plankLot1, env.plankLot2, env.chairLot} {
		env.batches.batches[b.ID] = b
	}

	env.svc = NewService(
		env.orders,
		env.products,
		env.customers,
		inventory.NewAllocator(env.batches),
		ledger.NewService(env.ledger, env.customers),
		env.sink,
		env.approvers,
		&fakeInvoices{},
		&fakeTxManager{},
		env.auditor,
	)
	return env
}

func adminScope() *security.AccessScope {
	return &security.AccessScope{UserID: "admin-user", IsAdmin: true}
}

func clerkScope(perms ...security.Permission) *security.AccessScope {
	return &security.AccessScope{UserID: "clerk-user", Permissions: perms}
}

// --- CreateOrder ---

func TestCreateOrder_InvoiceDeductsStockAndPostsDebit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.CreateOrder(ctx, adminScope(), CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("3"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	assert.Regexp(t, `^INV-\d{8}-0001$`, order.InvoiceNumber)
	assert.True(t, order.TotalAmount.Equal(types.MustFromString("360")))
	assert.True(t, order.TotalDiscount.IsZero())
	assert.Equal(t, DiscountApproved, order.DiscountStatus)
	assert.Equal(t, ProductionNA, order.ProductionStatus)
	assert.Equal(t, PaymentUnpaid, order.PaymentStatus)

	// Stock moved.
	assert.Equal(t, "47", env.chairLot.RemainingQuantity.String())

	// Assignment row links the item to the drawn batch.
	assignments, err := env.orders.GetAssignmentsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, env.chairLot.ID, assignments[0].BatchID)
	assert.Equal(t, "3", assignments[0].QuantityDeducted.String())

	// Customer debited and balance cached.
	require.Len(t, env.ledger.entries, 1)
	entry := env.ledger.entries[0]
	assert.Equal(t, ledger.TransactionInvoice, entry.TransactionType)
	assert.True(t, entry.DebitAmount.Equal(types.MustFromString("360")))
	assert.True(t, env.customer.LedgerBalance.Equal(types.MustFromString("360")))

	assert.Equal(t, []string{"order.create"}, env.auditor.actions)
}

func TestCreateOrder_ManufacturedConsumesRawThroughRecipe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 2 tables at 12 planks each: 24 planks from the oldest lot.
	order, err := env.svc.CreateOrder(ctx, adminScope(), CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.table.ID, Quantity: types.MustFromString("2"), UnitPrice: types.MustFromString("640")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, ProductionQueue, order.ProductionStatus)
	assert.Equal(t, "76", env.plankLot1.RemainingQuantity.String())
	assert.Equal(t, "100", env.plankLot2.RemainingQuantity.String())

	assignments, err := env.orders.GetAssignmentsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, env.plankLot1.ID, assignments[0].BatchID)
	assert.Equal(t, "24", assignments[0].QuantityDeducted.String())
}

func TestCreateOrder_ManufacturedWithoutRecipeFails(t *testing.T) {
	env := newTestEnv(t)
	delete(env.products.recipes, env.table.ID)

	_, err := env.svc.CreateOrder(context.Background(), adminScope(), CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.table.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("640")},
		},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMissingRecipe, appErr.Code)
}

func TestCreateOrder_ManualAssignmentOverridesFIFO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Operator draws the table's planks from the newer lot.
	order, err := env.svc.CreateOrder(ctx, adminScope(), CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{
				ProductID: env.table.ID,
				Quantity:  types.MustFromString("1"),
				UnitPrice: types.MustFromString("640"),
				Assignments: []inventory.ManualAssignment{
					{BatchID: env.plankLot2.ID, Quantity: types.MustFromString("12")},
				},
			},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "100", env.plankLot1.RemainingQuantity.String())
	assert.Equal(t, "88", env.plankLot2.RemainingQuantity.String())
}

func TestCreateOrder_ManualAssignmentMustMatchConvertedQuantity(t *testing.T) {
	env := newTestEnv(t)

	// 1 table needs 12 planks; assigning 10 is a mismatch.
	_, err := env.svc.CreateOrder(context.Background(), adminScope(), CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{
				ProductID: env.table.ID,
				Quantity:  types.MustFromString("1"),
				UnitPrice: types.MustFromString("640"),
				Assignments: []inventory.ManualAssignment{
					{BatchID: env.plankLot1.ID, Quantity: types.MustFromString("10")},
				},
			},
		},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAssignmentMismatch, appErr.Code)

	// Rejected sale must not touch stock.
	assert.Equal(t, "100", env.plankLot1.RemainingQuantity.String())
}

func TestCreateOrder_BelowListPriceWithoutPermissionDefersEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	approver := id.New()
	env.approvers.userIDs = []id.ID{approver}

	order, err := env.svc.CreateOrder(ctx, clerkScope(), CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			// 20 under list on each of 3 chairs.
			{ProductID: env.chair.ID, Quantity: types.MustFromString("3"), UnitPrice: types.MustFromString("100")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, DiscountPending, order.DiscountStatus)
	assert.Equal(t, ProductionPendingApproval, order.ProductionStatus)
	assert.True(t, order.TotalDiscount.Equal(types.MustFromString("60")))

	// Inert: no stock, ledger, or commission movement.
	assert.Equal(t, "50", env.chairLot.RemainingQuantity.String())
	assert.Empty(t, env.ledger.entries)
	assert.True(t, env.customer.LedgerBalance.IsZero())

	// Approvers were notified.
	require.Len(t, env.sink.sent, 1)
	assert.Equal(t, approver, env.sink.sent[0].UserID)
	assert.Equal(t, "discount_approval", env.sink.sent[0].Type)
	assert.Contains(t, env.sink.sent[0].Message, order.InvoiceNumber)
}

func TestCreateOrder_BelowListPriceWithPermissionSellsImmediately(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.svc.CreateOrder(context.Background(), clerkScope(security.PermissionSellBelowPrice), CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("100")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, DiscountApproved, order.DiscountStatus)
	assert.True(t, order.TotalDiscount.Equal(types.MustFromString("20")))
	assert.Equal(t, "49", env.chairLot.RemainingQuantity.String())
}

func TestCreateOrder_BelowListQuotationNotGated(t *testing.T) {
	env := newTestEnv(t)
	env.approvers.userIDs = []id.ID{id.New()}

	// A quotation is not a sale yet: no approval hold, no fan-out.
	order, err := env.svc.CreateOrder(context.Background(), clerkScope(), CreateOrderRequest{
		OrderType: OrderQuotation,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("100")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, DiscountApproved, order.DiscountStatus)
	assert.Equal(t, ProductionNA, order.ProductionStatus)
	assert.True(t, order.TotalDiscount.Equal(types.MustFromString("20")))
	assert.Empty(t, env.sink.sent)
}

func TestCreateOrder_DraftIsInert(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.svc.CreateOrder(context.Background(), adminScope(), CreateOrderRequest{
		OrderType:  OrderDraft,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("5"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	assert.True(t, order.EffectsDeferred())
	assert.Equal(t, "50", env.chairLot.RemainingQuantity.String())
	assert.Empty(t, env.ledger.entries)
	assert.Empty(t, env.sink.sent)
}

func TestCreateOrder_CreditCoverageMarksPaid(t *testing.T) {
	env := newTestEnv(t)
	env.customer.LedgerBalance = types.MustFromString("-500")

	order, err := env.svc.CreateOrder(context.Background(), adminScope(), CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("4"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, PaymentPaid, order.PaymentStatus)
	// The invoice debit still posts; the prior credit absorbs it.
	assert.True(t, env.customer.LedgerBalance.Equal(types.MustFromString("-20")))
}

func TestCreateOrder_PartialCreditDoesNotMarkPaid(t *testing.T) {
	env := newTestEnv(t)
	env.customer.LedgerBalance = types.MustFromString("-100")

	order, err := env.svc.CreateOrder(context.Background(), adminScope(), CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("4"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, PaymentUnpaid, order.PaymentStatus)
}

func TestCreateOrder_AgentEarnsCommission(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.svc.CreateOrder(context.Background(), adminScope(), CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		AgentID:   &env.agent.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("4"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	commission, ok := env.orders.commissions[order.ID]
	require.True(t, ok)
	// 2.5% of 480.
	assert.True(t, commission.CommissionAmount.Equal(types.MustFromString("12")))
	assert.Equal(t, "pending", commission.Status)
}

func TestCreateOrder_BranchDefaultsToCallerScope(t *testing.T) {
	env := newTestEnv(t)
	scope := clerkScope()
	scope.BranchID = env.branchID.String()

	order, err := env.svc.CreateOrder(context.Background(), scope, CreateOrderRequest{
		OrderType: OrderInvoice,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, env.branchID, order.BranchID)
	assert.Equal(t, "49", env.chairLot.RemainingQuantity.String())
}

func TestCreateOrder_NoBranchAnywhereRejected(t *testing.T) {
	env := newTestEnv(t)

	// Admin scope carries no assigned branch and the request names none.
	_, err := env.svc.CreateOrder(context.Background(), adminScope(), CreateOrderRequest{
		OrderType: OrderInvoice,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "branchId", appErr.Details["field"])
}

func TestCreateOrder_BranchScopeEnforced(t *testing.T) {
	env := newTestEnv(t)
	scope := clerkScope()
	scope.BranchID = id.New().String() // assigned elsewhere

	_, err := env.svc.CreateOrder(context.Background(), scope, CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestCreateOrder_InsufficientStockAbortsSale(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateOrder(context.Background(), adminScope(), CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("60"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
}

// --- Cancel ---

func TestCancel_RestoresStockAndOffsetsLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	order, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		AgentID:    &env.agent.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("3"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "47", env.chairLot.RemainingQuantity.String())

	require.NoError(t, env.svc.Cancel(ctx, scope, order.ID))

	// Stock restored, debit offset, commission removed, order gone.
	assert.Equal(t, "50", env.chairLot.RemainingQuantity.String())
	require.Len(t, env.ledger.entries, 2)
	adjustment := env.ledger.entries[1]
	assert.Equal(t, ledger.TransactionAdjustment, adjustment.TransactionType)
	assert.True(t, adjustment.CreditAmount.Equal(types.MustFromString("360")))
	assert.True(t, env.customer.LedgerBalance.IsZero())
	assert.NotContains(t, env.orders.commissions, order.ID)

	_, err = env.orders.GetByID(ctx, order.ID)
	require.Error(t, err)
}

func TestCancel_DeferredOrderJustDeletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	order, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType: OrderQuotation,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("2"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Cancel(ctx, scope, order.ID))
	assert.Empty(t, env.ledger.entries)
	assert.Equal(t, "50", env.chairLot.RemainingQuantity.String())
}

func TestCancel_PaidOrderRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	order, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.RecordPayment(ctx, scope, order.ID)
	require.NoError(t, err)

	err = env.svc.Cancel(ctx, scope, order.ID)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOrderPaid, appErr.Code)
}

func TestCancel_RequiresPermission(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.Cancel(context.Background(), clerkScope(), id.New())
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

// --- Conversion ---

func TestConvertToInvoice_AppliesDeferredEffects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	draft, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType:  OrderDraft,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("2"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "50", env.chairLot.RemainingQuantity.String())

	invoice, err := env.svc.ConvertToInvoice(ctx, scope, draft.ID, ConvertRequest{})
	require.NoError(t, err)

	assert.Equal(t, OrderInvoice, invoice.OrderType)
	assert.Equal(t, draft.InvoiceNumber, invoice.InvoiceNumber)
	assert.Equal(t, "48", env.chairLot.RemainingQuantity.String())
	require.Len(t, env.ledger.entries, 1)
	assert.True(t, env.customer.LedgerBalance.Equal(types.MustFromString("240")))
}

func TestConvertToInvoice_ManualAssignmentsHonored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	quotation, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType: OrderQuotation,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.table.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("640")},
		},
	})
	require.NoError(t, err)

	items, err := env.orders.GetItems(ctx, quotation.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Draw the table's planks from the newer lot instead of FIFO.
	_, err = env.svc.ConvertToInvoice(ctx, scope, quotation.ID, ConvertRequest{
		Items: []ConvertLine{
			{
				ItemID: items[0].ID,
				Assignments: []inventory.ManualAssignment{
					{BatchID: env.plankLot2.ID, Quantity: types.MustFromString("12")},
				},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "100", env.plankLot1.RemainingQuantity.String())
	assert.Equal(t, "88", env.plankLot2.RemainingQuantity.String())
}

func TestConvertToInvoice_ReevaluatesDiscountGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	approver := id.New()
	env.approvers.userIDs = []id.ID{approver}

	quotation, err := env.svc.CreateOrder(ctx, clerkScope(), CreateOrderRequest{
		OrderType:  OrderQuotation,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("3"), UnitPrice: types.MustFromString("100")},
		},
	})
	require.NoError(t, err)
	require.Empty(t, env.sink.sent)

	// The conversion is the sale: the below-list price now needs approval.
	invoice, err := env.svc.ConvertToInvoice(ctx, clerkScope(), quotation.ID, ConvertRequest{})
	require.NoError(t, err)

	assert.Equal(t, DiscountPending, invoice.DiscountStatus)
	assert.Equal(t, ProductionPendingApproval, invoice.ProductionStatus)
	assert.True(t, invoice.TotalDiscount.Equal(types.MustFromString("60")))

	// Still inert until the discount is approved.
	assert.Equal(t, "50", env.chairLot.RemainingQuantity.String())
	assert.Empty(t, env.ledger.entries)
	require.Len(t, env.sink.sent, 1)
	assert.Equal(t, approver, env.sink.sent[0].UserID)
}

func TestConvertToInvoice_PermittedCallerConvertsDiscountedOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	quotation, err := env.svc.CreateOrder(ctx, clerkScope(), CreateOrderRequest{
		OrderType:  OrderQuotation,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("100")},
		},
	})
	require.NoError(t, err)

	invoice, err := env.svc.ConvertToInvoice(ctx, clerkScope(security.PermissionSellBelowPrice), quotation.ID, ConvertRequest{})
	require.NoError(t, err)

	assert.Equal(t, DiscountApproved, invoice.DiscountStatus)
	assert.Equal(t, "49", env.chairLot.RemainingQuantity.String())
	require.Len(t, env.ledger.entries, 1)
	assert.Empty(t, env.sink.sent)
}

func TestConvertToInvoice_RejectsInvoices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	order, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.ConvertToInvoice(ctx, scope, order.ID, ConvertRequest{})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

// --- Production status / discount approval ---

func TestChangeProductionStatus_ApprovalReleasesDeferredEffects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.CreateOrder(ctx, clerkScope(), CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.table.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("600")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, DiscountPending, order.DiscountStatus)
	require.Equal(t, "100", env.plankLot1.RemainingQuantity.String())

	approver := clerkScope(security.PermissionUpdateProduction, security.PermissionApproveDiscount)
	updated, err := env.svc.ChangeProductionStatus(ctx, approver, order.ID, ChangeProductionStatusRequest{
		Status: ProductionQueue,
	})
	require.NoError(t, err)

	assert.Equal(t, DiscountApproved, updated.DiscountStatus)
	assert.Equal(t, ProductionQueue, updated.ProductionStatus)

	// Deferred effects now applied: 12 planks drawn, customer debited.
	assert.Equal(t, "88", env.plankLot1.RemainingQuantity.String())
	require.Len(t, env.ledger.entries, 1)
	assert.True(t, env.customer.LedgerBalance.Equal(types.MustFromString("600")))
}

func TestChangeProductionStatus_ApprovalNeedsApprovePermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.CreateOrder(ctx, clerkScope(), CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("90")},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.ChangeProductionStatus(ctx, clerkScope(security.PermissionUpdateProduction), order.ID, ChangeProductionStatusRequest{
		Status: ProductionQueue,
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestChangeProductionStatus_RejectionRequiresNote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	order, err := env.svc.CreateOrder(ctx, clerkScope(), CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("90")},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.ChangeProductionStatus(ctx, scope, order.ID, ChangeProductionStatusRequest{
		Status: ProductionRejected,
	})
	require.Error(t, err)

	note := "margin too thin on this customer"
	updated, err := env.svc.ChangeProductionStatus(ctx, scope, order.ID, ChangeProductionStatusRequest{
		Status:        ProductionRejected,
		RejectionNote: &note,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.RejectionNote)
	assert.Equal(t, note, *updated.RejectionNote)
	assert.Equal(t, ProductionRejected, updated.ProductionStatus)
	assert.Equal(t, DiscountPending, updated.DiscountStatus)

	// Still inert after rejection.
	assert.Equal(t, "50", env.chairLot.RemainingQuantity.String())
	assert.Empty(t, env.ledger.entries)
}

func TestChangeProductionStatus_ProducedRequiresWorker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	order, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.table.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("640")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, ProductionQueue, order.ProductionStatus)

	_, err = env.svc.ChangeProductionStatus(ctx, scope, order.ID, ChangeProductionStatusRequest{
		Status: ProductionProcessing,
	})
	require.NoError(t, err)

	_, err = env.svc.ChangeProductionStatus(ctx, scope, order.ID, ChangeProductionStatusRequest{
		Status: ProductionProduced,
	})
	require.Error(t, err)

	worker := "Sam Okafor"
	updated, err := env.svc.ChangeProductionStatus(ctx, scope, order.ID, ChangeProductionStatusRequest{
		Status:     ProductionProduced,
		WorkerName: &worker,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.WorkerName)
	assert.Equal(t, worker, *updated.WorkerName)
}

func TestChangeProductionStatus_DeliveredGoesThroughDeliveryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	order, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.table.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("640")},
		},
	})
	require.NoError(t, err)

	worker := "Sam Okafor"
	for _, step := range []ChangeProductionStatusRequest{
		{Status: ProductionProcessing},
		{Status: ProductionProduced, WorkerName: &worker},
	} {
		_, err = env.svc.ChangeProductionStatus(ctx, scope, order.ID, step)
		require.NoError(t, err)
	}

	_, err = env.svc.ChangeProductionStatus(ctx, scope, order.ID, ChangeProductionStatusRequest{
		Status: ProductionDelivered,
	})
	require.Error(t, err)

	delivered, err := env.svc.Deliver(ctx, scope, order.ID, DeliverRequest{DispatcherName: "Lee Martin"})
	require.NoError(t, err)
	assert.Equal(t, ProductionDelivered, delivered.ProductionStatus)
	require.NotNil(t, delivered.DispatcherName)
	assert.Equal(t, "Lee Martin", *delivered.DispatcherName)
}

func TestDeliver_RequiresDispatcherName(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Deliver(context.Background(), adminScope(), id.New(), DeliverRequest{})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

// --- Payment ---

func TestRecordPayment_PostsCreditOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	order, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType:  OrderInvoice,
		BranchID:   env.branchID,
		CustomerID: &env.customer.ID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("2"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)
	require.True(t, env.customer.LedgerBalance.Equal(types.MustFromString("240")))

	paid, err := env.svc.RecordPayment(ctx, scope, order.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, paid.PaymentStatus)
	assert.True(t, env.customer.LedgerBalance.IsZero())

	_, err = env.svc.RecordPayment(ctx, scope, order.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOrderPaid, appErr.Code)
}

func TestRecordPayment_OnlyInvoices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := adminScope()

	order, err := env.svc.CreateOrder(ctx, scope, CreateOrderRequest{
		OrderType: OrderQuotation,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.RecordPayment(ctx, scope, order.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

// --- Listing ---

func TestListOrders_BranchScopedForNonAdmins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateOrder(ctx, adminScope(), CreateOrderRequest{
		OrderType: OrderInvoice,
		BranchID:  env.branchID,
		Items: []CreateOrderLine{
			{ProductID: env.chair.ID, Quantity: types.MustFromString("1"), UnitPrice: types.MustFromString("120")},
		},
	})
	require.NoError(t, err)

	scoped := clerkScope()
	scoped.BranchID = id.New().String()
	orders, err := env.svc.ListOrders(ctx, scoped, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)

	all, err := env.svc.ListOrders(ctx, adminScope(), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
