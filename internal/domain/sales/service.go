package sales

import (
	"context"
	"fmt"
	"time"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/security"
	"craftpos/internal/core/tx"
	"craftpos/internal/core/types"
	"craftpos/internal/domain/catalog/customer"
	"craftpos/internal/domain/catalog/product"
	"craftpos/internal/domain/inventory"
	"craftpos/internal/domain/ledger"
	"craftpos/internal/domain/notification"
	"craftpos/pkg/invoiceno"
	"craftpos/pkg/logger"
)

// ApproverDirectory lists users eligible to receive discount approval
// requests. Implemented by the auth user store.
type ApproverDirectory interface {
	ListActiveWithPermission(ctx context.Context, permission string) ([]id.ID, error)
}

// Auditor records immutable snapshots of order mutations.
// Failures are logged, never propagated: losing an audit record must not
// fail a sale.
type Auditor interface {
	Record(ctx context.Context, action string, orderID id.ID, snapshot any) error
}

// CreateOrderLine is one requested sale line. Assignments, when present,
// switch the line from FIFO to manual batch allocation.
type CreateOrderLine struct {
	ProductID   id.ID
	Quantity    types.Quantity
	UnitPrice   types.Money
	Assignments []inventory.ManualAssignment
}

// CreateOrderRequest carries everything needed to create an order.
// BranchID may be left nil when the caller has an assigned branch.
type CreateOrderRequest struct {
	OrderType      OrderType
	BranchID       id.ID
	CustomerID     *id.ID
	AgentID        *id.ID
	ValidUntil     *time.Time
	QuotationNotes *string
	Items          []CreateOrderLine
}

// ChangeProductionStatusRequest drives one production state transition.
type ChangeProductionStatusRequest struct {
	Status        ProductionStatus
	WorkerName    *string
	RejectionNote *string
}

// ConvertLine optionally pins an existing item to operator-chosen batches
// during draft/quotation conversion. Items not listed allocate FIFO.
type ConvertLine struct {
	ItemID      id.ID
	Assignments []inventory.ManualAssignment
}

// ConvertRequest turns a draft or quotation into an invoice.
type ConvertRequest struct {
	Items []ConvertLine
}

// DeliverRequest closes out a produced order.
type DeliverRequest struct {
	DispatcherName string
	VehiclePlate   *string
	Signature      *string
}

// Service is the sale orchestrator. Every mutating operation runs as a
// single transaction: pricing, stock allocation, ledger posting, and
// notifications commit together or not at all.
type Service struct {
	orders    Repository
	products  product.Repository
	customers customer.Repository
	allocator *inventory.Allocator
	ledger    *ledger.Service
	notifier  notification.Sink
	approvers ApproverDirectory
	invoices  invoiceno.Generator
	txm       tx.Manager
	auditor   Auditor
}

// NewService wires the orchestrator.
func NewService(
	orders Repository,
	products product.Repository,
	customers customer.Repository,
	allocator *inventory.Allocator,
	ledgerSvc *ledger.Service,
	notifier notification.Sink,
	approvers ApproverDirectory,
	invoices invoiceno.Generator,
	txm tx.Manager,
	auditor Auditor,
) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		customers: customers,
		allocator: allocator,
		ledger:    ledgerSvc,
		notifier:  notifier,
		approvers: approvers,
		invoices:  invoices,
		txm:       txm,
		auditor:   auditor,
	}
}

// CreateOrder creates an invoice, draft, or quotation.
//
// Invoices with an approved (or absent) discount deduct stock, post the
// customer debit, and record agent commission immediately. Drafts,
// quotations, and invoices awaiting discount approval persist inert: the
// order graph is saved but no batch, ledger, or commission row moves.
func (s *Service) CreateOrder(ctx context.Context, scope *security.AccessScope, req CreateOrderRequest) (*Order, error) {
	// An omitted branch defaults to the caller's assigned branch.
	if id.IsNil(req.BranchID) && scope.BranchID != "" {
		branchID, err := id.Parse(scope.BranchID)
		if err != nil {
			return nil, apperror.NewValidation("caller scope carries an invalid branch").
				WithDetail("branchId", scope.BranchID)
		}
		req.BranchID = branchID
	}

	order := s.buildOrder(scope, req)
	if err := order.Validate(ctx); err != nil {
		return nil, err
	}
	if err := scope.RequireBranch(order.BranchID.String()); err != nil {
		return nil, err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.invoices.NextNumber(ctx, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("generate invoice number: %w", err)
		}
		order.InvoiceNumber = number

		catalog, recipes, err := s.loadCatalog(ctx, order)
		if err != nil {
			return err
		}

		if err := s.priceOrder(ctx, scope, order, catalog); err != nil {
			return err
		}

		order.ProductionStatus = initialProductionStatus(order, catalog)

		// Credit coverage is checked under the customer row lock so a
		// concurrent payment cannot double-spend the same credit.
		if order.CustomerID != nil && !order.EffectsDeferred() {
			cust, err := s.customers.GetForUpdate(ctx, *order.CustomerID)
			if err != nil {
				return err
			}
			if cust.HasCreditCovering(order.TotalAmount) {
				order.PaymentStatus = PaymentPaid
			}
		}

		if err := s.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.orders.SaveItems(ctx, order.ID, order.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}

		if !order.EffectsDeferred() {
			if err := s.allocateItems(ctx, order, catalog, recipes, req.Items); err != nil {
				return err
			}
			if err := s.applyFinancialEffects(ctx, order); err != nil {
				return err
			}
		}

		if order.DiscountStatus == DiscountPending {
			if err := s.notifyDiscountApprovers(ctx, order); err != nil {
				return err
			}
		}

		s.audit(ctx, "order.create", order.ID, order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"order_id", order.ID,
		"invoice_number", order.InvoiceNumber,
		"type", order.OrderType,
		"total", order.TotalAmount.String(),
		"deferred", order.EffectsDeferred(),
	)
	return order, nil
}

func (s *Service) buildOrder(scope *security.AccessScope, req CreateOrderRequest) *Order {
	now := time.Now()
	order := &Order{
		ID:               id.New(),
		OrderType:        req.OrderType,
		PaymentStatus:    PaymentUnpaid,
		DiscountStatus:   DiscountApproved,
		TotalAmount:      types.Zero(),
		TotalDiscount:    types.Zero(),
		BranchID:         req.BranchID,
		CustomerID:       req.CustomerID,
		AgentID:          req.AgentID,
		ValidUntil:       req.ValidUntil,
		QuotationNotes:   req.QuotationNotes,
		CreatedBy:        scope.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	order.Items = make([]Item, 0, len(req.Items))
	for _, line := range req.Items {
		order.Items = append(order.Items, Item{
			ID:        id.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return order
}

// loadCatalog batch-fetches every referenced product plus the recipes of
// the manufactured ones.
func (s *Service) loadCatalog(ctx context.Context, order *Order) (map[id.ID]*product.Product, map[id.ID]*product.Recipe, error) {
	productIDs := make([]id.ID, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	catalog, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}

	manufactured := make([]id.ID, 0)
	for _, item := range order.Items {
		p, ok := catalog[item.ProductID]
		if !ok {
			return nil, nil, apperror.NewNotFound("product", item.ProductID)
		}
		if !p.Active {
			return nil, nil, apperror.NewValidation("product is inactive").
				WithDetail("product", p.Name)
		}
		if p.IsManufactured() {
			manufactured = append(manufactured, p.ID)
		}
	}

	recipes := map[id.ID]*product.Recipe{}
	if len(manufactured) > 0 {
		recipes, err = s.products.GetRecipes(ctx, manufactured)
		if err != nil {
			return nil, nil, fmt.Errorf("load recipes: %w", err)
		}
	}
	return catalog, recipes, nil
}

// priceOrder computes exact line subtotals and the order total, detects
// below-list-price lines, and resolves the discount status. Selling below
// list price without the permission parks an invoice for approval instead
// of rejecting it. Drafts and quotations carry the discount total without
// gating; the decision is made when they convert.
func (s *Service) priceOrder(ctx context.Context, scope *security.AccessScope, order *Order, catalog map[id.ID]*product.Product) error {
	order.RecalculateTotal()

	discount := types.Zero()
	for i := range order.Items {
		p := catalog[order.Items[i].ProductID]
		if order.Items[i].UnitPrice.Cmp(p.SalePrice) < 0 {
			under := p.SalePrice.Sub(order.Items[i].UnitPrice).Mul(order.Items[i].Quantity)
			discount = discount.Add(under)
		}
	}
	order.TotalDiscount = discount

	if discount.IsPositive() && order.OrderType == OrderInvoice && !scope.HasPermission(security.PermissionSellBelowPrice) {
		order.DiscountStatus = DiscountPending
		logger.Info(ctx, "discount requires approval",
			"order_id", order.ID,
			"discount", discount.String(),
			"user_id", scope.UserID,
		)
	}
	return nil
}

// initialProductionStatus places a fresh order on the production board.
// A pending discount parks it for approval; manufactured lines queue it;
// anything else skips production entirely.
func initialProductionStatus(order *Order, catalog map[id.ID]*product.Product) ProductionStatus {
	if order.DiscountStatus == DiscountPending {
		return ProductionPendingApproval
	}
	for _, item := range order.Items {
		if p, ok := catalog[item.ProductID]; ok && p.IsManufactured() {
			return ProductionQueue
		}
	}
	return ProductionNA
}

// allocateItems deducts stock for every stock-managed line and persists
// the batch assignments. Manufactured lines are first converted to their
// raw-material requirement through the recipe.
func (s *Service) allocateItems(ctx context.Context, order *Order, catalog map[id.ID]*product.Product, recipes map[id.ID]*product.Recipe, lines []CreateOrderLine) error {
	for i := range order.Items {
		item := &order.Items[i]
		p := catalog[item.ProductID]

		targetProductID := item.ProductID
		required := item.Quantity

		switch {
		case p.IsManufactured():
			requirement, err := inventory.ResolveRecipe(recipes, p.ID, item.Quantity, p.Name)
			if err != nil {
				return err
			}
			targetProductID = requirement.RawProductID
			required = requirement.Quantity
		case !p.ManageStock:
			continue
		}

		var deductions []inventory.Deduction
		var err error
		if len(lines[i].Assignments) > 0 {
			deductions, err = s.allocator.AllocateManual(ctx, lines[i].Assignments, targetProductID, order.BranchID, required, p.Name)
		} else {
			deductions, err = s.allocator.AllocateFIFO(ctx, targetProductID, order.BranchID, required, p.Name)
		}
		if err != nil {
			return err
		}

		assignments := make([]Assignment, 0, len(deductions))
		for _, d := range deductions {
			assignments = append(assignments, Assignment{
				ID:               id.New(),
				ItemID:           item.ID,
				BatchID:          d.Batch.ID,
				QuantityDeducted: d.Quantity,
				CreatedAt:        time.Now(),
			})
		}
		if err := s.orders.SaveAssignments(ctx, item.ID, assignments); err != nil {
			return fmt.Errorf("save assignments: %w", err)
		}
		item.Assignments = assignments
	}
	return nil
}

// applyFinancialEffects posts the customer debit and records agent
// commission. Called only when effects are not deferred.
func (s *Service) applyFinancialEffects(ctx context.Context, order *Order) error {
	if order.CustomerID != nil {
		entry := ledger.NewDebit(
			*order.CustomerID,
			ledger.PartyCustomer,
			ledger.TransactionInvoice,
			order.TotalAmount,
			order.BranchID,
			"Invoice "+order.InvoiceNumber,
		)
		entry.CreatedBy = order.CreatedBy
		if err := s.ledger.Post(ctx, entry); err != nil {
			return err
		}
	}

	if order.AgentID != nil {
		agent, err := s.customers.GetAgent(ctx, *order.AgentID)
		if err != nil {
			return err
		}
		commission := &Commission{
			ID:               id.New(),
			OrderID:          order.ID,
			AgentID:          agent.ID,
			CommissionAmount: types.Percent(order.TotalAmount, agent.CommissionRate),
			Status:           "pending",
			CreatedAt:        time.Now(),
		}
		if err := s.orders.CreateCommission(ctx, commission); err != nil {
			return fmt.Errorf("create commission: %w", err)
		}
	}
	return nil
}

func (s *Service) notifyDiscountApprovers(ctx context.Context, order *Order) error {
	userIDs, err := s.approvers.ListActiveWithPermission(ctx, string(security.PermissionApproveDiscount))
	if err != nil {
		return fmt.Errorf("list discount approvers: %w", err)
	}
	for _, userID := range userIDs {
		n := notification.New(
			userID,
			"discount_approval",
			"Discount approval required",
			fmt.Sprintf("Order %s has a discount of %s awaiting approval", order.InvoiceNumber, order.TotalDiscount.String()),
			order.ID.String(),
		)
		if err := s.notifier.Notify(ctx, n); err != nil {
			return fmt.Errorf("notify approver: %w", err)
		}
	}
	return nil
}

// GetOrder loads an order with its items and assignments.
func (s *Service) GetOrder(ctx context.Context, scope *security.AccessScope, orderID id.ID) (*Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := scope.RequireBranch(order.BranchID.String()); err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) attachItems(ctx context.Context, order *Order) error {
	items, err := s.orders.GetItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	assignments, err := s.orders.GetAssignmentsByOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}
	byItem := make(map[id.ID][]Assignment, len(items))
	for _, a := range assignments {
		byItem[a.ItemID] = append(byItem[a.ItemID], a)
	}
	for i := range items {
		items[i].Assignments = byItem[items[i].ID]
	}
	order.Items = items
	return nil
}

// ListOrders lists orders within the caller's branch scope.
func (s *Service) ListOrders(ctx context.Context, scope *security.AccessScope, filter ListFilter) ([]*Order, error) {
	if !scope.HasUnrestrictedBranchAccess() {
		branchID, err := id.Parse(scope.BranchID)
		if err != nil {
			return nil, apperror.NewForbidden("no branch assigned")
		}
		filter.BranchID = &branchID
	}
	return s.orders.List(ctx, filter)
}

// Cancel reverses an unpaid order: every batch draw is restored, the
// customer debit is offset with an adjustment credit, commission is
// removed, and the order graph is deleted. Paid orders must be refunded
// before cancellation.
func (s *Service) Cancel(ctx context.Context, scope *security.AccessScope, orderID id.ID) error {
	if err := scope.RequirePermission(security.PermissionCancelOrder); err != nil {
		return err
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := scope.RequireBranch(order.BranchID.String()); err != nil {
			return err
		}
		if !order.IsCancellable() {
			return apperror.NewBusinessRule(
				apperror.CodeOrderPaid,
				"paid orders cannot be cancelled, refund the payment first",
			).WithDetail("order_id", order.ID)
		}

		if !order.EffectsDeferred() {
			assignments, err := s.orders.GetAssignmentsByOrder(ctx, order.ID)
			if err != nil {
				return fmt.Errorf("load assignments: %w", err)
			}
			for _, a := range assignments {
				if err := s.allocator.Restore(ctx, a.BatchID, a.QuantityDeducted); err != nil {
					return err
				}
			}

			if order.CustomerID != nil {
				entry := ledger.NewCredit(
					*order.CustomerID,
					ledger.PartyCustomer,
					ledger.TransactionAdjustment,
					order.TotalAmount,
					order.BranchID,
					"Cancellation of "+order.InvoiceNumber,
				)
				entry.CreatedBy = scope.UserID
				if err := s.ledger.Post(ctx, entry); err != nil {
					return err
				}
			}

			if err := s.orders.DeleteCommissionByOrder(ctx, order.ID); err != nil {
				return fmt.Errorf("delete commission: %w", err)
			}
		}

		if err := s.orders.DeleteAssignmentsByOrder(ctx, order.ID); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if err := s.orders.DeleteItemsByOrder(ctx, order.ID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := s.orders.Delete(ctx, order.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}

		s.audit(ctx, "order.cancel", order.ID, order)
		logger.Info(ctx, "order cancelled",
			"order_id", order.ID,
			"invoice_number", order.InvoiceNumber,
			"total", order.TotalAmount.String(),
		)
		return nil
	})
}

// ChangeProductionStatus moves an order along the production state machine.
//
// Moving out of pending approval is the discount decision: queue approves
// the discount and releases the deferred stock and ledger effects, rejected
// records the rejection note. Re-setting the current status is an
// idempotent no-op.
func (s *Service) ChangeProductionStatus(ctx context.Context, scope *security.AccessScope, orderID id.ID, req ChangeProductionStatusRequest) (*Order, error) {
	if err := scope.RequirePermission(security.PermissionUpdateProduction); err != nil {
		return nil, err
	}

	var order *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := scope.RequireBranch(order.BranchID.String()); err != nil {
			return err
		}
		if err := ValidateTransition(order.ProductionStatus, req.Status); err != nil {
			return err
		}
		if order.ProductionStatus == req.Status {
			return nil
		}

		from := order.ProductionStatus
		switch req.Status {
		case ProductionQueue, ProductionRejected:
			if from == ProductionPendingApproval {
				if err := s.resolveDiscount(ctx, scope, order, req); err != nil {
					return err
				}
			}
		case ProductionProduced:
			if req.WorkerName == nil || *req.WorkerName == "" {
				return apperror.NewValidation("worker name is required to mark an order produced").
					WithDetail("field", "workerName")
			}
			order.WorkerName = req.WorkerName
		case ProductionDelivered:
			return apperror.NewValidation("use the delivery endpoint to mark an order delivered")
		}

		order.ProductionStatus = req.Status
		order.UpdatedAt = time.Now()
		if err := s.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		s.audit(ctx, "order.production_status", order.ID, map[string]any{
			"from": from, "to": req.Status,
		})
		logger.Info(ctx, "production status changed",
			"order_id", order.ID,
			"from", from,
			"to", req.Status,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// resolveDiscount handles the pending-approval exit. Approval (to queue)
// flips the discount to approved and applies the effects that creation
// deferred; rejection records the approver's note durably on the order.
func (s *Service) resolveDiscount(ctx context.Context, scope *security.AccessScope, order *Order, req ChangeProductionStatusRequest) error {
	if err := scope.RequirePermission(security.PermissionApproveDiscount); err != nil {
		return err
	}

	if req.Status == ProductionRejected {
		if req.RejectionNote == nil || *req.RejectionNote == "" {
			return apperror.NewValidation("a rejection note is required").
				WithDetail("field", "rejectionNote")
		}
		order.RejectionNote = req.RejectionNote
		return nil
	}

	wasDeferred := order.EffectsDeferred()
	order.DiscountStatus = DiscountApproved
	order.RejectionNote = nil

	if wasDeferred && !order.EffectsDeferred() {
		return s.releaseDeferredEffects(ctx, order)
	}
	return nil
}

// releaseDeferredEffects applies the stock, ledger, and commission effects
// for an order that was created inert. Allocation is FIFO: manual batch
// choices do not survive the approval round trip.
func (s *Service) releaseDeferredEffects(ctx context.Context, order *Order) error {
	if err := s.attachItems(ctx, order); err != nil {
		return err
	}
	catalog, recipes, err := s.loadCatalog(ctx, order)
	if err != nil {
		return err
	}
	lines := make([]CreateOrderLine, len(order.Items))
	for i, item := range order.Items {
		lines[i] = CreateOrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	if err := s.allocateItems(ctx, order, catalog, recipes, lines); err != nil {
		return err
	}
	return s.applyFinancialEffects(ctx, order)
}

// ConvertToInvoice commits a draft or quotation: the order keeps its number
// and pricing but becomes a real invoice, which applies the stock, ledger,
// and commission effects that were withheld at creation. Below-list pricing
// is re-evaluated against the converting caller's permission; a resulting
// pending discount defers everything until approval.
func (s *Service) ConvertToInvoice(ctx context.Context, scope *security.AccessScope, orderID id.ID, req ConvertRequest) (*Order, error) {
	var order *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := scope.RequireBranch(order.BranchID.String()); err != nil {
			return err
		}
		if order.OrderType == OrderInvoice {
			return apperror.NewValidation("order is already an invoice").
				WithDetail("order_id", order.ID)
		}

		if err := s.attachItems(ctx, order); err != nil {
			return err
		}
		catalog, recipes, err := s.loadCatalog(ctx, order)
		if err != nil {
			return err
		}

		order.OrderType = OrderInvoice
		if err := s.priceOrder(ctx, scope, order, catalog); err != nil {
			return err
		}
		order.ProductionStatus = initialProductionStatus(order, catalog)
		order.ValidUntil = nil

		if !order.EffectsDeferred() {
			if order.CustomerID != nil {
				cust, err := s.customers.GetForUpdate(ctx, *order.CustomerID)
				if err != nil {
					return err
				}
				if cust.HasCreditCovering(order.TotalAmount) {
					order.PaymentStatus = PaymentPaid
				}
			}
			if err := s.allocateItems(ctx, order, catalog, recipes, convertLines(order, req)); err != nil {
				return err
			}
			if err := s.applyFinancialEffects(ctx, order); err != nil {
				return err
			}
		}

		order.UpdatedAt = time.Now()
		if err := s.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if order.DiscountStatus == DiscountPending {
			if err := s.notifyDiscountApprovers(ctx, order); err != nil {
				return err
			}
		}

		s.audit(ctx, "order.convert", order.ID, order)
		logger.Info(ctx, "order converted to invoice",
			"order_id", order.ID,
			"invoice_number", order.InvoiceNumber,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// convertLines aligns the conversion request's per-item assignments with
// the order's item slice.
func convertLines(order *Order, req ConvertRequest) []CreateOrderLine {
	byItem := make(map[id.ID][]inventory.ManualAssignment, len(req.Items))
	for _, line := range req.Items {
		byItem[line.ItemID] = line.Assignments
	}
	lines := make([]CreateOrderLine, len(order.Items))
	for i, item := range order.Items {
		lines[i] = CreateOrderLine{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Assignments: byItem[item.ID],
		}
	}
	return lines
}

// Deliver closes out a produced order with the dispatch details.
func (s *Service) Deliver(ctx context.Context, scope *security.AccessScope, orderID id.ID, req DeliverRequest) (*Order, error) {
	if err := scope.RequirePermission(security.PermissionDeliverOrder); err != nil {
		return nil, err
	}
	if req.DispatcherName == "" {
		return nil, apperror.NewValidation("dispatcher name is required").
			WithDetail("field", "dispatcherName")
	}

	var order *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := scope.RequireBranch(order.BranchID.String()); err != nil {
			return err
		}
		if err := ValidateTransition(order.ProductionStatus, ProductionDelivered); err != nil {
			return err
		}
		if order.ProductionStatus == ProductionDelivered {
			return nil
		}

		order.ProductionStatus = ProductionDelivered
		order.DispatcherName = &req.DispatcherName
		order.VehiclePlate = req.VehiclePlate
		order.DeliverySignature = req.Signature
		order.UpdatedAt = time.Now()
		if err := s.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		s.audit(ctx, "order.deliver", order.ID, req)
		logger.Info(ctx, "order delivered",
			"order_id", order.ID,
			"dispatcher", req.DispatcherName,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RecordPayment marks an order paid and posts the payment credit.
func (s *Service) RecordPayment(ctx context.Context, scope *security.AccessScope, orderID id.ID) (*Order, error) {
	var order *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := scope.RequireBranch(order.BranchID.String()); err != nil {
			return err
		}
		if order.PaymentStatus == PaymentPaid {
			return apperror.NewBusinessRule(
				apperror.CodeOrderPaid,
				"order is already paid",
			).WithDetail("order_id", order.ID)
		}
		if order.OrderType != OrderInvoice {
			return apperror.NewValidation("only invoices accept payments").
				WithDetail("order_type", string(order.OrderType))
		}

		order.PaymentStatus = PaymentPaid
		order.UpdatedAt = time.Now()
		if err := s.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if order.CustomerID != nil {
			entry := ledger.NewCredit(
				*order.CustomerID,
				ledger.PartyCustomer,
				ledger.TransactionPayment,
				order.TotalAmount,
				order.BranchID,
				"Payment for "+order.InvoiceNumber,
			)
			entry.CreatedBy = scope.UserID
			if err := s.ledger.Post(ctx, entry); err != nil {
				return err
			}
		}

		s.audit(ctx, "order.payment", order.ID, order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) audit(ctx context.Context, action string, orderID id.ID, snapshot any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, action, orderID, snapshot); err != nil {
		logger.Warn(ctx, "audit record failed",
			"action", action,
			"order_id", orderID,
			"error", err,
		)
	}
}
