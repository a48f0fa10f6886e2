// Package sales provides the sale orchestrator: the transactional core that
// prices a sale, allocates stock from batches, posts ledger effects, and
// drives the production state machine.
package sales

import (
	"context"
	"time"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
)

// OrderType distinguishes committed invoices from inert drafts/quotations.
type OrderType string

const (
	OrderInvoice   OrderType = "invoice"
	OrderDraft     OrderType = "draft"
	OrderQuotation OrderType = "quotation"
)

// PaymentStatus of an order.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// DiscountStatus gates inventory/ledger effects for below-list-price sales.
type DiscountStatus string

const (
	DiscountApproved DiscountStatus = "approved"
	DiscountPending  DiscountStatus = "pending"
)

// Order is a sales order: invoice, draft, or quotation.
type Order struct {
	ID               id.ID            `db:"id" json:"id"`
	InvoiceNumber    string           `db:"invoice_number" json:"invoiceNumber"`
	OrderType        OrderType        `db:"order_type" json:"orderType"`
	PaymentStatus    PaymentStatus    `db:"payment_status" json:"paymentStatus"`
	ProductionStatus ProductionStatus `db:"production_status" json:"productionStatus"`
	DiscountStatus   DiscountStatus   `db:"discount_status" json:"discountStatus"`
	TotalAmount      types.Money      `db:"total_amount" json:"totalAmount"`
	TotalDiscount    types.Money      `db:"total_discount" json:"totalDiscount"`
	BranchID         id.ID            `db:"branch_id" json:"branchId"`
	CustomerID       *id.ID           `db:"customer_id" json:"customerId,omitempty"`
	AgentID          *id.ID           `db:"agent_id" json:"agentId,omitempty"`
	WorkerName       *string          `db:"worker_name" json:"workerName,omitempty"`
	DispatcherName   *string          `db:"dispatcher_name" json:"dispatcherName,omitempty"`
	VehiclePlate     *string          `db:"vehicle_plate" json:"vehiclePlate,omitempty"`
	DeliverySignature *string         `db:"delivery_signature" json:"deliverySignature,omitempty"`
	RejectionNote    *string          `db:"rejection_note" json:"rejectionNote,omitempty"`
	ValidUntil       *time.Time       `db:"valid_until" json:"validUntil,omitempty"`
	QuotationNotes   *string          `db:"quotation_notes" json:"quotationNotes,omitempty"`
	CreatedBy        string           `db:"created_by" json:"createdBy"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt"`

	// Table part
	Items []Item `db:"-" json:"items"`
}

// Item is one sale line. Subtotal = Quantity × UnitPrice, exact.
type Item struct {
	ID        id.ID          `db:"id" json:"id"`
	OrderID   id.ID          `db:"order_id" json:"orderId"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	Subtotal  types.Money    `db:"subtotal" json:"subtotal"`

	Assignments []Assignment `db:"-" json:"assignments,omitempty"`
}

// Assignment links a sale item to the batch it drew from.
// Deleting an assignment without restoring the batch is a ledger
// integrity violation; only the cancellation flow removes them.
type Assignment struct {
	ID               id.ID          `db:"id" json:"id"`
	ItemID           id.ID          `db:"item_id" json:"itemId"`
	BatchID          id.ID          `db:"inventory_batch_id" json:"inventoryBatchId"`
	QuantityDeducted types.Quantity `db:"quantity_deducted" json:"quantityDeducted"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
}

// Commission is recorded once per order when an agent is attached and
// inventory effects are not deferred.
type Commission struct {
	ID               id.ID       `db:"id" json:"id"`
	OrderID          id.ID       `db:"order_id" json:"orderId"`
	AgentID          id.ID       `db:"agent_id" json:"agentId"`
	CommissionAmount types.Money `db:"commission_amount" json:"commissionAmount"`
	Status           string      `db:"status" json:"status"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
}

// IsCancellable reports whether the order may still be reversed.
func (o *Order) IsCancellable() bool {
	return o.PaymentStatus != PaymentPaid
}

// EffectsDeferred reports whether stock/ledger/commission side effects were
// withheld at creation: drafts and quotations are always inert, and invoices
// with a pending discount stay inert until approval.
func (o *Order) EffectsDeferred() bool {
	return o.OrderType != OrderInvoice || o.DiscountStatus == DiscountPending
}

// RecalculateTotal sets TotalAmount to the exact sum of item subtotals.
func (o *Order) RecalculateTotal() {
	total := types.Zero()
	for i := range o.Items {
		o.Items[i].Subtotal = types.LineSubtotal(o.Items[i].Quantity, o.Items[i].UnitPrice)
		total = total.Add(o.Items[i].Subtotal)
	}
	o.TotalAmount = total
}

// Validate checks order invariants before persistence.
func (o *Order) Validate(ctx context.Context) error {
	if len(o.Items) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}
	if id.IsNil(o.BranchID) {
		return apperror.NewValidation("branch is required").
			WithDetail("field", "branchId")
	}
	if !isValidOrderType(o.OrderType) {
		return apperror.NewValidation("invalid order type").
			WithDetail("field", "orderType").
			WithDetail("value", string(o.OrderType))
	}
	for i, item := range o.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

func isValidOrderType(t OrderType) bool {
	switch t {
	case OrderInvoice, OrderDraft, OrderQuotation:
		return true
	}
	return false
}
