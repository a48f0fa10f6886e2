package dto

import (
	"time"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/domain/inventory"
	"craftpos/internal/domain/sales"
)

// CreateOrderRequest is the wire shape for order creation.
type CreateOrderRequest struct {
	OrderType      string                   `json:"orderType" binding:"required"`
	BranchID       string                   `json:"branchId,omitempty"`
	CustomerID     *string                  `json:"customerId,omitempty"`
	AgentID        *string                  `json:"agentId,omitempty"`
	ValidUntil     *time.Time               `json:"validUntil,omitempty"`
	QuotationNotes *string                  `json:"quotationNotes,omitempty"`
	Items          []CreateOrderItemRequest `json:"items" binding:"required"`
}

// CreateOrderItemRequest is one requested sale line.
type CreateOrderItemRequest struct {
	ProductID   string                  `json:"productId" binding:"required"`
	Quantity    string                  `json:"quantity" binding:"required"`
	UnitPrice   string                  `json:"unitPrice" binding:"required"`
	Assignments []ItemAssignmentRequest `json:"itemAssignments,omitempty"`
}

// ItemAssignmentRequest pins a line quantity to an explicit batch.
type ItemAssignmentRequest struct {
	BatchID  string `json:"batchId" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
}

// ToDomain converts the request to the orchestrator's shape.
func (r *CreateOrderRequest) ToDomain() (sales.CreateOrderRequest, error) {
	var req sales.CreateOrderRequest

	// Omitted branch resolves to the caller's assigned branch downstream.
	branchID := id.Nil()
	if r.BranchID != "" {
		parsed, err := ParseID("branchId", r.BranchID)
		if err != nil {
			return req, err
		}
		branchID = parsed
	}
	customerID, err := ParseOptionalID("customerId", r.CustomerID)
	if err != nil {
		return req, err
	}
	agentID, err := ParseOptionalID("agentId", r.AgentID)
	if err != nil {
		return req, err
	}

	items := make([]sales.CreateOrderLine, 0, len(r.Items))
	for _, item := range r.Items {
		productID, err := ParseID("items.productId", item.ProductID)
		if err != nil {
			return req, err
		}
		quantity, err := ParseDecimal("items.quantity", item.Quantity)
		if err != nil {
			return req, err
		}
		unitPrice, err := ParseDecimal("items.unitPrice", item.UnitPrice)
		if err != nil {
			return req, err
		}

		assignments := make([]inventory.ManualAssignment, 0, len(item.Assignments))
		for _, asg := range item.Assignments {
			batchID, err := ParseID("itemAssignments.batchId", asg.BatchID)
			if err != nil {
				return req, err
			}
			asgQty, err := ParseDecimal("itemAssignments.quantity", asg.Quantity)
			if err != nil {
				return req, err
			}
			assignments = append(assignments, inventory.ManualAssignment{
				BatchID:  batchID,
				Quantity: asgQty,
			})
		}

		items = append(items, sales.CreateOrderLine{
			ProductID:   productID,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Assignments: assignments,
		})
	}

	return sales.CreateOrderRequest{
		OrderType:      sales.OrderType(r.OrderType),
		BranchID:       branchID,
		CustomerID:     customerID,
		AgentID:        agentID,
		ValidUntil:     r.ValidUntil,
		QuotationNotes: r.QuotationNotes,
		Items:          items,
	}, nil
}

// ConvertOrderRequest is the wire shape for draft/quotation conversion.
// Items are optional: listed items allocate from the named batches, the
// rest allocate FIFO.
type ConvertOrderRequest struct {
	Items []ConvertOrderItemRequest `json:"items,omitempty"`
}

// ConvertOrderItemRequest pins one existing item to explicit batches.
type ConvertOrderItemRequest struct {
	ItemID      string                  `json:"itemId" binding:"required"`
	Assignments []ItemAssignmentRequest `json:"itemAssignments" binding:"required"`
}

// ToDomain converts the request.
func (r *ConvertOrderRequest) ToDomain() (sales.ConvertRequest, error) {
	var req sales.ConvertRequest
	for _, line := range r.Items {
		itemID, err := ParseID("items.itemId", line.ItemID)
		if err != nil {
			return req, err
		}
		assignments := make([]inventory.ManualAssignment, 0, len(line.Assignments))
		for _, asg := range line.Assignments {
			batchID, err := ParseID("itemAssignments.batchId", asg.BatchID)
			if err != nil {
				return req, err
			}
			qty, err := ParseDecimal("itemAssignments.quantity", asg.Quantity)
			if err != nil {
				return req, err
			}
			assignments = append(assignments, inventory.ManualAssignment{
				BatchID:  batchID,
				Quantity: qty,
			})
		}
		req.Items = append(req.Items, sales.ConvertLine{
			ItemID:      itemID,
			Assignments: assignments,
		})
	}
	return req, nil
}

// ChangeProductionStatusRequest is the wire shape for a status transition.
type ChangeProductionStatusRequest struct {
	Status        string  `json:"status" binding:"required"`
	WorkerName    *string `json:"workerName,omitempty"`
	RejectionNote *string `json:"rejectionNote,omitempty"`
}

// ToDomain converts the request.
func (r *ChangeProductionStatusRequest) ToDomain() sales.ChangeProductionStatusRequest {
	return sales.ChangeProductionStatusRequest{
		Status:        sales.ProductionStatus(r.Status),
		WorkerName:    r.WorkerName,
		RejectionNote: r.RejectionNote,
	}
}

// DeliverOrderRequest is the wire shape for delivery close-out.
type DeliverOrderRequest struct {
	DispatcherName string  `json:"dispatcherName" binding:"required"`
	VehiclePlate   *string `json:"vehiclePlate,omitempty"`
	Signature      *string `json:"signature,omitempty"`
}

// ToDomain converts the request.
func (r *DeliverOrderRequest) ToDomain() sales.DeliverRequest {
	return sales.DeliverRequest{
		DispatcherName: r.DispatcherName,
		VehiclePlate:   r.VehiclePlate,
		Signature:      r.Signature,
	}
}

// OrderListQuery holds order list filters.
type OrderListQuery struct {
	Pagination
	OrderType        string `form:"orderType"`
	ProductionStatus string `form:"productionStatus"`
	DiscountStatus   string `form:"discountStatus"`
	CustomerID       string `form:"customerId"`
	Search           string `form:"search"`
}

// ToFilter converts the query to a repository filter.
func (q *OrderListQuery) ToFilter() (sales.ListFilter, error) {
	filter := sales.ListFilter{
		Search: q.Search,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.OrderType != "" {
		t := sales.OrderType(q.OrderType)
		filter.OrderType = &t
	}
	if q.ProductionStatus != "" {
		s := sales.ProductionStatus(q.ProductionStatus)
		if !sales.IsValidProductionStatus(s) {
			return filter, apperror.NewValidation("unknown production status").
				WithDetail("value", q.ProductionStatus)
		}
		filter.ProductionStatus = &s
	}
	if q.DiscountStatus != "" {
		d := sales.DiscountStatus(q.DiscountStatus)
		filter.DiscountStatus = &d
	}
	if q.CustomerID != "" {
		customerID, err := ParseID("customerId", q.CustomerID)
		if err != nil {
			return filter, err
		}
		filter.CustomerID = &customerID
	}
	return filter, nil
}
