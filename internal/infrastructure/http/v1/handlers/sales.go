package handlers

import (
	"github.com/gin-gonic/gin"

	"craftpos/internal/core/security"
	"craftpos/internal/domain/sales"
	"craftpos/internal/infrastructure/http/v1/dto"
	"craftpos/internal/infrastructure/storage/postgres"
)

// SalesHandler exposes the sale orchestrator.
type SalesHandler struct {
	*BaseHandler
	service *sales.Service
	audit   *postgres.AuditService
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(base *BaseHandler, service *sales.Service, audit *postgres.AuditService) *SalesHandler {
	return &SalesHandler{BaseHandler: base, service: service, audit: audit}
}

// RegisterRoutes registers sales endpoints.
func (h *SalesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Cancel)
	rg.POST("/:id/convert", h.Convert)
	rg.PATCH("/:id/production-status", h.ChangeProductionStatus)
	rg.POST("/:id/deliver", h.Deliver)
	rg.POST("/:id/payment", h.RecordPayment)
	rg.GET("/:id/audit", h.AuditHistory)
}

// Create handles POST /orders.
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	order, err := h.service.CreateOrder(ctx, security.GetScope(ctx), domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, order)
}

// Get handles GET /orders/:id.
func (h *SalesHandler) Get(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	order, err := h.service.GetOrder(ctx, security.GetScope(ctx), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// List handles GET /orders.
func (h *SalesHandler) List(c *gin.Context) {
	var query dto.OrderListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	orders, err := h.service.ListOrders(ctx, security.GetScope(ctx), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[*sales.Order]{
		Items:  orders,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Cancel handles DELETE /orders/:id.
func (h *SalesHandler) Cancel(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.service.Cancel(ctx, security.GetScope(ctx), orderID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "order cancelled")
}

// Convert handles POST /orders/:id/convert.
func (h *SalesHandler) Convert(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	// The body is optional: converting without it allocates FIFO.
	var req dto.ConvertOrderRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	order, err := h.service.ConvertToInvoice(ctx, security.GetScope(ctx), orderID, domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// ChangeProductionStatus handles PATCH /orders/:id/production-status.
func (h *SalesHandler) ChangeProductionStatus(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.ChangeProductionStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	order, err := h.service.ChangeProductionStatus(ctx, security.GetScope(ctx), orderID, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// Deliver handles POST /orders/:id/deliver.
func (h *SalesHandler) Deliver(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.DeliverOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	order, err := h.service.Deliver(ctx, security.GetScope(ctx), orderID, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// AuditHistory handles GET /orders/:id/audit.
// The order is loaded first so branch scoping applies before any
// audit rows are exposed.
func (h *SalesHandler) AuditHistory(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.service.GetOrder(ctx, security.GetScope(ctx), orderID); err != nil {
		h.Error(c, err)
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.audit.History(ctx, orderID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[postgres.AuditEntry]{
		Items: entries,
		Limit: limit,
	})
}

// RecordPayment handles POST /orders/:id/payment.
func (h *SalesHandler) RecordPayment(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	order, err := h.service.RecordPayment(ctx, security.GetScope(ctx), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}
