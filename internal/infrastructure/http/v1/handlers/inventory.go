package handlers

import (
	"github.com/gin-gonic/gin"

	"craftpos/internal/core/security"
	"craftpos/internal/domain/inventory"
	"craftpos/internal/infrastructure/http/v1/dto"
)

// InventoryHandler exposes batch intake and availability reads.
type InventoryHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers inventory endpoints.
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/batches", h.Intake)
	rg.GET("/batches", h.ListBatches)
	rg.GET("/availability", h.Availability)
}

// Intake handles POST /inventory/batches.
func (h *InventoryHandler) Intake(c *gin.Context) {
	var req dto.CreateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.service.Intake(ctx, security.GetScope(ctx), batch); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, batch)
}

// ListBatches handles GET /inventory/batches.
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	filter := inventory.ListFilter{
		InStockOnly: c.Query("inStock") == "true",
		Limit:       h.ParseIntQuery(c, "limit", 50),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}
	if v := c.Query("productId"); v != "" {
		productID, err := dto.ParseID("productId", v)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.ProductID = &productID
	}
	if v := c.Query("branchId"); v != "" {
		branchID, err := dto.ParseID("branchId", v)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.BranchID = &branchID
	}

	batches, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[*inventory.Batch]{
		Items:  batches,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Availability handles GET /inventory/availability.
func (h *InventoryHandler) Availability(c *gin.Context) {
	productID, err := dto.ParseID("productId", c.Query("productId"))
	if err != nil {
		h.Error(c, err)
		return
	}
	branchID, err := dto.ParseID("branchId", c.Query("branchId"))
	if err != nil {
		h.Error(c, err)
		return
	}

	available, err := h.service.Availability(c.Request.Context(), productID, branchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{
		"productId": productID,
		"branchId":  branchID,
		"available": available.String(),
	})
}
