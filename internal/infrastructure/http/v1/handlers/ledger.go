package handlers

import (
	"github.com/gin-gonic/gin"

	"craftpos/internal/core/apperror"
	"craftpos/internal/domain/ledger"
	"craftpos/internal/infrastructure/http/v1/dto"
)

// LedgerHandler exposes party statements.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers ledger endpoints.
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/statement/:partyType/:partyId", h.Statement)
	rg.GET("/balance/:partyType/:partyId", h.Balance)
}

func (h *LedgerHandler) partyType(c *gin.Context) (ledger.PartyType, bool) {
	partyType := ledger.PartyType(c.Param("partyType"))
	if partyType != ledger.PartyCustomer && partyType != ledger.PartySupplier {
		h.Error(c, apperror.NewValidation("unknown party type").
			WithDetail("value", c.Param("partyType")))
		return "", false
	}
	return partyType, true
}

// Statement handles GET /ledger/statement/:partyType/:partyId.
func (h *LedgerHandler) Statement(c *gin.Context) {
	partyType, ok := h.partyType(c)
	if !ok {
		return
	}

	partyID, ok := h.PathID(c, "partyId")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	entries, err := h.service.Statement(c.Request.Context(), partyID, partyType, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[*ledger.Entry]{
		Items:  entries,
		Limit:  limit,
		Offset: offset,
	})
}

// Balance handles GET /ledger/balance/:partyType/:partyId.
func (h *LedgerHandler) Balance(c *gin.Context) {
	partyType, ok := h.partyType(c)
	if !ok {
		return
	}

	partyID, ok := h.PathID(c, "partyId")
	if !ok {
		return
	}

	balance, err := h.service.Balance(c.Request.Context(), partyID, partyType)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.BalanceResponse{Balance: balance.String()})
}
