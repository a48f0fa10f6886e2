package handlers

import (
	"github.com/gin-gonic/gin"

	"craftpos/internal/domain/catalog/customer"
	"craftpos/internal/domain/catalog/product"
	"craftpos/internal/infrastructure/http/v1/dto"
)

// CatalogHandler exposes the product and customer catalogs.
type CatalogHandler struct {
	*BaseHandler
	products  product.Repository
	customers customer.Repository
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, products product.Repository, customers customer.Repository) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, products: products, customers: customers}
}

// RegisterRoutes registers catalog endpoints.
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/products", h.CreateProduct)
	rg.GET("/products", h.ListProducts)
	rg.GET("/products/:id", h.GetProduct)
	rg.POST("/recipes", h.CreateRecipe)
	rg.POST("/customers", h.CreateCustomer)
	rg.GET("/customers", h.ListCustomers)
	rg.GET("/customers/:id", h.GetCustomer)
	rg.POST("/agents", h.CreateAgent)
}

// CreateProduct handles POST /catalog/products.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := p.Validate(ctx); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.products.Create(ctx, p); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, p)
}

// GetProduct handles GET /catalog/products/:id.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	p, err := h.products.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// ListProducts handles GET /catalog/products.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	filter := product.ListFilter{
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active") == "true",
		Limit:      h.ParseIntQuery(c, "limit", 50),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}
	if v := c.Query("type"); v != "" {
		t := product.Type(v)
		filter.Type = &t
	}

	products, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[*product.Product]{
		Items:  products,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// CreateRecipe handles POST /catalog/recipes.
func (h *CatalogHandler) CreateRecipe(c *gin.Context) {
	var req dto.CreateRecipeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	recipe, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := recipe.Validate(ctx); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.products.CreateRecipe(ctx, recipe); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, recipe)
}

// CreateCustomer handles POST /catalog/customers.
func (h *CatalogHandler) CreateCustomer(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust := req.ToDomain()
	ctx := c.Request.Context()
	if err := cust.Validate(ctx); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.customers.Create(ctx, cust); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, cust)
}

// GetCustomer handles GET /catalog/customers/:id.
func (h *CatalogHandler) GetCustomer(c *gin.Context) {
	customerID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	cust, err := h.customers.GetByID(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// ListCustomers handles GET /catalog/customers.
func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	filter := customer.ListFilter{
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active") == "true",
		Limit:      h.ParseIntQuery(c, "limit", 50),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}

	customers, err := h.customers.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[*customer.Customer]{
		Items:  customers,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// CreateAgent handles POST /catalog/agents.
func (h *CatalogHandler) CreateAgent(c *gin.Context) {
	var req dto.CreateAgentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	agent, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.customers.CreateAgent(c.Request.Context(), agent); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, agent)
}
