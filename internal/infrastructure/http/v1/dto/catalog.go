package dto

import (
	"craftpos/internal/domain/catalog/customer"
	"craftpos/internal/domain/catalog/product"
	"craftpos/internal/domain/inventory"
)

// CreateProductRequest is the wire shape for product creation.
type CreateProductRequest struct {
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Type      string `json:"type" binding:"required"`
	SalePrice string `json:"salePrice" binding:"required"`
}

// ToDomain converts the request.
func (r *CreateProductRequest) ToDomain() (*product.Product, error) {
	price, err := ParseDecimal("salePrice", r.SalePrice)
	if err != nil {
		return nil, err
	}
	return product.NewProduct(r.Code, r.Name, product.Type(r.Type), price), nil
}

// CreateRecipeRequest maps a manufactured product to its raw input.
type CreateRecipeRequest struct {
	VirtualProductID string `json:"virtualProductId" binding:"required"`
	RawProductID     string `json:"rawProductId" binding:"required"`
	ConversionFactor string `json:"conversionFactor" binding:"required"`
}

// ToDomain converts the request.
func (r *CreateRecipeRequest) ToDomain() (*product.Recipe, error) {
	virtualID, err := ParseID("virtualProductId", r.VirtualProductID)
	if err != nil {
		return nil, err
	}
	rawID, err := ParseID("rawProductId", r.RawProductID)
	if err != nil {
		return nil, err
	}
	factor, err := ParseDecimal("conversionFactor", r.ConversionFactor)
	if err != nil {
		return nil, err
	}
	return product.NewRecipe(virtualID, rawID, factor), nil
}

// CreateCustomerRequest is the wire shape for customer creation.
type CreateCustomerRequest struct {
	Code  string  `json:"code" binding:"required"`
	Name  string  `json:"name" binding:"required"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

// ToDomain converts the request.
func (r *CreateCustomerRequest) ToDomain() *customer.Customer {
	c := customer.NewCustomer(r.Code, r.Name)
	c.Phone = r.Phone
	c.Email = r.Email
	return c
}

// CreateAgentRequest is the wire shape for agent creation.
type CreateAgentRequest struct {
	Name           string `json:"name" binding:"required"`
	CommissionRate string `json:"commissionRate" binding:"required"`
}

// ToDomain converts the request.
func (r *CreateAgentRequest) ToDomain() (*customer.Agent, error) {
	rate, err := ParseDecimal("commissionRate", r.CommissionRate)
	if err != nil {
		return nil, err
	}
	return customer.NewAgent(r.Name, rate), nil
}

// CreateBatchRequest is the wire shape for stock intake.
type CreateBatchRequest struct {
	ProductID   string `json:"productId" binding:"required"`
	BranchID    string `json:"branchId" binding:"required"`
	BatchNumber string `json:"batchNumber" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
}

// ToDomain converts the request.
func (r *CreateBatchRequest) ToDomain() (*inventory.Batch, error) {
	productID, err := ParseID("productId", r.ProductID)
	if err != nil {
		return nil, err
	}
	branchID, err := ParseID("branchId", r.BranchID)
	if err != nil {
		return nil, err
	}
	quantity, err := ParseDecimal("quantity", r.Quantity)
	if err != nil {
		return nil, err
	}
	return inventory.NewBatch(productID, branchID, r.BatchNumber, quantity), nil
}
