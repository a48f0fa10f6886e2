// Package product provides the product catalog and manufacturing recipes.
package product

import (
	"context"
	"time"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
)

// Type defines how a product behaves in sales and stock tracking.
type Type string

const (
	TypeStandard Type = "standard"
	TypeCompound Type = "compound"
	// TypeRawTracked products are raw materials tracked in dated batches.
	TypeRawTracked Type = "raw_tracked"
	// TypeManufacturedVirtual products carry no physical stock of their own;
	// selling one consumes a raw product through a recipe.
	TypeManufacturedVirtual Type = "manufactured_virtual"
	TypeVariable            Type = "variable"
)

// Product represents a sellable item in the catalog.
type Product struct {
	ID          id.ID       `db:"id" json:"id"`
	Code        string      `db:"code" json:"code"`
	Name        string      `db:"name" json:"name"`
	Type        Type        `db:"type" json:"type"`
	ManageStock bool        `db:"manage_stock" json:"manageStock"`
	SalePrice   types.Money `db:"sale_price" json:"salePrice"`
	Active      bool        `db:"active" json:"active"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// NewProduct creates a product with required fields.
func NewProduct(code, name string, pType Type, salePrice types.Money) *Product {
	now := time.Now()
	return &Product{
		ID:          id.New(),
		Code:        code,
		Name:        name,
		Type:        pType,
		ManageStock: pType != TypeManufacturedVirtual && pType != TypeVariable,
		SalePrice:   salePrice,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsManufactured reports whether the product is produced on sale via a recipe.
func (p *Product) IsManufactured() bool {
	return p.Type == TypeManufacturedVirtual
}

// Validate implements basic catalog validation.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("product name is required").
			WithDetail("field", "name")
	}
	if !isValidType(p.Type) {
		return apperror.NewValidation("invalid product type").
			WithDetail("field", "type").
			WithDetail("value", string(p.Type))
	}
	if p.SalePrice.IsNegative() {
		return apperror.NewValidation("sale price cannot be negative").
			WithDetail("field", "salePrice")
	}
	if p.IsManufactured() && p.ManageStock {
		return apperror.NewValidation("manufactured virtual products never carry their own stock").
			WithDetail("field", "manageStock")
	}
	return nil
}

func isValidType(t Type) bool {
	switch t {
	case TypeStandard, TypeCompound, TypeRawTracked, TypeManufacturedVirtual, TypeVariable:
		return true
	}
	return false
}

// Recipe maps a manufactured virtual product to its raw input.
// ConversionFactor is raw units consumed per unit of virtual product sold.
type Recipe struct {
	ID               id.ID          `db:"id" json:"id"`
	VirtualProductID id.ID          `db:"virtual_product_id" json:"virtualProductId"`
	RawProductID     id.ID          `db:"raw_product_id" json:"rawProductId"`
	ConversionFactor types.Quantity `db:"conversion_factor" json:"conversionFactor"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
}

// NewRecipe creates a recipe row.
func NewRecipe(virtualProductID, rawProductID id.ID, factor types.Quantity) *Recipe {
	return &Recipe{
		ID:               id.New(),
		VirtualProductID: virtualProductID,
		RawProductID:     rawProductID,
		ConversionFactor: factor,
		CreatedAt:        time.Now(),
	}
}

// Validate checks recipe invariants.
func (r *Recipe) Validate(ctx context.Context) error {
	if id.IsNil(r.VirtualProductID) {
		return apperror.NewValidation("virtual product is required").
			WithDetail("field", "virtualProductId")
	}
	if id.IsNil(r.RawProductID) {
		return apperror.NewValidation("raw product is required").
			WithDetail("field", "rawProductId")
	}
	if !r.ConversionFactor.IsPositive() {
		return apperror.NewValidation("conversion factor must be positive").
			WithDetail("field", "conversionFactor")
	}
	return nil
}
