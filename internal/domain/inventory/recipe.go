package inventory

import (
	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
	"craftpos/internal/domain/catalog/product"
)

// Requirement is the raw-material demand a manufactured sale line resolves to.
type Requirement struct {
	RawProductID id.ID
	Quantity     types.Quantity
}

// ResolveRecipe converts a manufactured virtual sale quantity into its
// raw-material requirement. Absence of a recipe is a fatal validation error
// for the sale.
func ResolveRecipe(recipes map[id.ID]*product.Recipe, virtualProductID id.ID, saleQuantity types.Quantity, productName string) (Requirement, error) {
	recipe, ok := recipes[virtualProductID]
	if !ok {
		return Requirement{}, apperror.NewBusinessRule(
			apperror.CodeMissingRecipe,
			"no recipe configured for manufactured product "+productName,
		).WithDetail("product_id", virtualProductID)
	}

	return Requirement{
		RawProductID: recipe.RawProductID,
		Quantity:     saleQuantity.Mul(recipe.ConversionFactor),
	}, nil
}
