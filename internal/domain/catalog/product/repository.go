package product

import (
	"context"

	"craftpos/internal/core/id"
)

// Repository defines operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByIDs batch-fetches products in one round trip, keyed by id.
	// Missing ids are simply absent from the result map.
	GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*Product, error)

	List(ctx context.Context, filter ListFilter) ([]*Product, error)

	CreateRecipe(ctx context.Context, r *Recipe) error

	// GetRecipes batch-fetches recipes keyed by virtual product id.
	GetRecipes(ctx context.Context, virtualProductIDs []id.ID) (map[id.ID]*Recipe, error)
}

// ListFilter for filtering products.
type ListFilter struct {
	Search     string
	Type       *Type
	ActiveOnly bool
	Limit      int
	Offset     int
}
