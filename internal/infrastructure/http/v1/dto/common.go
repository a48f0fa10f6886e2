// Package dto defines request and response shapes for the HTTP API.
// Monetary values and quantities travel as decimal strings, never floats.
package dto

import (
	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
)

// IDResponse is returned from create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse for operations without a payload.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps list payloads.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// BalanceResponse carries a party's current balance as a decimal string.
type BalanceResponse struct {
	Balance string `json:"balance"`
}

// Pagination holds common list query parameters.
type Pagination struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ParseDecimal parses a decimal string field.
func ParseDecimal(field, value string) (types.Money, error) {
	d, err := types.FromString(value)
	if err != nil {
		return types.Zero(), apperror.NewValidation("invalid decimal value").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return d, nil
}

// ParseID parses a UUID string field.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}

// ParseOptionalID parses an optional UUID string field.
func ParseOptionalID(field string, value *string) (*id.ID, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
