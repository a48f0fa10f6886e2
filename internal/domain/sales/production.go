package sales

import (
	"craftpos/internal/core/apperror"
)

// ProductionStatus is the manufacturing/fulfillment state of an order,
// independent of payment status.
type ProductionStatus string

const (
	ProductionNA              ProductionStatus = "na"
	ProductionPendingApproval ProductionStatus = "pending_approval"
	ProductionRejected        ProductionStatus = "rejected"
	ProductionQueue           ProductionStatus = "queue"
	ProductionProcessing      ProductionStatus = "processing"
	ProductionProduced        ProductionStatus = "produced"
	ProductionDelivered       ProductionStatus = "delivered"
)

// productionTransitions is the allowed-next-state graph.
// Delivered is terminal.
var productionTransitions = map[ProductionStatus][]ProductionStatus{
	ProductionNA:              {ProductionQueue, ProductionPendingApproval},
	ProductionPendingApproval: {ProductionQueue, ProductionRejected},
	ProductionRejected:        {ProductionPendingApproval},
	ProductionQueue:           {ProductionProcessing},
	ProductionProcessing:      {ProductionProduced},
	ProductionProduced:        {ProductionDelivered},
	ProductionDelivered:       {},
}

// IsValidProductionStatus reports whether s names a known state.
func IsValidProductionStatus(s ProductionStatus) bool {
	_, ok := productionTransitions[s]
	return ok
}

// AllowedNext returns the states reachable from the given status.
func AllowedNext(from ProductionStatus) []ProductionStatus {
	return productionTransitions[from]
}

// ValidateTransition checks a production status change against the graph.
// Re-setting the current status is always accepted as an idempotent no-op.
func ValidateTransition(from, to ProductionStatus) error {
	if !IsValidProductionStatus(to) {
		return apperror.NewValidation("unknown production status").
			WithDetail("value", string(to))
	}
	if from == to {
		return nil
	}
	for _, next := range productionTransitions[from] {
		if next == to {
			return nil
		}
	}
	allowed := make([]string, 0, len(productionTransitions[from]))
	for _, next := range productionTransitions[from] {
		allowed = append(allowed, string(next))
	}
	return apperror.NewInvalidTransition(string(from), string(to), allowed)
}
