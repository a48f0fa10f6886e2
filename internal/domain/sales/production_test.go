package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftpos/internal/core/apperror"
)

func TestValidateTransition_HappyPath(t *testing.T) {
	path := []ProductionStatus{
		ProductionNA,
		ProductionQueue,
		ProductionProcessing,
		ProductionProduced,
		ProductionDelivered,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.NoError(t, ValidateTransition(path[i], path[i+1]),
			"%s -> %s should be allowed", path[i], path[i+1])
	}
}

func TestValidateTransition_ApprovalLoop(t *testing.T) {
	assert.NoError(t, ValidateTransition(ProductionNA, ProductionPendingApproval))
	assert.NoError(t, ValidateTransition(ProductionPendingApproval, ProductionRejected))
	assert.NoError(t, ValidateTransition(ProductionRejected, ProductionPendingApproval))
	assert.NoError(t, ValidateTransition(ProductionPendingApproval, ProductionQueue))
}

func TestValidateTransition_NoSkipping(t *testing.T) {
	err := ValidateTransition(ProductionNA, ProductionDelivered)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, "na", appErr.Details["from"])
	assert.Equal(t, "delivered", appErr.Details["to"])
	assert.ElementsMatch(t, []string{"queue", "pending_approval"}, appErr.Details["allowed"])
}

func TestValidateTransition_DeliveredIsTerminal(t *testing.T) {
	for _, to := range []ProductionStatus{
		ProductionNA,
		ProductionQueue,
		ProductionProcessing,
		ProductionProduced,
	} {
		err := ValidateTransition(ProductionDelivered, to)
		assert.Error(t, err, "delivered -> %s must be rejected", to)
	}
}

func TestValidateTransition_SameStatusIsNoOp(t *testing.T) {
	for status := range productionTransitions {
		assert.NoError(t, ValidateTransition(status, status))
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	err := ValidateTransition(ProductionQueue, ProductionStatus("shipped"))
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestValidateTransition_NoBackwardMoves(t *testing.T) {
	assert.Error(t, ValidateTransition(ProductionProcessing, ProductionQueue))
	assert.Error(t, ValidateTransition(ProductionProduced, ProductionProcessing))
	assert.Error(t, ValidateTransition(ProductionQueue, ProductionPendingApproval))
}
