package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftpos/internal/core/id"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	branchID := id.New()
	user := NewUser("cashier@example.com", "hash", "Casey Lin", "cashier")
	user.BranchID = &branchID
	user.Permissions = []string{"inventory:manage_stock"}

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now().Add(11*time.Hour)))

	uc, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), uc.UserID)
	assert.Equal(t, "cashier@example.com", uc.Email)
	assert.Equal(t, branchID.String(), uc.BranchID)
	assert.Equal(t, []string{"cashier"}, uc.Roles)
	assert.Equal(t, []string{"inventory:manage_stock"}, uc.Permissions)
	assert.False(t, uc.IsAdmin)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	user := NewUser("a@example.com", "hash", "A", "cashier")

	token, _, err := NewJWTService(DefaultJWTConfig("secret-one")).GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("secret-two")).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	token, _, err := svc.GenerateAccessToken(NewUser("a@example.com", "hash", "A", "cashier"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
