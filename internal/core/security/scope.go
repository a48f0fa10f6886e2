// Package security provides authorization and access control.
package security

import (
	"context"
	"fmt"

	"craftpos/internal/core/apperror"
	appctx "craftpos/internal/core/context"
)

// Permission defines available permissions in the system.
type Permission string

const (
	// Sales permissions
	PermissionSellBelowPrice  Permission = "sales:sell_below_price"
	PermissionApproveDiscount Permission = "sales:approve_discount"
	PermissionCancelOrder     Permission = "sales:cancel_order"

	// Production permissions
	PermissionUpdateProduction Permission = "production:update_status"
	PermissionDeliverOrder     Permission = "production:deliver"

	// Inventory permissions
	PermissionManageStock Permission = "inventory:manage_stock"

	// Admin permissions
	PermissionAdmin Permission = "admin"
)

// Role defines a named set of permissions.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleManager    Role = "manager"
	RoleCashier    Role = "cashier"
	RoleOperator   Role = "operator"
)

// AccessScope defines the boundaries of data visibility for the current request.
// Every orchestrator call receives its authorization facts through this value
// instead of ambient globals.
type AccessScope struct {
	// UserID is the authenticated user
	UserID string

	// BranchID is the caller's assigned branch (empty when unrestricted)
	BranchID string

	// IsAdmin bypasses branch isolation
	IsAdmin bool

	// Permissions available to user
	Permissions []Permission
}

// NewAccessScope creates AccessScope from context.
func NewAccessScope(ctx context.Context) *AccessScope {
	user := appctx.GetUser(ctx)
	if user == nil {
		return &AccessScope{}
	}

	perms := make([]Permission, 0, len(user.Permissions))
	for _, p := range user.Permissions {
		perms = append(perms, Permission(p))
	}

	return &AccessScope{
		UserID:      user.UserID,
		BranchID:    user.BranchID,
		IsAdmin:     user.IsAdmin,
		Permissions: perms,
	}
}

// HasUnrestrictedBranchAccess reports whether the caller may act on any branch.
func (s *AccessScope) HasUnrestrictedBranchAccess() bool {
	return s.IsAdmin || s.BranchID == ""
}

// CanAccessBranch checks if the caller may transact for the given branch.
func (s *AccessScope) CanAccessBranch(branchID string) bool {
	if s.HasUnrestrictedBranchAccess() {
		return true
	}
	return s.BranchID == branchID
}

// HasPermission checks if the caller holds a permission.
func (s *AccessScope) HasPermission(perm Permission) bool {
	if s.IsAdmin {
		return true
	}
	for _, p := range s.Permissions {
		if p == perm || p == PermissionAdmin {
			return true
		}
	}
	return false
}

// RequirePermission returns a forbidden error if the permission is missing.
func (s *AccessScope) RequirePermission(perm Permission) error {
	if !s.HasPermission(perm) {
		return apperror.NewForbidden(
			fmt.Sprintf("permission %s required", perm),
		).WithDetail("permission", perm)
	}
	return nil
}

// RequireBranch returns a forbidden error if the caller may not act on the branch.
func (s *AccessScope) RequireBranch(branchID string) error {
	if !s.CanAccessBranch(branchID) {
		return apperror.NewForbidden("no access to this branch").
			WithDetail("branch_id", branchID)
	}
	return nil
}

// --- Context-based scope access ---

type scopeKey struct{}

// WithScope adds AccessScope to context.
func WithScope(ctx context.Context, scope *AccessScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// GetScope returns AccessScope from context.
func GetScope(ctx context.Context) *AccessScope {
	if v, ok := ctx.Value(scopeKey{}).(*AccessScope); ok {
		return v
	}
	return NewAccessScope(ctx)
}
