package handlers

import (
	"github.com/gin-gonic/gin"

	"craftpos/internal/domain/auth"
	"craftpos/internal/infrastructure/http/v1/dto"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers auth endpoints. Login is public; user
// administration requires an authenticated admin.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/login", h.Login)
	protected.POST("/users", h.Register)
	protected.GET("/me", h.Me)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.LoginResponse{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User:        toUserResponse(user),
	})
}

// Register handles POST /auth/users.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterUserRequest
	if !h.BindJSON(c, &req) {
		return
	}

	branchID, err := dto.ParseOptionalID("branchId", req.BranchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), auth.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Role:        req.Role,
		Permissions: req.Permissions,
		BranchID:    branchID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, toUserResponse(user))
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := dto.ParseID("userId", h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	user, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, toUserResponse(user))
}

func toUserResponse(u *auth.User) dto.UserResponse {
	branchID := ""
	if u.BranchID != nil {
		branchID = u.BranchID.String()
	}
	return dto.UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Permissions: u.Permissions,
		BranchID:    branchID,
		IsAdmin:     u.IsAdmin,
	}
}
