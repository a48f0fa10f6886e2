package handlers

import (
	"github.com/gin-gonic/gin"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/domain/notification"
	"craftpos/internal/infrastructure/http/v1/dto"
)

// NotificationHandler exposes the caller's notification feed.
type NotificationHandler struct {
	*BaseHandler
	repo notification.Repository
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(base *BaseHandler, repo notification.Repository) *NotificationHandler {
	return &NotificationHandler{BaseHandler: base, repo: repo}
}

// RegisterRoutes registers notification endpoints.
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/:id/read", h.MarkRead)
}

// List handles GET /notifications. Users only see their own feed.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := id.Parse(h.GetUserID(c))
	if err != nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	items, err := h.repo.ListByUser(c.Request.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[*notification.Notification]{
		Items:  items,
		Limit:  limit,
		Offset: offset,
	})
}

// MarkRead handles POST /notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	if err := h.repo.MarkRead(c.Request.Context(), notificationID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "notification marked read")
}
