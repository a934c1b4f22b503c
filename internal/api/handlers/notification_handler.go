package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finlead/membership-backend/internal/api/middleware"
	"github.com/finlead/membership-backend/internal/models"
	"github.com/finlead/membership-backend/internal/service"
)

// ============================================
// Notification Handler
// ============================================

type NotificationHandler struct {
	memberService service.MemberService
}

func (h *NotificationHandler) List(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.memberService.Notifications(c.Request.Context(), memberID, unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.NotificationResponse, len(notifications))
	for i, n := range notifications {
		response[i] = toNotificationResponse(n)
	}
	c.JSON(http.StatusOK, response)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if _, ok := middleware.RequireMemberID(c); !ok {
		return
	}

	if err := h.memberService.MarkNotificationRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	if err := h.memberService.MarkAllNotificationsRead(c.Request.Context(), memberID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All marked as read"})
}
