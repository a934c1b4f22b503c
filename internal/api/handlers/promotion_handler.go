package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finlead/membership-backend/internal/api/middleware"
	"github.com/finlead/membership-backend/internal/models"
	"github.com/finlead/membership-backend/internal/service"
	"github.com/finlead/membership-backend/internal/types"
)

// ============================================
// Promotion Handler
// ============================================

type PromotionHandler struct {
	promotionService service.PromotionService
}

func (h *PromotionHandler) Submit(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	var req models.PromotionSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !types.IsValidRole(req.TargetRole) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown target role"})
		return
	}

	app, err := h.promotionService.Submit(c.Request.Context(), memberID, types.Role(req.TargetRole))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toApplicationResponse(app))
}

func (h *PromotionHandler) Review(c *gin.Context) {
	reviewerID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	var req models.PromotionReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.promotionService.Review(c.Request.Context(), c.Param("id"),
		*req.Approve, reviewerID, req.Notes, req.RejectReason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toApplicationResponse(app))
}

func (h *PromotionHandler) ListPending(c *gin.Context) {
	apps, err := h.promotionService.ListByStatus(c.Request.Context(), types.ApplicationPending)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.ApplicationResponse, len(apps))
	for i, a := range apps {
		response[i] = toApplicationResponse(a)
	}
	c.JSON(http.StatusOK, response)
}

func (h *PromotionHandler) MyPending(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	app, err := h.promotionService.PendingForMember(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	if app == nil {
		c.JSON(http.StatusOK, gin.H{"pending": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": toApplicationResponse(app)})
}

func (h *PromotionHandler) CompleteOnboardingStep(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	progress, err := h.promotionService.CompleteOnboardingStep(c.Request.Context(),
		memberID, types.OnboardingStep(c.Param("step")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member":        toMemberResponse(progress.Member),
		"steps":         progress.Steps,
		"completed":     progress.Completed,
		"roleChanged":   progress.RoleChanged,
		"effectiveRole": progress.EffectiveRole,
	})
}

func (h *PromotionHandler) OnboardingStatus(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	progress, err := h.promotionService.OnboardingStatus(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"steps":         progress.Steps,
		"completed":     progress.Completed,
		"effectiveRole": progress.EffectiveRole,
	})
}

func (h *PromotionHandler) Stats(c *gin.Context) {
	stats, err := h.promotionService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
