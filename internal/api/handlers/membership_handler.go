package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finlead/membership-backend/internal/api/middleware"
	"github.com/finlead/membership-backend/internal/models"
	"github.com/finlead/membership-backend/internal/service"
)

// ============================================
// Membership Lifecycle Handler
// ============================================

type MembershipHandler struct {
	membershipService service.MembershipService
}

func (h *MembershipHandler) RequestSuspension(c *gin.Context) {
	memberID := c.Param("id")

	var req models.SuspensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must be YYYY-MM-DD"})
		return
	}

	result, err := h.membershipService.RequestSuspension(c.Request.Context(), memberID, endDate, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member":   toMemberResponse(result.Member),
		"endDate":  result.EndDate.Format("2006-01-02"),
		"warnings": result.Warnings,
	})
}

func (h *MembershipHandler) ResumeSuspension(c *gin.Context) {
	actorID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	member, err := h.membershipService.ResumeSuspension(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *MembershipHandler) RequestCancellation(c *gin.Context) {
	memberID := c.Param("id")

	var req models.CancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.membershipService.RequestCancellation(c.Request.Context(), memberID, service.CancellationInput{
		Reason:       req.Reason,
		Detail:       req.Detail,
		Continuation: req.Continuation,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"member":      toMemberResponse(result.Member),
		"isScheduled": result.IsScheduled,
		"warnings":    result.Warnings,
	}
	if result.EffectiveDate != nil {
		resp["effectiveDate"] = result.EffectiveDate.Format("2006-01-02")
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MembershipHandler) MarkDelinquent(c *gin.Context) {
	actorID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	var req models.DelinquencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.membershipService.MarkDelinquent(c.Request.Context(), c.Param("id"), actorID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(member))
}

// PaymentEvent receives provider webhook events. Unknown events are rejected;
// duplicate deliveries of the same event are harmless.
func (h *MembershipHandler) PaymentEvent(c *gin.Context) {
	var req models.PaymentEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	switch req.Event {
	case "payment_failed":
		_, err = h.membershipService.HandlePaymentFailed(c.Request.Context(), req.MemberID)
	case "payment_recovered":
		_, err = h.membershipService.HandlePaymentRecovered(c.Request.Context(), req.MemberID)
	case "subscription_ended":
		_, err = h.membershipService.FinalizeCancellation(c.Request.Context(), req.MemberID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment event"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event processed"})
}
