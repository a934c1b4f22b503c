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
// Meeting Cycle Handler
// ============================================

type MeetingHandler struct {
	meetingService service.MeetingService
}

func (h *MeetingHandler) DeclareIntent(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	var req models.AttendanceIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	att, err := h.meetingService.DeclareIntent(c.Request.Context(), memberID,
		c.Param("cycle"), types.AttendanceIntent(req.Intent))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttendanceResponse(att))
}

func (h *MeetingHandler) MarkCompleted(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	var req models.AttendanceCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	att, err := h.meetingService.MarkCompleted(c.Request.Context(), memberID, c.Param("cycle"), req.Via)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttendanceResponse(att))
}

func (h *MeetingHandler) Finalize(c *gin.Context) {
	reviewerID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	var req models.AttendanceFinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	att, err := h.meetingService.Finalize(c.Request.Context(), c.Param("memberId"),
		c.Param("cycle"), types.FinalApproval(req.Approval), reviewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttendanceResponse(att))
}

func (h *MeetingHandler) ListByCycle(c *gin.Context) {
	approval := types.FinalApproval(c.Query("approval"))

	atts, err := h.meetingService.ListByCycle(c.Request.Context(), c.Param("cycle"), approval)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.AttendanceResponse, len(atts))
	for i, a := range atts {
		response[i] = toAttendanceResponse(a)
	}
	c.JSON(http.StatusOK, response)
}
