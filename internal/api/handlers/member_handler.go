package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finlead/membership-backend/internal/api/middleware"
	"github.com/finlead/membership-backend/internal/models"
	"github.com/finlead/membership-backend/internal/service"
	"github.com/finlead/membership-backend/internal/types"
)

// ============================================
// Member Handler
// ============================================

type MemberHandler struct {
	memberService service.MemberService
}

func (h *MemberHandler) GetCurrentMember(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	member, err := h.memberService.GetMember(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *MemberHandler) Get(c *gin.Context) {
	member, err := h.memberService.GetMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.memberService.ListMembers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.MemberResponse, len(members))
	for i, m := range members {
		response[i] = toMemberResponse(m)
	}
	c.JSON(http.StatusOK, response)
}

func (h *MemberHandler) StatusHistory(c *gin.Context) {
	history, err := h.memberService.StatusHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.StatusChangeResponse, len(history))
	for i, sc := range history {
		response[i] = toStatusChangeResponse(sc)
	}
	c.JSON(http.StatusOK, response)
}

func (h *MemberHandler) RoleHistory(c *gin.Context) {
	history, err := h.memberService.RoleHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.RoleChangeResponse, len(history))
	for i, rc := range history {
		response[i] = toRoleChangeResponse(rc)
	}
	c.JSON(http.StatusOK, response)
}

func (h *MemberHandler) RecordSale(c *gin.Context) {
	var req models.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	occurredAt := time.Now()
	if req.OccurredAt != "" {
		parsed, err := time.Parse("2006-01-02", req.OccurredAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "occurredAt must be YYYY-MM-DD"})
			return
		}
		occurredAt = parsed
	}

	if err := h.memberService.RecordSale(c.Request.Context(), c.Param("id"), req.Amount, req.InsuredCount, occurredAt); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Sale recorded"})
}

func (h *MemberHandler) RecordReferral(c *gin.Context) {
	var req models.ReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.memberService.RecordReferral(c.Request.Context(), c.Param("id"), types.Role(req.TargetRole), req.Approved); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Referral recorded"})
}

func (h *MemberHandler) SetMilestones(c *gin.Context) {
	var req models.MilestonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.memberService.SetMilestones(c.Request.Context(), c.Param("id"), req.MeetingCompleted, req.SurveyCompleted)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *MemberHandler) CreateMentoringRequest(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	var req models.MentoringRequestCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.memberService.CreateMentoringRequest(c.Request.Context(), memberID, req.Topic)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *MemberHandler) ListMentoringRequests(c *gin.Context) {
	memberID, ok := middleware.RequireMemberID(c)
	if !ok {
		return
	}

	reqs, err := h.memberService.OpenMentoringRequests(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}
