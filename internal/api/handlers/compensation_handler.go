package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finlead/membership-backend/internal/models"
	"github.com/finlead/membership-backend/internal/service"
)

// ============================================
// Compensation Handler
// ============================================

type CompensationHandler struct {
	compensationService service.CompensationService
}

func (h *CompensationHandler) Upsert(c *gin.Context) {
	var req models.CompensationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comp, err := h.compensationService.Upsert(c.Request.Context(), c.Param("id"), c.Param("month"),
		service.CompensationInput{
			ReferralReward: req.ReferralReward,
			ContractReward: req.ContractReward,
			Bonus:          req.Bonus,
			Deduction:      req.Deduction,
		})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCompensationResponse(comp))
}

func (h *CompensationHandler) SetLocked(c *gin.Context) {
	var req models.CompensationLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comp, err := h.compensationService.SetLocked(c.Request.Context(), c.Param("compId"), *req.Locked)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCompensationResponse(comp))
}

func (h *CompensationHandler) ListForMember(c *gin.Context) {
	comps, err := h.compensationService.ListForMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.CompensationResponse, len(comps))
	for i, cp := range comps {
		response[i] = toCompensationResponse(cp)
	}
	c.JSON(http.StatusOK, response)
}

func (h *CompensationHandler) GetMonth(c *gin.Context) {
	comp, err := h.compensationService.GetMonth(c.Request.Context(), c.Param("id"), c.Param("month"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCompensationResponse(comp))
}
