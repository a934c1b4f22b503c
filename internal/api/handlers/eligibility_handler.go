package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finlead/membership-backend/internal/service"
	"github.com/finlead/membership-backend/internal/types"
)

// ============================================
// Eligibility Handler
// ============================================

type EligibilityHandler struct {
	eligibilityService service.EligibilityService
}

func (h *EligibilityHandler) Evaluate(c *gin.Context) {
	role := c.Param("role")
	if !types.IsValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown target role"})
		return
	}

	report, err := h.eligibilityService.Evaluate(c.Request.Context(), c.Param("id"), types.Role(role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
