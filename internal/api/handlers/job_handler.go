package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finlead/membership-backend/internal/service"
)

// ============================================
// Reconciliation Job Handler
// ============================================

// JobHandler exposes the batch jobs to the external scheduler. Routes using
// it sit behind the cron-secret middleware, never member auth.
type JobHandler struct {
	jobsService service.JobsService
}

func (h *JobHandler) RunAutoResume(c *gin.Context) {
	summary, err := h.jobsService.RunAutoResume(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *JobHandler) RunAutoDemotion(c *gin.Context) {
	summary, err := h.jobsService.RunAutoDemotion(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
