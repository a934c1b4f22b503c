package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finlead/membership-backend/internal/models"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth         *AuthHandler
	Member       *MemberHandler
	Membership   *MembershipHandler
	Promotion    *PromotionHandler
	Eligibility  *EligibilityHandler
	Meeting      *MeetingHandler
	Compensation *CompensationHandler
	Job          *JobHandler
	Notification *NotificationHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:         &AuthHandler{authService: services.Auth},
		Member:       &MemberHandler{memberService: services.Member},
		Membership:   &MembershipHandler{membershipService: services.Membership},
		Promotion:    &PromotionHandler{promotionService: services.Promotion},
		Eligibility:  &EligibilityHandler{eligibilityService: services.Eligibility},
		Meeting:      &MeetingHandler{meetingService: services.Meeting},
		Compensation: &CompensationHandler{compensationService: services.Compensation},
		Job:          &JobHandler{jobsService: services.Jobs},
		Notification: &NotificationHandler{memberService: services.Member},
	}
}

// respondError maps service errors to HTTP statuses. Anything unmapped is a
// 500 with a generic body so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrMemberNotFound), errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrLocked):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEvaluationTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrMemberExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// ============================================
// Response Mappers
// ============================================

func toMemberResponse(m *repository.Member) models.MemberResponse {
	return models.MemberResponse{
		ID:                  m.ID,
		Email:               m.Email,
		Name:                m.Name,
		Role:                m.Role,
		Range:               m.Range,
		Status:              m.Status,
		StatusReason:        m.StatusReason,
		StatusChangedAt:     m.StatusChangedAt,
		JoinedAt:            m.JoinedAt,
		SuspensionStart:     m.SuspensionStart,
		SuspensionEnd:       m.SuspensionEnd,
		ReactivatedAt:       m.ReactivatedAt,
		CancelRequestedAt:   m.CancelRequestedAt,
		ScheduledCancelDate: m.ScheduledCancelDate,
		MeetingCompleted:    m.MeetingCompleted,
		SurveyCompleted:     m.SurveyCompleted,
		OnboardingUnlocked:  m.OnboardingUnlocked,
		OnboardingCompleted: m.OnboardingCompleted,
		CreatedAt:           m.CreatedAt,
	}
}

func toStatusChangeResponse(sc *repository.StatusChange) models.StatusChangeResponse {
	return models.StatusChangeResponse{
		ID:         sc.ID,
		FromStatus: sc.FromStatus,
		ToStatus:   sc.ToStatus,
		Reason:     sc.Reason,
		Actor:      sc.Actor,
		CreatedAt:  sc.CreatedAt,
	}
}

func toRoleChangeResponse(rc *repository.RoleChange) models.RoleChangeResponse {
	return models.RoleChangeResponse{
		ID:        rc.ID,
		FromRole:  rc.FromRole,
		ToRole:    rc.ToRole,
		Reason:    rc.Reason,
		Actor:     rc.Actor,
		CreatedAt: rc.CreatedAt,
	}
}

func toApplicationResponse(a *repository.PromotionApplication) models.ApplicationResponse {
	return models.ApplicationResponse{
		ID:           a.ID,
		MemberID:     a.MemberID,
		TargetRole:   a.TargetRole,
		Status:       a.Status,
		AppliedAt:    a.AppliedAt,
		ReviewedAt:   a.ReviewedAt,
		ReviewerID:   a.ReviewerID,
		ReviewNotes:  a.ReviewNotes,
		RejectReason: a.RejectReason,
	}
}

func toAttendanceResponse(a *repository.MeetingAttendance) models.AttendanceResponse {
	return models.AttendanceResponse{
		ID:           a.ID,
		MemberID:     a.MemberID,
		Cycle:        a.Cycle,
		Intent:       a.Intent,
		Completed:    a.Completed,
		CompletedVia: a.CompletedVia,
		Approval:     a.Approval,
		Archived:     a.Archived,
	}
}

func toCompensationResponse(cp *repository.Compensation) models.CompensationResponse {
	return models.CompensationResponse{
		ID:             cp.ID,
		MemberID:       cp.MemberID,
		Month:          cp.Month,
		ReferralReward: cp.ReferralReward,
		ContractReward: cp.ContractReward,
		Bonus:          cp.Bonus,
		Deduction:      cp.Deduction,
		Total:          cp.Total(),
		Locked:         cp.Locked,
	}
}

func toNotificationResponse(n *repository.Notification) models.NotificationResponse {
	resp := models.NotificationResponse{
		ID:        n.ID,
		MemberID:  n.MemberID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	if n.Data != nil {
		resp.Data = &n.Data
	}
	return resp
}
