package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finlead/membership-backend/internal/types"
)

// ============================================
// Auth
// ============================================

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// ============================================
// Membership lifecycle
// ============================================

type SuspensionRequest struct {
	EndDate string `json:"endDate" binding:"required"` // YYYY-MM-DD
	Reason  string `json:"reason"`
}

type CancellationRequest struct {
	Reason       string `json:"reason" binding:"required"`
	Detail       string `json:"detail"`
	Continuation string `json:"continuation"`
}

type DelinquencyRequest struct {
	Reason string `json:"reason"`
}

// PaymentEventRequest is the provider webhook payload, reduced to what the
// lifecycle engine acts on.
type PaymentEventRequest struct {
	MemberID string `json:"memberId" binding:"required"`
	Event    string `json:"event" binding:"required"` // payment_failed | payment_recovered | subscription_ended
}

// ============================================
// Promotion / onboarding
// ============================================

type PromotionSubmitRequest struct {
	TargetRole string `json:"targetRole" binding:"required"`
}

type PromotionReviewRequest struct {
	Approve      *bool  `json:"approve" binding:"required"`
	Notes        string `json:"notes"`
	RejectReason string `json:"rejectReason"`
}

type MilestonesRequest struct {
	MeetingCompleted *bool `json:"meetingCompleted"`
	SurveyCompleted  *bool `json:"surveyCompleted"`
}

// ============================================
// Meeting cycles
// ============================================

type AttendanceIntentRequest struct {
	Intent string `json:"intent" binding:"required"`
}

type AttendanceCompleteRequest struct {
	Via string `json:"via" binding:"required"` // code | video_survey
}

type AttendanceFinalizeRequest struct {
	Approval string `json:"approval" binding:"required"` // maintained | demoted
}

// ============================================
// Compensation / activity
// ============================================

type CompensationRequest struct {
	ReferralReward decimal.Decimal `json:"referralReward"`
	ContractReward decimal.Decimal `json:"contractReward"`
	Bonus          decimal.Decimal `json:"bonus"`
	Deduction      decimal.Decimal `json:"deduction"`
}

type CompensationLockRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

type SaleRequest struct {
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	InsuredCount int             `json:"insuredCount"`
	OccurredAt   string          `json:"occurredAt"` // YYYY-MM-DD, defaults to today
}

type ReferralRequest struct {
	TargetRole string `json:"targetRole" binding:"required"`
	Approved   bool   `json:"approved"`
}

type MentoringRequestCreate struct {
	Topic string `json:"topic" binding:"required"`
}

// ============================================
// Responses
// ============================================

type MemberResponse struct {
	ID              string                 `json:"id"`
	Email           string                 `json:"email"`
	Name            string                 `json:"name"`
	Role            types.Role             `json:"role"`
	Range           int                    `json:"range"`
	Status          types.MembershipStatus `json:"status"`
	StatusReason    string                 `json:"statusReason,omitempty"`
	StatusChangedAt time.Time              `json:"statusChangedAt"`
	JoinedAt        time.Time              `json:"joinedAt"`

	SuspensionStart     *time.Time `json:"suspensionStart,omitempty"`
	SuspensionEnd       *time.Time `json:"suspensionEnd,omitempty"`
	ReactivatedAt       *time.Time `json:"reactivatedAt,omitempty"`
	CancelRequestedAt   *time.Time `json:"cancelRequestedAt,omitempty"`
	ScheduledCancelDate *time.Time `json:"scheduledCancelDate,omitempty"`

	MeetingCompleted    bool `json:"meetingCompleted"`
	SurveyCompleted     bool `json:"surveyCompleted"`
	OnboardingUnlocked  bool `json:"onboardingUnlocked"`
	OnboardingCompleted bool `json:"onboardingCompleted"`

	CreatedAt time.Time `json:"createdAt"`
}

type StatusChangeResponse struct {
	ID         string                 `json:"id"`
	FromStatus types.MembershipStatus `json:"fromStatus"`
	ToStatus   types.MembershipStatus `json:"toStatus"`
	Reason     string                 `json:"reason"`
	Actor      string                 `json:"actor"`
	CreatedAt  time.Time              `json:"createdAt"`
}

type RoleChangeResponse struct {
	ID        string     `json:"id"`
	FromRole  types.Role `json:"fromRole"`
	ToRole    types.Role `json:"toRole"`
	Reason    string     `json:"reason"`
	Actor     string     `json:"actor"`
	CreatedAt time.Time  `json:"createdAt"`
}

type ApplicationResponse struct {
	ID           string                  `json:"id"`
	MemberID     string                  `json:"memberId"`
	TargetRole   types.Role              `json:"targetRole"`
	Status       types.ApplicationStatus `json:"status"`
	AppliedAt    time.Time               `json:"appliedAt"`
	ReviewedAt   *time.Time              `json:"reviewedAt,omitempty"`
	ReviewerID   *string                 `json:"reviewerId,omitempty"`
	ReviewNotes  *string                 `json:"reviewNotes,omitempty"`
	RejectReason *string                 `json:"rejectReason,omitempty"`
}

type AttendanceResponse struct {
	ID           string                 `json:"id"`
	MemberID     string                 `json:"memberId"`
	Cycle        string                 `json:"cycle"`
	Intent       types.AttendanceIntent `json:"intent"`
	Completed    bool                   `json:"completed"`
	CompletedVia string                 `json:"completedVia,omitempty"`
	Approval     types.FinalApproval    `json:"approval,omitempty"`
	Archived     bool                   `json:"archived"`
}

type CompensationResponse struct {
	ID             string          `json:"id"`
	MemberID       string          `json:"memberId"`
	Month          string          `json:"month"`
	ReferralReward decimal.Decimal `json:"referralReward"`
	ContractReward decimal.Decimal `json:"contractReward"`
	Bonus          decimal.Decimal `json:"bonus"`
	Deduction      decimal.Decimal `json:"deduction"`
	Total          decimal.Decimal `json:"total"`
	Locked         bool            `json:"locked"`
}

type NotificationResponse struct {
	ID        string                  `json:"id"`
	MemberID  string                  `json:"memberId"`
	Type      string                  `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Read      bool                    `json:"read"`
	Data      *map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time               `json:"createdAt"`
}
