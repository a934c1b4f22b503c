// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finlead/membership-backend/internal/types"
)

// ============================================
// Models / Entities
// ============================================

type Member struct {
	ID       string
	Email    string
	Password string
	Name     string

	Role types.Role
	// Range is the member's sub-rank within their role; manager eligibility
	// thresholds vary by range.
	Range int

	Status          types.MembershipStatus
	StatusReason    string
	StatusChangedAt time.Time
	StatusChangedBy string

	// Payment provider subscription backing the recurring charge.
	SubscriptionID string

	JoinedAt time.Time

	SuspensionStart *time.Time
	SuspensionEnd   *time.Time
	ReactivatedAt   *time.Time

	CancelRequestedAt   *time.Time
	ScheduledCancelDate *time.Time

	// Associate-eligibility milestones.
	MeetingCompleted bool
	SurveyCompleted  bool

	// Onboarding checklist. OnboardingUnlocked is set only when an
	// associate application is approved; steps are rejected without it.
	OnboardingUnlocked      bool
	ComplianceTestPassed    bool
	GuidanceViewed          bool
	ManagerContactConfirmed bool
	PayoutAccountRegistered bool
	OnboardingCompleted     bool

	// Members with financial history are never hard-deleted.
	Retired bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OnboardingDone reports whether every checklist step is complete.
func (m *Member) OnboardingDone() bool {
	return m.ComplianceTestPassed && m.GuidanceViewed &&
		m.ManagerContactConfirmed && m.PayoutAccountRegistered
}

// ResetOnboarding clears every checklist flag and relocks the checklist.
func (m *Member) ResetOnboarding() {
	m.OnboardingUnlocked = false
	m.ComplianceTestPassed = false
	m.GuidanceViewed = false
	m.ManagerContactConfirmed = false
	m.PayoutAccountRegistered = false
	m.OnboardingCompleted = false
}

type RefreshToken struct {
	ID        string
	Token     string
	MemberID  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// StatusChange is one append-only audit entry for a membership status
// transition. Every transition writes exactly one entry.
type StatusChange struct {
	ID         string
	MemberID   string
	FromStatus types.MembershipStatus
	ToStatus   types.MembershipStatus
	Reason     string
	Actor      string
	CreatedAt  time.Time
}

// RoleChange is one append-only audit entry for a role transition.
type RoleChange struct {
	ID        string
	MemberID  string
	FromRole  types.Role
	ToRole    types.Role
	Reason    string
	Actor     string
	CreatedAt time.Time
}

type PromotionApplication struct {
	ID           string
	MemberID     string
	TargetRole   types.Role
	Status       types.ApplicationStatus
	AppliedAt    time.Time
	ReviewedAt   *time.Time
	ReviewerID   *string
	ReviewNotes  *string
	RejectReason *string
}

// MeetingAttendance is a member's participation record for one mandatory
// meeting cycle. Cycle is the calendar month of the cycle, "YYYY-MM".
type MeetingAttendance struct {
	ID           string
	MemberID     string
	Cycle        string
	Intent       types.AttendanceIntent
	Completed    bool
	CompletedVia string // "code" or "video_survey"
	Approval     types.FinalApproval
	FinalizedBy  *string
	FinalizedAt  *time.Time
	Archived     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Compensation is one member's reward record for one calendar month
// ("YYYY-MM"). Locked records reject edits until explicitly unlocked.
type Compensation struct {
	ID             string
	MemberID       string
	Month          string
	ReferralReward decimal.Decimal
	ContractReward decimal.Decimal
	Bonus          decimal.Decimal
	Deduction      decimal.Decimal
	Locked         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Total is the month's payable amount.
func (c *Compensation) Total() decimal.Decimal {
	return c.ReferralReward.Add(c.ContractReward).Add(c.Bonus).Sub(c.Deduction)
}

// SalesRecord is one reported contract: volume plus insured policies.
type SalesRecord struct {
	ID           string
	MemberID     string
	Amount       decimal.Decimal
	InsuredCount int
	OccurredAt   time.Time
}

// Referral is one recruit referred by a member toward a target role.
type Referral struct {
	ID         string
	MemberID   string
	TargetRole types.Role
	Approved   bool
	CreatedAt  time.Time
}

// MentoringRequest is an open 1:1 mentoring-meeting request. Demotion purges
// a member's open requests.
type MentoringRequest struct {
	ID        string
	MemberID  string
	Topic     string
	Open      bool
	CreatedAt time.Time
}

type Notification struct {
	ID        string
	MemberID  string
	Type      string
	Title     string
	Message   string
	Read      bool
	Data      map[string]interface{}
	CreatedAt time.Time
}

// ============================================
// Repository Interfaces
// ============================================

type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	FindByID(ctx context.Context, id string) (*Member, error)
	FindByEmail(ctx context.Context, email string) (*Member, error)
	FindAll(ctx context.Context) ([]*Member, error)
	Update(ctx context.Context, member *Member) error

	// UpdateLocked runs fn over the member row under a per-member lock and
	// persists the result. It is the read-modify-write primitive every
	// status and role transition goes through. fn returning an error aborts
	// without writing.
	UpdateLocked(ctx context.Context, id string, fn func(*Member) error) (*Member, error)

	// FindSuspendedDue returns members whose suspension window has elapsed.
	FindSuspendedDue(ctx context.Context, now time.Time) ([]*Member, error)

	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteMemberRefreshTokens(ctx context.Context, memberID string) error
}

type StatusHistoryRepository interface {
	Append(ctx context.Context, change *StatusChange) error
	FindByMemberID(ctx context.Context, memberID string) ([]*StatusChange, error)
}

type RoleHistoryRepository interface {
	Append(ctx context.Context, change *RoleChange) error
	FindByMemberID(ctx context.Context, memberID string) ([]*RoleChange, error)
	CountPromotions(ctx context.Context) (int, error)
}

type PromotionRepository interface {
	// CreateIfNonePending inserts the application only when the member has
	// no pending one. Returns false when a pending application already
	// exists; the partial unique index is the last line of defense behind
	// this check.
	CreateIfNonePending(ctx context.Context, app *PromotionApplication) (bool, error)
	FindByID(ctx context.Context, id string) (*PromotionApplication, error)
	FindPendingByMemberID(ctx context.Context, memberID string) (*PromotionApplication, error)
	FindByStatus(ctx context.Context, status types.ApplicationStatus) ([]*PromotionApplication, error)
	Update(ctx context.Context, app *PromotionApplication) error
	// DeletePending removes the member's pending application, if any.
	DeletePending(ctx context.Context, memberID string) error
	CountApproved(ctx context.Context) (int, error)
}

type AttendanceRepository interface {
	Upsert(ctx context.Context, att *MeetingAttendance) error
	FindByMemberCycle(ctx context.Context, memberID, cycle string) (*MeetingAttendance, error)
	FindByCycleApproval(ctx context.Context, cycle string, approval types.FinalApproval) ([]*MeetingAttendance, error)
	Update(ctx context.Context, att *MeetingAttendance) error
	Archive(ctx context.Context, id string) error
}

type CompensationRepository interface {
	FindByID(ctx context.Context, id string) (*Compensation, error)
	FindByMemberMonth(ctx context.Context, memberID, month string) (*Compensation, error)
	FindByMemberID(ctx context.Context, memberID string) ([]*Compensation, error)
	Upsert(ctx context.Context, comp *Compensation) error
	SetLocked(ctx context.Context, id string, locked bool) error
	// SumTotals sums monthly totals for months in [fromMonth, toMonth],
	// inclusive, both "YYYY-MM".
	SumTotals(ctx context.Context, memberID, fromMonth, toMonth string) (decimal.Decimal, error)
}

type ActivityRepository interface {
	AddSale(ctx context.Context, sale *SalesRecord) error
	AddReferral(ctx context.Context, ref *Referral) error
	SumSalesVolume(ctx context.Context, memberID string, from, to time.Time) (decimal.Decimal, error)
	SumInsuredCount(ctx context.Context, memberID string, from, to time.Time) (int, error)
	CountApprovedReferrals(ctx context.Context, memberID string, target types.Role, from, to time.Time) (int, error)
}

type MentoringRepository interface {
	Create(ctx context.Context, req *MentoringRequest) error
	FindOpenByMemberID(ctx context.Context, memberID string) ([]*MentoringRequest, error)
	// CloseAllForMember closes every open request and returns how many it closed.
	CloseAllForMember(ctx context.Context, memberID string) (int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	FindByMemberID(ctx context.Context, memberID string, unreadOnly bool) ([]*Notification, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkAllAsRead(ctx context.Context, memberID string) error
	Delete(ctx context.Context, id string) error
}

// ============================================
// Repositories Container
// ============================================

type Repositories struct {
	MemberRepo        MemberRepository
	StatusHistoryRepo StatusHistoryRepository
	RoleHistoryRepo   RoleHistoryRepository
	PromotionRepo     PromotionRepository
	AttendanceRepo    AttendanceRepository
	CompensationRepo  CompensationRepository
	ActivityRepo      ActivityRepository
	MentoringRepo     MentoringRepository
	NotificationRepo  NotificationRepository
}

// NewRepositories creates in-memory repositories (for testing/fallback)
func NewRepositories() *Repositories {
	return &Repositories{
		MemberRepo:        newInMemoryMemberRepository(),
		StatusHistoryRepo: newInMemoryStatusHistoryRepository(),
		RoleHistoryRepo:   newInMemoryRoleHistoryRepository(),
		PromotionRepo:     newInMemoryPromotionRepository(),
		AttendanceRepo:    newInMemoryAttendanceRepository(),
		CompensationRepo:  newInMemoryCompensationRepository(),
		ActivityRepo:      newInMemoryActivityRepository(),
		MentoringRepo:     newInMemoryMentoringRepository(),
		NotificationRepo:  newInMemoryNotificationRepository(),
	}
}

// NewPgRepositories creates PostgreSQL-backed repositories
func NewPgRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		MemberRepo:        &pgMemberRepository{pool: pool},
		StatusHistoryRepo: &pgStatusHistoryRepository{pool: pool},
		RoleHistoryRepo:   &pgRoleHistoryRepository{pool: pool},
		PromotionRepo:     &pgPromotionRepository{pool: pool},
		AttendanceRepo:    &pgAttendanceRepository{pool: pool},
		CompensationRepo:  &pgCompensationRepository{pool: pool},
		ActivityRepo:      &pgActivityRepository{pool: pool},
		MentoringRepo:     &pgMentoringRepository{pool: pool},
		NotificationRepo:  &pgNotificationRepository{pool: pool},
	}
}
