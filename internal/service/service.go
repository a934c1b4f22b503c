package service

import (
	"errors"
	"fmt"

	"github.com/finlead/membership-backend/internal/billing"
	"github.com/finlead/membership-backend/internal/clock"
	"github.com/finlead/membership-backend/internal/config"
	"github.com/finlead/membership-backend/internal/db"
	"github.com/finlead/membership-backend/internal/identity"
	"github.com/finlead/membership-backend/internal/notification"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/socket"
	"github.com/finlead/membership-backend/internal/types"
)

// Sentinel errors. Handlers map these to HTTP statuses; structured errors
// below unwrap to them so errors.Is works at every call site.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMemberExists       = errors.New("member already exists")
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")

	// ErrValidation covers malformed or out-of-policy input.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidState covers operations illegal for the current state
	// machine position.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrConflict covers uniqueness violations such as a duplicate pending
	// application.
	ErrConflict = errors.New("resource already exists")
	// ErrLocked covers edits to a finalized compensation record.
	ErrLocked = errors.New("record is locked")
	// ErrEvaluationTimeout is returned when the eligibility fan-out exceeds
	// its bound. Distinct from a generic failure so callers can retry
	// without re-validating input.
	ErrEvaluationTimeout = errors.New("eligibility evaluation timed out")
)

// ValidationError carries the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StateError carries the state that made the operation illegal.
type StateError struct {
	Current   string
	Attempted string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s from state %q", e.Attempted, e.Current)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

func illegalTransition(from, to types.MembershipStatus) error {
	return &StateError{Current: string(from), Attempted: "transition to " + string(to)}
}

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth         AuthService
	Member       MemberService
	Membership   MembershipService
	Eligibility  EligibilityService
	Promotion    PromotionService
	Meeting      MeetingService
	Compensation CompensationService
	Jobs         JobsService
	Broadcaster  *socket.Broadcaster
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	Clock       clock.Clock
	Billing     billing.Provider
	Identity    identity.Provider
	NotifSvc    *notification.Service
	Cache       *db.RedisDB
	Broadcaster *socket.Broadcaster
}

func NewServices(deps *ServiceDeps) *Services {
	clk := deps.Clock
	if clk == nil {
		clk = clock.System{}
	}
	billingProvider := deps.Billing
	if billingProvider == nil {
		billingProvider = billing.NoopProvider{}
	}
	identityProvider := deps.Identity
	if identityProvider == nil {
		identityProvider = identity.NoopProvider{}
	}

	membership := NewMembershipService(
		deps.Repos.MemberRepo,
		deps.Repos.StatusHistoryRepo,
		billingProvider,
		deps.NotifSvc,
		deps.Broadcaster,
		clk,
		deps.Config,
	)

	promotion := NewPromotionService(
		deps.Repos.MemberRepo,
		deps.Repos.PromotionRepo,
		deps.Repos.RoleHistoryRepo,
		identityProvider,
		deps.NotifSvc,
		deps.Broadcaster,
		clk,
	)

	return &Services{
		Auth:       NewAuthService(deps.Config, deps.Repos.MemberRepo),
		Member:     NewMemberService(deps.Repos.MemberRepo, deps.Repos.StatusHistoryRepo, deps.Repos.RoleHistoryRepo, deps.Repos.ActivityRepo, deps.Repos.MentoringRepo, deps.Repos.NotificationRepo, deps.Cache),
		Membership: membership,
		Eligibility: NewEligibilityService(
			deps.Repos.MemberRepo,
			deps.Repos.ActivityRepo,
			deps.Repos.CompensationRepo,
			deps.Cache,
			clk,
			deps.Config,
		),
		Promotion:    promotion,
		Meeting:      NewMeetingService(deps.Repos.MemberRepo, deps.Repos.AttendanceRepo, clk),
		Compensation: NewCompensationService(deps.Repos.CompensationRepo, deps.Repos.MemberRepo),
		Jobs: NewJobsService(
			deps.Repos.MemberRepo,
			deps.Repos.StatusHistoryRepo,
			deps.Repos.RoleHistoryRepo,
			deps.Repos.PromotionRepo,
			deps.Repos.AttendanceRepo,
			deps.Repos.MentoringRepo,
			billingProvider,
			identityProvider,
			deps.NotifSvc,
			clk,
		),
		Broadcaster: deps.Broadcaster,
	}
}
