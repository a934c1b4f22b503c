package service

import (
	"context"
	"fmt"
	"log"

	"github.com/finlead/membership-backend/internal/clock"
	"github.com/finlead/membership-backend/internal/identity"
	"github.com/finlead/membership-backend/internal/notification"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/socket"
	"github.com/finlead/membership-backend/internal/types"
)

// OnboardingProgress reports checklist completion after a step is recorded.
type OnboardingProgress struct {
	Member        *repository.Member `json:"member"`
	Steps         map[string]bool    `json:"steps"`
	Completed     bool               `json:"completed"`
	RoleChanged   bool               `json:"roleChanged"`
	EffectiveRole types.Role         `json:"effectiveRole"`
}

func onboardingProgress(member *repository.Member) *OnboardingProgress {
	return &OnboardingProgress{
		Member: member,
		Steps: map[string]bool{
			string(types.StepComplianceTest): member.ComplianceTestPassed,
			string(types.StepGuidanceViewed): member.GuidanceViewed,
			string(types.StepManagerContact): member.ManagerContactConfirmed,
			string(types.StepPayoutAccount):  member.PayoutAccountRegistered,
		},
		Completed:     member.OnboardingCompleted,
		EffectiveRole: member.Role,
	}
}

// PromotionStats reports the two promotion counters. Applications approved
// and effective role changes are distinct events (the associate role change
// waits for onboarding) and are never summed together.
type PromotionStats struct {
	ApplicationsApproved int `json:"applicationsApproved"`
	RoleChanges          int `json:"roleChanges"`
}

type PromotionService interface {
	Submit(ctx context.Context, memberID string, targetRole types.Role) (*repository.PromotionApplication, error)
	Review(ctx context.Context, applicationID string, approve bool, reviewerID, notes, rejectReason string) (*repository.PromotionApplication, error)
	CompleteOnboardingStep(ctx context.Context, memberID string, step types.OnboardingStep) (*OnboardingProgress, error)
	OnboardingStatus(ctx context.Context, memberID string) (*OnboardingProgress, error)
	ListByStatus(ctx context.Context, status types.ApplicationStatus) ([]*repository.PromotionApplication, error)
	PendingForMember(ctx context.Context, memberID string) (*repository.PromotionApplication, error)
	Stats(ctx context.Context) (*PromotionStats, error)
}

type promotionService struct {
	memberRepo    repository.MemberRepository
	promotionRepo repository.PromotionRepository
	roleRepo      repository.RoleHistoryRepository
	identity      identity.Provider
	notifSvc      *notification.Service
	b             *socket.Broadcaster
	clock         clock.Clock
}

func NewPromotionService(
	memberRepo repository.MemberRepository,
	promotionRepo repository.PromotionRepository,
	roleRepo repository.RoleHistoryRepository,
	identityProvider identity.Provider,
	notifSvc *notification.Service,
	b *socket.Broadcaster,
	clk clock.Clock,
) PromotionService {
	return &promotionService{
		memberRepo:    memberRepo,
		promotionRepo: promotionRepo,
		roleRepo:      roleRepo,
		identity:      identityProvider,
		notifSvc:      notifSvc,
		b:             b,
		clock:         clk,
	}
}

func (s *promotionService) notify(ctx context.Context, memberID, kind, title, message string, data map[string]interface{}) {
	if s.notifSvc == nil {
		return
	}
	if err := s.notifSvc.Notify(ctx, memberID, kind, title, message, data); err != nil {
		log.Printf("[Promotion] Failed to notify member %s: %v", memberID, err)
	}
}

// changeRole moves the member to a new role under the per-member lock,
// appending the role history entry while the lock is held, then syncs the
// identity provider best-effort.
func (s *promotionService) changeRole(ctx context.Context, memberID string, to types.Role, reason, actor string, mutate func(*repository.Member)) (*repository.Member, error) {
	var from types.Role
	member, err := s.memberRepo.UpdateLocked(ctx, memberID, func(m *repository.Member) error {
		from = m.Role
		m.Role = to
		if mutate != nil {
			mutate(m)
		}
		return s.roleRepo.Append(ctx, &repository.RoleChange{
			MemberID: memberID,
			FromRole: from,
			ToRole:   to,
			Reason:   reason,
			Actor:    actor,
		})
	})
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	if err := s.identity.UpdateRoleMetadata(ctx, memberID, to); err != nil {
		log.Printf("[Promotion] ⚠️ Failed to sync role to identity provider for %s: %v", memberID, err)
	}
	if s.b != nil {
		s.b.SendRoleChanged(memberID, string(from), string(to))
	}
	return member, nil
}

// Submit creates a promotion application. A member can hold at most one
// pending application; the insert-if-absent path plus the partial unique
// index make the duplicate check race-free.
func (s *promotionService) Submit(ctx context.Context, memberID string, targetRole types.Role) (*repository.PromotionApplication, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if member.Status != types.StatusActive {
		return nil, &StateError{Current: string(member.Status), Attempted: "submit promotion application"}
	}
	if targetRole.Rank() != member.Role.Rank()+1 {
		return nil, &ValidationError{Field: "targetRole", Message: "must be the next role up"}
	}

	app := &repository.PromotionApplication{
		MemberID:   memberID,
		TargetRole: targetRole,
		Status:     types.ApplicationPending,
		AppliedAt:  s.clock.Now(),
	}
	created, err := s.promotionRepo.CreateIfNonePending(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("%w: a pending application already exists", ErrConflict)
	}

	s.notify(ctx, memberID, notification.TypePromotionSubmitted,
		"Application received",
		fmt.Sprintf("Your application for the %s role has been received and is awaiting review.", targetRole), nil)

	return app, nil
}

// Review decides a pending application. Approving an associate application
// does NOT change the role: it unlocks the onboarding checklist and the role
// change happens when the final step completes. Approving a manager
// application changes the role immediately.
func (s *promotionService) Review(ctx context.Context, applicationID string, approve bool, reviewerID, notes, rejectReason string) (*repository.PromotionApplication, error) {
	app, err := s.promotionRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app == nil {
		return nil, ErrNotFound
	}
	if app.Status.IsTerminal() {
		return nil, &StateError{Current: string(app.Status), Attempted: "review application"}
	}
	if app.MemberID == reviewerID {
		return nil, &ValidationError{Field: "reviewerId", Message: "cannot review own application"}
	}
	if !approve && rejectReason == "" {
		return nil, &ValidationError{Field: "rejectReason", Message: "is required when rejecting"}
	}

	now := s.clock.Now()
	app.ReviewedAt = &now
	app.ReviewerID = &reviewerID
	if notes != "" {
		app.ReviewNotes = &notes
	}

	if !approve {
		app.Status = types.ApplicationRejected
		app.RejectReason = &rejectReason
		if err := s.promotionRepo.Update(ctx, app); err != nil {
			return nil, fmt.Errorf("failed to update application: %w", err)
		}
		s.notify(ctx, app.MemberID, notification.TypePromotionRejected,
			"Application decision",
			fmt.Sprintf("Your application for the %s role was not approved: %s", app.TargetRole, rejectReason), nil)
		return app, nil
	}

	app.Status = types.ApplicationApproved
	if err := s.promotionRepo.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}

	if app.TargetRole == types.RoleAssociate {
		// Reset the checklist so completion is measured from approval, then
		// unlock it. The unlock flag is the only thing that lets onboarding
		// steps through, so the deferred role change cannot happen without
		// a reviewed application.
		if _, err := s.memberRepo.UpdateLocked(ctx, app.MemberID, func(m *repository.Member) error {
			m.ResetOnboarding()
			m.OnboardingUnlocked = true
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to reset onboarding: %w", err)
		}
		s.notify(ctx, app.MemberID, notification.TypePromotionApproved,
			"Application approved",
			"Your associate application is approved. Complete the onboarding checklist to activate your new role.", nil)
		return app, nil
	}

	if _, err := s.changeRole(ctx, app.MemberID, app.TargetRole,
		"promotion application approved", reviewerID, nil); err != nil {
		return nil, err
	}
	s.notify(ctx, app.MemberID, notification.TypePromotionApproved,
		"Application approved",
		fmt.Sprintf("Congratulations, you have been promoted to %s.", app.TargetRole), nil)

	return app, nil
}

// CompleteOnboardingStep records one checklist step. Recording an already
// complete step is a no-op. When the final step lands, the deferred
// member -> associate role change takes effect.
func (s *promotionService) CompleteOnboardingStep(ctx context.Context, memberID string, step types.OnboardingStep) (*OnboardingProgress, error) {
	if !types.IsValidOnboardingStep(string(step)) {
		return nil, &ValidationError{Field: "step", Message: "unknown onboarding step"}
	}

	var becameComplete bool
	member, err := s.memberRepo.UpdateLocked(ctx, memberID, func(m *repository.Member) error {
		if !m.OnboardingUnlocked {
			return &StateError{Current: "onboarding locked", Attempted: "complete onboarding step"}
		}
		switch step {
		case types.StepComplianceTest:
			m.ComplianceTestPassed = true
		case types.StepGuidanceViewed:
			m.GuidanceViewed = true
		case types.StepManagerContact:
			m.ManagerContactConfirmed = true
		case types.StepPayoutAccount:
			m.PayoutAccountRegistered = true
		}
		if m.OnboardingDone() && !m.OnboardingCompleted {
			m.OnboardingCompleted = true
			becameComplete = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	progress := onboardingProgress(member)

	if becameComplete && member.Role == types.RoleMember {
		updated, err := s.changeRole(ctx, memberID, types.RoleAssociate,
			"onboarding checklist completed", memberID, nil)
		if err != nil {
			return nil, err
		}
		progress.Member = updated
		progress.RoleChanged = true
		progress.EffectiveRole = updated.Role

		s.notify(ctx, memberID, notification.TypeRoleChanged,
			"Welcome, associate",
			"You completed onboarding and your associate role is now active.", nil)
	}

	return progress, nil
}

// OnboardingStatus reports the current checklist state without recording
// anything.
func (s *promotionService) OnboardingStatus(ctx context.Context, memberID string) (*OnboardingProgress, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return onboardingProgress(member), nil
}

func (s *promotionService) ListByStatus(ctx context.Context, status types.ApplicationStatus) ([]*repository.PromotionApplication, error) {
	return s.promotionRepo.FindByStatus(ctx, status)
}

func (s *promotionService) PendingForMember(ctx context.Context, memberID string) (*repository.PromotionApplication, error) {
	return s.promotionRepo.FindPendingByMemberID(ctx, memberID)
}

// Stats returns the two counters side by side. Approved-application count and
// effective role-change count answer different questions and stay separate.
func (s *promotionService) Stats(ctx context.Context) (*PromotionStats, error) {
	approved, err := s.promotionRepo.CountApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count approved applications: %w", err)
	}
	changes, err := s.roleRepo.CountPromotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count role changes: %w", err)
	}
	return &PromotionStats{ApplicationsApproved: approved, RoleChanges: changes}, nil
}
