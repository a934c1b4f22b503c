package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/finlead/membership-backend/internal/billing"
	"github.com/finlead/membership-backend/internal/clock"
	"github.com/finlead/membership-backend/internal/config"
	"github.com/finlead/membership-backend/internal/notification"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/socket"
	"github.com/finlead/membership-backend/internal/types"
)

// SuspensionResult is what a successful suspension request returns.
type SuspensionResult struct {
	Member   *repository.Member `json:"member"`
	EndDate  time.Time          `json:"endDate"`
	Warnings []string           `json:"warnings,omitempty"`
}

// CancellationInput is the member-supplied cancellation form. Detail carries
// the free-text explanation when the reason is "other"; Continuation records
// what the member chose to keep after leaving (nothing is gated on it).
type CancellationInput struct {
	Reason       string
	Detail       string
	Continuation string
}

// CancellationResult reports whether the cancellation was deferred to the
// minimum-commitment anchor or takes effect at the current billing period end.
type CancellationResult struct {
	Member *repository.Member `json:"member"`
	// IsScheduled is true when the request landed inside the minimum
	// commitment period and the effective date was pushed out.
	IsScheduled   bool       `json:"isScheduled"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
	Warnings      []string   `json:"warnings,omitempty"`
}

// MembershipService owns every membership status transition. All writes go
// through the transition table and the per-member lock, and every transition
// appends exactly one status history entry.
type MembershipService interface {
	RequestSuspension(ctx context.Context, memberID string, endDate time.Time, reason string) (*SuspensionResult, error)
	ResumeSuspension(ctx context.Context, memberID, actor string) (*repository.Member, error)
	RequestCancellation(ctx context.Context, memberID string, input CancellationInput) (*CancellationResult, error)
	MarkDelinquent(ctx context.Context, memberID, actor, reason string) (*repository.Member, error)
	HandlePaymentFailed(ctx context.Context, memberID string) (*repository.Member, error)
	HandlePaymentRecovered(ctx context.Context, memberID string) (*repository.Member, error)
	FinalizeCancellation(ctx context.Context, memberID string) (*repository.Member, error)
}

type membershipService struct {
	memberRepo repository.MemberRepository
	statusRepo repository.StatusHistoryRepository
	billing    billing.Provider
	notifSvc   *notification.Service
	b          *socket.Broadcaster
	clock      clock.Clock
	cfg        *config.Config
}

func NewMembershipService(
	memberRepo repository.MemberRepository,
	statusRepo repository.StatusHistoryRepository,
	billingProvider billing.Provider,
	notifSvc *notification.Service,
	b *socket.Broadcaster,
	clk clock.Clock,
	cfg *config.Config,
) MembershipService {
	return &membershipService{
		memberRepo: memberRepo,
		statusRepo: statusRepo,
		billing:    billingProvider,
		notifSvc:   notifSvc,
		b:          b,
		clock:      clk,
		cfg:        cfg,
	}
}

// transition moves the member to a new status under the per-member lock,
// validating against the transition table and appending the audit entry while
// the lock is still held. mutate applies status-specific fields beyond the
// status itself and may be nil.
func (s *membershipService) transition(
	ctx context.Context,
	memberID string,
	to types.MembershipStatus,
	reason, actor string,
	mutate func(*repository.Member),
) (*repository.Member, error) {
	var from types.MembershipStatus
	now := s.clock.Now()

	member, err := s.memberRepo.UpdateLocked(ctx, memberID, func(m *repository.Member) error {
		if !types.CanTransition(m.Status, to) {
			return illegalTransition(m.Status, to)
		}
		from = m.Status
		m.Status = to
		m.StatusReason = reason
		m.StatusChangedAt = now
		m.StatusChangedBy = actor
		if mutate != nil {
			mutate(m)
		}
		return s.statusRepo.Append(ctx, &repository.StatusChange{
			MemberID:   memberID,
			FromStatus: from,
			ToStatus:   to,
			Reason:     reason,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	if s.b != nil {
		s.b.SendStatusChanged(memberID, string(from), string(to), reason)
	}
	return member, nil
}

func (s *membershipService) notify(ctx context.Context, memberID, kind, title, message string, data map[string]interface{}) {
	if s.notifSvc == nil {
		return
	}
	if err := s.notifSvc.Notify(ctx, memberID, kind, title, message, data); err != nil {
		log.Printf("[Membership] Failed to notify member %s: %v", memberID, err)
	}
}

// RequestSuspension pauses the membership until endDate. The window may not
// extend past the policy maximum (measured in calendar months from today).
func (s *membershipService) RequestSuspension(ctx context.Context, memberID string, endDate time.Time, reason string) (*SuspensionResult, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	now := s.clock.Now()
	if !endDate.After(now) {
		return nil, &ValidationError{Field: "endDate", Message: "must be in the future"}
	}
	maxEnd := now.AddDate(0, s.cfg.SuspensionMaxMonths, 0)
	if endDate.After(maxEnd) {
		return nil, &ValidationError{
			Field:   "endDate",
			Message: fmt.Sprintf("suspension may not exceed %d months", s.cfg.SuspensionMaxMonths),
		}
	}
	if member.Status != types.StatusActive {
		return nil, &ValidationError{Field: "status", Message: "only active memberships can be suspended"}
	}

	updated, err := s.transition(ctx, memberID, types.StatusSuspended, reason, memberID, func(m *repository.Member) {
		start := now
		end := endDate
		m.SuspensionStart = &start
		m.SuspensionEnd = &end
	})
	if err != nil {
		return nil, err
	}

	result := &SuspensionResult{Member: updated, EndDate: endDate}

	// Internal state is authoritative; the provider call happens after the
	// commit and a failure is reported, not rolled back.
	if err := s.billing.PauseBilling(ctx, updated.SubscriptionID, endDate); err != nil {
		log.Printf("[Membership] ⚠️ Failed to pause billing for %s: %v", memberID, err)
		result.Warnings = append(result.Warnings, "billing pause failed and will be retried by reconciliation")
	}

	s.notify(ctx, memberID, notification.TypeSuspensionConfirmed,
		"Membership suspended",
		fmt.Sprintf("Your membership is suspended until %s. Billing is paused for the duration.", endDate.Format("January 2, 2006")),
		map[string]interface{}{"effectiveDate": endDate.Format("2006-01-02")})

	return result, nil
}

// ResumeSuspension reactivates a suspended membership before its window ends.
func (s *membershipService) ResumeSuspension(ctx context.Context, memberID, actor string) (*repository.Member, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if member.Status != types.StatusSuspended {
		return nil, &StateError{Current: string(member.Status), Attempted: "resume suspension"}
	}

	now := s.clock.Now()
	updated, err := s.transition(ctx, memberID, types.StatusActive, "suspension ended early by request", actor, func(m *repository.Member) {
		m.SuspensionStart = nil
		m.SuspensionEnd = nil
		m.ReactivatedAt = &now
	})
	if err != nil {
		return nil, err
	}

	if err := s.billing.UnpauseBilling(ctx, updated.SubscriptionID); err != nil {
		log.Printf("[Membership] ⚠️ Failed to unpause billing for %s: %v", memberID, err)
	}

	s.notify(ctx, memberID, notification.TypeSuspensionEnded,
		"Membership reactivated",
		"Your membership is active again and billing has resumed.", nil)

	return updated, nil
}

// RequestCancellation moves the member to cancellation-pending. Requests made
// before the minimum commitment has elapsed are accepted but deferred: the
// effective date becomes the commitment anchor, not the period end.
func (s *membershipService) RequestCancellation(ctx context.Context, memberID string, input CancellationInput) (*CancellationResult, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if !member.Status.IsCancellable() {
		return nil, &StateError{Current: string(member.Status), Attempted: "request cancellation"}
	}
	if input.Reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "is required"}
	}

	now := s.clock.Now()
	commitmentEnd := member.JoinedAt.AddDate(0, s.cfg.MinCommitmentMonths, 0)
	scheduled := now.Before(commitmentEnd)

	fullReason := input.Reason
	if input.Detail != "" {
		fullReason = input.Reason + ": " + input.Detail
	}
	if input.Continuation != "" {
		fullReason += " (continuation: " + input.Continuation + ")"
	}

	updated, err := s.transition(ctx, memberID, types.StatusCancellationPending, fullReason, memberID, func(m *repository.Member) {
		m.CancelRequestedAt = &now
		if scheduled {
			anchor := commitmentEnd
			m.ScheduledCancelDate = &anchor
		} else {
			m.ScheduledCancelDate = nil
		}
	})
	if err != nil {
		return nil, err
	}

	result := &CancellationResult{Member: updated, IsScheduled: scheduled}
	var cancelAt time.Time
	if scheduled {
		cancelAt = commitmentEnd
		result.EffectiveDate = &commitmentEnd
	}

	if err := s.billing.ScheduleCancellation(ctx, updated.SubscriptionID, cancelAt); err != nil {
		log.Printf("[Membership] ⚠️ Failed to schedule cancellation for %s: %v", memberID, err)
		result.Warnings = append(result.Warnings, "provider cancellation scheduling failed and will be retried")
	}

	message := "Your cancellation is scheduled for the end of the current billing period."
	data := map[string]interface{}{}
	if scheduled {
		message = fmt.Sprintf(
			"Your membership is inside the %d-month minimum commitment, so cancellation takes effect on %s.",
			s.cfg.MinCommitmentMonths, commitmentEnd.Format("January 2, 2006"))
		data["effectiveDate"] = commitmentEnd.Format("2006-01-02")
	}
	s.notify(ctx, memberID, notification.TypeCancellationScheduled, "Cancellation scheduled", message, data)

	return result, nil
}

// MarkDelinquent is the admin escalation from past-due after repeated failed
// recovery attempts.
func (s *membershipService) MarkDelinquent(ctx context.Context, memberID, actor, reason string) (*repository.Member, error) {
	if reason == "" {
		reason = "payment recovery exhausted"
	}
	return s.transition(ctx, memberID, types.StatusDelinquent, reason, actor, nil)
}

// HandlePaymentFailed records a failed recurring charge reported by the
// payment provider. Repeated failure events while already past-due are no-ops.
func (s *membershipService) HandlePaymentFailed(ctx context.Context, memberID string) (*repository.Member, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if member.Status == types.StatusPastDue {
		return member, nil
	}

	updated, err := s.transition(ctx, memberID, types.StatusPastDue, "recurring charge failed", types.ActorSystem, nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, memberID, notification.TypePaymentFailed,
		"Payment failed",
		"Your latest membership payment failed. Please update your payment method to keep your membership active.", nil)

	return updated, nil
}

// HandlePaymentRecovered restores standing after a successful charge. Works
// from past-due and from delinquent.
func (s *membershipService) HandlePaymentRecovered(ctx context.Context, memberID string) (*repository.Member, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if member.Status == types.StatusActive {
		return member, nil
	}

	updated, err := s.transition(ctx, memberID, types.StatusActive, "payment recovered", types.ActorSystem, nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, memberID, notification.TypePaymentRecovered,
		"Payment received",
		"Your payment went through and your membership is in good standing again.", nil)

	return updated, nil
}

// FinalizeCancellation closes out a pending cancellation once the effective
// date has passed (reported by the provider or run by reconciliation).
func (s *membershipService) FinalizeCancellation(ctx context.Context, memberID string) (*repository.Member, error) {
	return s.transition(ctx, memberID, types.StatusCanceled, "cancellation effective", types.ActorSystem, func(m *repository.Member) {
		m.Retired = true
	})
}
