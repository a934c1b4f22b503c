package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/finlead/membership-backend/internal/billing"
	"github.com/finlead/membership-backend/internal/clock"
	"github.com/finlead/membership-backend/internal/identity"
	"github.com/finlead/membership-backend/internal/notification"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

// JobOutcome is the per-member result of one reconciliation pass.
type JobOutcome struct {
	MemberID string   `json:"memberId"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// JobSummary is the report a reconciliation job returns. A rerun over already
// reconciled state produces only skips, never duplicate transitions.
type JobSummary struct {
	Job       string       `json:"job"`
	RanAt     time.Time    `json:"ranAt"`
	Succeeded []JobOutcome `json:"succeeded"`
	Skipped   []JobOutcome `json:"skipped"`
	Failed    []JobOutcome `json:"failed"`
}

func newJobSummary(job string, ranAt time.Time) *JobSummary {
	return &JobSummary{
		Job:       job,
		RanAt:     ranAt,
		Succeeded: []JobOutcome{},
		Skipped:   []JobOutcome{},
		Failed:    []JobOutcome{},
	}
}

// JobsService holds the idempotent batch jobs run on a schedule (or manually
// by an operator). Each job re-validates per-member state under the lock, so
// concurrent or repeated runs converge instead of double-applying.
type JobsService interface {
	RunAutoResume(ctx context.Context) (*JobSummary, error)
	RunAutoDemotion(ctx context.Context) (*JobSummary, error)
}

type jobsService struct {
	memberRepo    repository.MemberRepository
	statusRepo    repository.StatusHistoryRepository
	roleRepo      repository.RoleHistoryRepository
	promotionRepo repository.PromotionRepository
	attendance    repository.AttendanceRepository
	mentoring     repository.MentoringRepository
	billing       billing.Provider
	identity      identity.Provider
	notifSvc      *notification.Service
	clock         clock.Clock
}

func NewJobsService(
	memberRepo repository.MemberRepository,
	statusRepo repository.StatusHistoryRepository,
	roleRepo repository.RoleHistoryRepository,
	promotionRepo repository.PromotionRepository,
	attendance repository.AttendanceRepository,
	mentoring repository.MentoringRepository,
	billingProvider billing.Provider,
	identityProvider identity.Provider,
	notifSvc *notification.Service,
	clk clock.Clock,
) JobsService {
	return &jobsService{
		memberRepo:    memberRepo,
		statusRepo:    statusRepo,
		roleRepo:      roleRepo,
		promotionRepo: promotionRepo,
		attendance:    attendance,
		mentoring:     mentoring,
		billing:       billingProvider,
		identity:      identityProvider,
		notifSvc:      notifSvc,
		clock:         clk,
	}
}

func (s *jobsService) notify(ctx context.Context, memberID, kind, title, message string) {
	if s.notifSvc == nil {
		return
	}
	if err := s.notifSvc.Notify(ctx, memberID, kind, title, message, nil); err != nil {
		log.Printf("[Jobs] Failed to notify member %s: %v", memberID, err)
	}
}

// RunAutoResume reactivates members whose suspension window has elapsed.
// Billing un-pause is attempted first but never blocks the internal
// transition: a member is never left suspended because the provider call
// failed.
func (s *jobsService) RunAutoResume(ctx context.Context) (*JobSummary, error) {
	now := s.clock.Now()
	summary := newJobSummary("auto_resume", now)

	due, err := s.memberRepo.FindSuspendedDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due suspensions: %w", err)
	}
	log.Printf("[Jobs] Auto-resume: %d member(s) due", len(due))

	for _, candidate := range due {
		outcome := JobOutcome{MemberID: candidate.ID}

		if err := s.billing.UnpauseBilling(ctx, candidate.SubscriptionID); err != nil {
			log.Printf("[Jobs] ⚠️ Failed to unpause billing for %s: %v", candidate.ID, err)
			outcome.Warnings = append(outcome.Warnings, "billing unpause failed")
		}

		skipped := false
		updated, err := s.memberRepo.UpdateLocked(ctx, candidate.ID, func(m *repository.Member) error {
			// Re-check under the lock: a concurrent run or a manual resume
			// may have already reactivated this member.
			if m.Status != types.StatusSuspended || m.SuspensionEnd == nil || m.SuspensionEnd.After(now) {
				skipped = true
				return nil
			}
			m.Status = types.StatusActive
			m.StatusReason = "suspension period ended"
			m.StatusChangedAt = now
			m.StatusChangedBy = types.ActorSystem
			m.SuspensionStart = nil
			m.SuspensionEnd = nil
			reactivated := now
			m.ReactivatedAt = &reactivated
			return s.statusRepo.Append(ctx, &repository.StatusChange{
				MemberID:   m.ID,
				FromStatus: types.StatusSuspended,
				ToStatus:   types.StatusActive,
				Reason:     "suspension period ended",
				Actor:      types.ActorSystem,
			})
		})
		if err != nil {
			outcome.Reason = err.Error()
			summary.Failed = append(summary.Failed, outcome)
			continue
		}
		if updated == nil || skipped {
			outcome.Reason = "no longer suspended"
			summary.Skipped = append(summary.Skipped, outcome)
			continue
		}

		s.notify(ctx, candidate.ID, notification.TypeSuspensionEnded,
			"Membership reactivated",
			"Your suspension period ended and your membership is active again.")
		summary.Succeeded = append(summary.Succeeded, outcome)
	}

	log.Printf("[Jobs] Auto-resume done: %d succeeded, %d skipped, %d failed",
		len(summary.Succeeded), len(summary.Skipped), len(summary.Failed))
	return summary, nil
}

// RunAutoDemotion demotes members whose previous meeting cycle was finalized
// as demoted. Demotion drops the member to the base role, clears milestone
// and onboarding flags, purges pending applications and open mentoring
// requests, and archives the triggering attendance record.
func (s *jobsService) RunAutoDemotion(ctx context.Context) (*JobSummary, error) {
	now := s.clock.Now()
	summary := newJobSummary("auto_demotion", now)

	cycle := now.AddDate(0, -1, 0).Format("2006-01")
	records, err := s.attendance.FindByCycleApproval(ctx, cycle, types.ApprovalDemoted)
	if err != nil {
		return nil, fmt.Errorf("failed to list demotions for cycle %s: %w", cycle, err)
	}
	log.Printf("[Jobs] Auto-demotion for cycle %s: %d record(s)", cycle, len(records))

	for _, rec := range records {
		outcome := JobOutcome{MemberID: rec.MemberID}
		if rec.Archived {
			outcome.Reason = "already processed"
			summary.Skipped = append(summary.Skipped, outcome)
			continue
		}

		var fromRole types.Role
		skipped := false
		updated, err := s.memberRepo.UpdateLocked(ctx, rec.MemberID, func(m *repository.Member) error {
			if m.Role == types.RoleMember {
				skipped = true
				return nil
			}
			fromRole = m.Role
			m.Role = types.RoleMember
			m.MeetingCompleted = false
			m.SurveyCompleted = false
			m.ResetOnboarding()
			return s.roleRepo.Append(ctx, &repository.RoleChange{
				MemberID: m.ID,
				FromRole: fromRole,
				ToRole:   types.RoleMember,
				Reason:   fmt.Sprintf("demoted after meeting cycle %s", cycle),
				Actor:    types.ActorSystem,
			})
		})
		if err != nil {
			outcome.Reason = err.Error()
			summary.Failed = append(summary.Failed, outcome)
			continue
		}
		if updated == nil {
			outcome.Reason = "member not found"
			summary.Skipped = append(summary.Skipped, outcome)
			continue
		}
		if skipped {
			outcome.Reason = "already at base role"
			summary.Skipped = append(summary.Skipped, outcome)
			if err := s.attendance.Archive(ctx, rec.ID); err != nil {
				log.Printf("[Jobs] ⚠️ Failed to archive attendance %s: %v", rec.ID, err)
			}
			continue
		}

		if err := s.promotionRepo.DeletePending(ctx, rec.MemberID); err != nil {
			outcome.Warnings = append(outcome.Warnings, "failed to purge pending application")
		}
		if n, err := s.mentoring.CloseAllForMember(ctx, rec.MemberID); err != nil {
			outcome.Warnings = append(outcome.Warnings, "failed to close mentoring requests")
		} else if n > 0 {
			log.Printf("[Jobs] Closed %d mentoring request(s) for %s", n, rec.MemberID)
		}
		if err := s.attendance.Archive(ctx, rec.ID); err != nil {
			outcome.Warnings = append(outcome.Warnings, "failed to archive attendance record")
		}
		if err := s.identity.UpdateRoleMetadata(ctx, rec.MemberID, types.RoleMember); err != nil {
			log.Printf("[Jobs] ⚠️ Failed to sync role for %s: %v", rec.MemberID, err)
			outcome.Warnings = append(outcome.Warnings, "identity sync failed")
		}

		s.notify(ctx, rec.MemberID, notification.TypeDemotion,
			"Role change notice",
			fmt.Sprintf("Following the %s meeting cycle review, your role has been changed to member.", cycle))
		summary.Succeeded = append(summary.Succeeded, outcome)
	}

	log.Printf("[Jobs] Auto-demotion done: %d succeeded, %d skipped, %d failed",
		len(summary.Succeeded), len(summary.Skipped), len(summary.Failed))
	return summary, nil
}
