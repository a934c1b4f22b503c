package service

import (
	"context"
	"fmt"

	"github.com/finlead/membership-backend/internal/clock"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

// MeetingService tracks mandatory meeting-cycle participation. Each cycle is
// one calendar month; the finalized approval feeds the auto-demotion job.
type MeetingService interface {
	DeclareIntent(ctx context.Context, memberID, cycle string, intent types.AttendanceIntent) (*repository.MeetingAttendance, error)
	MarkCompleted(ctx context.Context, memberID, cycle, via string) (*repository.MeetingAttendance, error)
	Finalize(ctx context.Context, memberID, cycle string, approval types.FinalApproval, reviewerID string) (*repository.MeetingAttendance, error)
	ListByCycle(ctx context.Context, cycle string, approval types.FinalApproval) ([]*repository.MeetingAttendance, error)
}

type meetingService struct {
	memberRepo repository.MemberRepository
	attendance repository.AttendanceRepository
	clock      clock.Clock
}

func NewMeetingService(memberRepo repository.MemberRepository, attendance repository.AttendanceRepository, clk clock.Clock) MeetingService {
	return &meetingService{memberRepo: memberRepo, attendance: attendance, clock: clk}
}

func validCycle(cycle string) bool {
	if len(cycle) != 7 || cycle[4] != '-' {
		return false
	}
	for i, c := range cycle {
		if i == 4 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s *meetingService) DeclareIntent(ctx context.Context, memberID, cycle string, intent types.AttendanceIntent) (*repository.MeetingAttendance, error) {
	if !validCycle(cycle) {
		return nil, &ValidationError{Field: "cycle", Message: "must be YYYY-MM"}
	}
	if !types.IsValidAttendanceIntent(string(intent)) {
		return nil, &ValidationError{Field: "intent", Message: "unknown attendance intent"}
	}

	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	existing, err := s.attendance.FindByMemberCycle(ctx, memberID, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	if existing != nil && existing.Approval != types.ApprovalUnset {
		return nil, &StateError{Current: string(existing.Approval), Attempted: "declare intent on finalized cycle"}
	}

	att := existing
	if att == nil {
		att = &repository.MeetingAttendance{MemberID: memberID, Cycle: cycle}
	}
	att.Intent = intent
	if err := s.attendance.Upsert(ctx, att); err != nil {
		return nil, fmt.Errorf("failed to save attendance: %w", err)
	}
	return att, nil
}

// MarkCompleted records that the member satisfied the cycle, either by
// attendance code or by the video-plus-survey alternative.
func (s *meetingService) MarkCompleted(ctx context.Context, memberID, cycle, via string) (*repository.MeetingAttendance, error) {
	if !validCycle(cycle) {
		return nil, &ValidationError{Field: "cycle", Message: "must be YYYY-MM"}
	}
	if via != "code" && via != "video_survey" {
		return nil, &ValidationError{Field: "via", Message: "must be code or video_survey"}
	}

	att, err := s.attendance.FindByMemberCycle(ctx, memberID, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	if att == nil {
		att = &repository.MeetingAttendance{MemberID: memberID, Cycle: cycle, Intent: types.IntentWillAttend}
	}
	if att.Approval != types.ApprovalUnset {
		return nil, &StateError{Current: string(att.Approval), Attempted: "complete finalized cycle"}
	}

	att.Completed = true
	att.CompletedVia = via
	if err := s.attendance.Upsert(ctx, att); err != nil {
		return nil, fmt.Errorf("failed to save attendance: %w", err)
	}
	return att, nil
}

// Finalize records the reviewer's verdict for the member's cycle. Demoted
// verdicts are picked up by the nightly auto-demotion pass.
func (s *meetingService) Finalize(ctx context.Context, memberID, cycle string, approval types.FinalApproval, reviewerID string) (*repository.MeetingAttendance, error) {
	if !types.IsValidFinalApproval(string(approval)) {
		return nil, &ValidationError{Field: "approval", Message: "must be maintained or demoted"}
	}

	att, err := s.attendance.FindByMemberCycle(ctx, memberID, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	if att == nil {
		return nil, ErrNotFound
	}
	if att.Approval != types.ApprovalUnset {
		return nil, &StateError{Current: string(att.Approval), Attempted: "finalize cycle again"}
	}

	now := s.clock.Now()
	att.Approval = approval
	att.FinalizedBy = &reviewerID
	att.FinalizedAt = &now
	if err := s.attendance.Update(ctx, att); err != nil {
		return nil, fmt.Errorf("failed to finalize attendance: %w", err)
	}
	return att, nil
}

func (s *meetingService) ListByCycle(ctx context.Context, cycle string, approval types.FinalApproval) ([]*repository.MeetingAttendance, error) {
	if !validCycle(cycle) {
		return nil, &ValidationError{Field: "cycle", Message: "must be YYYY-MM"}
	}
	return s.attendance.FindByCycleApproval(ctx, cycle, approval)
}
