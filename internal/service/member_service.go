package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finlead/membership-backend/internal/db"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

// MemberService covers member reads and the activity records that feed the
// eligibility aggregators.
type MemberService interface {
	GetMember(ctx context.Context, id string) (*repository.Member, error)
	ListMembers(ctx context.Context) ([]*repository.Member, error)
	StatusHistory(ctx context.Context, memberID string) ([]*repository.StatusChange, error)
	RoleHistory(ctx context.Context, memberID string) ([]*repository.RoleChange, error)

	RecordSale(ctx context.Context, memberID string, amount decimal.Decimal, insuredCount int, occurredAt time.Time) error
	RecordReferral(ctx context.Context, memberID string, target types.Role, approved bool) error
	SetMilestones(ctx context.Context, memberID string, meetingCompleted, surveyCompleted *bool) (*repository.Member, error)

	CreateMentoringRequest(ctx context.Context, memberID, topic string) (*repository.MentoringRequest, error)
	OpenMentoringRequests(ctx context.Context, memberID string) ([]*repository.MentoringRequest, error)

	Notifications(ctx context.Context, memberID string, unreadOnly bool) ([]*repository.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, memberID string) error
}

type memberService struct {
	memberRepo repository.MemberRepository
	statusRepo repository.StatusHistoryRepository
	roleRepo   repository.RoleHistoryRepository
	activity   repository.ActivityRepository
	mentoring  repository.MentoringRepository
	notifRepo  repository.NotificationRepository
	cache      *db.RedisDB
}

func NewMemberService(
	memberRepo repository.MemberRepository,
	statusRepo repository.StatusHistoryRepository,
	roleRepo repository.RoleHistoryRepository,
	activity repository.ActivityRepository,
	mentoring repository.MentoringRepository,
	notifRepo repository.NotificationRepository,
	cache *db.RedisDB,
) MemberService {
	return &memberService{
		memberRepo: memberRepo,
		statusRepo: statusRepo,
		roleRepo:   roleRepo,
		activity:   activity,
		mentoring:  mentoring,
		notifRepo:  notifRepo,
		cache:      cache,
	}
}

// invalidateEligibility drops cached eligibility reports after any write
// that feeds the evaluators.
func (s *memberService) invalidateEligibility(ctx context.Context, memberID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCache(ctx, "eligibility:"+memberID+":*"); err != nil {
		log.Printf("[Member] Failed to invalidate eligibility cache for %s: %v", memberID, err)
	}
}

func (s *memberService) GetMember(ctx context.Context, id string) (*repository.Member, error) {
	member, err := s.memberRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	member.Password = ""
	return member, nil
}

func (s *memberService) ListMembers(ctx context.Context) ([]*repository.Member, error) {
	members, err := s.memberRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	for _, m := range members {
		m.Password = ""
	}
	return members, nil
}

func (s *memberService) StatusHistory(ctx context.Context, memberID string) ([]*repository.StatusChange, error) {
	return s.statusRepo.FindByMemberID(ctx, memberID)
}

func (s *memberService) RoleHistory(ctx context.Context, memberID string) ([]*repository.RoleChange, error) {
	return s.roleRepo.FindByMemberID(ctx, memberID)
}

func (s *memberService) RecordSale(ctx context.Context, memberID string, amount decimal.Decimal, insuredCount int, occurredAt time.Time) error {
	if amount.IsNegative() {
		return &ValidationError{Field: "amount", Message: "must not be negative"}
	}
	if insuredCount < 0 {
		return &ValidationError{Field: "insuredCount", Message: "must not be negative"}
	}
	if err := s.activity.AddSale(ctx, &repository.SalesRecord{
		MemberID:     memberID,
		Amount:       amount,
		InsuredCount: insuredCount,
		OccurredAt:   occurredAt,
	}); err != nil {
		return err
	}
	s.invalidateEligibility(ctx, memberID)
	return nil
}

func (s *memberService) RecordReferral(ctx context.Context, memberID string, target types.Role, approved bool) error {
	if !types.IsValidRole(string(target)) {
		return &ValidationError{Field: "targetRole", Message: "unknown role"}
	}
	if err := s.activity.AddReferral(ctx, &repository.Referral{
		MemberID:   memberID,
		TargetRole: target,
		Approved:   approved,
	}); err != nil {
		return err
	}
	s.invalidateEligibility(ctx, memberID)
	return nil
}

// SetMilestones flips the associate-eligibility flags. Nil means leave the
// flag alone.
func (s *memberService) SetMilestones(ctx context.Context, memberID string, meetingCompleted, surveyCompleted *bool) (*repository.Member, error) {
	member, err := s.memberRepo.UpdateLocked(ctx, memberID, func(m *repository.Member) error {
		if meetingCompleted != nil {
			m.MeetingCompleted = *meetingCompleted
		}
		if surveyCompleted != nil {
			m.SurveyCompleted = *surveyCompleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	s.invalidateEligibility(ctx, memberID)
	member.Password = ""
	return member, nil
}

func (s *memberService) CreateMentoringRequest(ctx context.Context, memberID, topic string) (*repository.MentoringRequest, error) {
	if topic == "" {
		return nil, &ValidationError{Field: "topic", Message: "is required"}
	}
	req := &repository.MentoringRequest{
		MemberID: memberID,
		Topic:    topic,
		Open:     true,
	}
	if err := s.mentoring.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create mentoring request: %w", err)
	}
	return req, nil
}

func (s *memberService) OpenMentoringRequests(ctx context.Context, memberID string) ([]*repository.MentoringRequest, error) {
	return s.mentoring.FindOpenByMemberID(ctx, memberID)
}

func (s *memberService) Notifications(ctx context.Context, memberID string, unreadOnly bool) ([]*repository.Notification, error) {
	return s.notifRepo.FindByMemberID(ctx, memberID, unreadOnly)
}

func (s *memberService) MarkNotificationRead(ctx context.Context, id string) error {
	return s.notifRepo.MarkAsRead(ctx, id)
}

func (s *memberService) MarkAllNotificationsRead(ctx context.Context, memberID string) error {
	return s.notifRepo.MarkAllAsRead(ctx, memberID)
}
