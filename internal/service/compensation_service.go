package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finlead/membership-backend/internal/repository"
)

// CompensationInput is the admin-entered reward breakdown for one month.
type CompensationInput struct {
	ReferralReward decimal.Decimal
	ContractReward decimal.Decimal
	Bonus          decimal.Decimal
	Deduction      decimal.Decimal
}

// CompensationService manages monthly reward records. Locked months are
// finalized for payout and reject edits until an admin unlocks them.
type CompensationService interface {
	Upsert(ctx context.Context, memberID, month string, input CompensationInput) (*repository.Compensation, error)
	SetLocked(ctx context.Context, id string, locked bool) (*repository.Compensation, error)
	ListForMember(ctx context.Context, memberID string) ([]*repository.Compensation, error)
	GetMonth(ctx context.Context, memberID, month string) (*repository.Compensation, error)
}

type compensationService struct {
	compRepo   repository.CompensationRepository
	memberRepo repository.MemberRepository
}

func NewCompensationService(compRepo repository.CompensationRepository, memberRepo repository.MemberRepository) CompensationService {
	return &compensationService{compRepo: compRepo, memberRepo: memberRepo}
}

func (s *compensationService) Upsert(ctx context.Context, memberID, month string, input CompensationInput) (*repository.Compensation, error) {
	if !validCycle(month) {
		return nil, &ValidationError{Field: "month", Message: "must be YYYY-MM"}
	}
	for field, v := range map[string]decimal.Decimal{
		"referralReward": input.ReferralReward,
		"contractReward": input.ContractReward,
		"bonus":          input.Bonus,
		"deduction":      input.Deduction,
	} {
		if v.IsNegative() {
			return nil, &ValidationError{Field: field, Message: "must not be negative"}
		}
	}

	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	existing, err := s.compRepo.FindByMemberMonth(ctx, memberID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load compensation: %w", err)
	}
	if existing != nil && existing.Locked {
		return nil, fmt.Errorf("%w: compensation for %s is finalized", ErrLocked, month)
	}

	comp := &repository.Compensation{
		MemberID:       memberID,
		Month:          month,
		ReferralReward: input.ReferralReward,
		ContractReward: input.ContractReward,
		Bonus:          input.Bonus,
		Deduction:      input.Deduction,
	}
	if err := s.compRepo.Upsert(ctx, comp); err != nil {
		// The conditional upsert is the backstop against a concurrent lock.
		return nil, fmt.Errorf("%w: %v", ErrLocked, err)
	}
	return comp, nil
}

func (s *compensationService) SetLocked(ctx context.Context, id string, locked bool) (*repository.Compensation, error) {
	comp, err := s.compRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load compensation: %w", err)
	}
	if comp == nil {
		return nil, ErrNotFound
	}
	if comp.Locked == locked {
		return comp, nil
	}
	if err := s.compRepo.SetLocked(ctx, id, locked); err != nil {
		return nil, fmt.Errorf("failed to update lock: %w", err)
	}
	comp.Locked = locked
	return comp, nil
}

func (s *compensationService) ListForMember(ctx context.Context, memberID string) ([]*repository.Compensation, error) {
	return s.compRepo.FindByMemberID(ctx, memberID)
}

func (s *compensationService) GetMonth(ctx context.Context, memberID, month string) (*repository.Compensation, error) {
	if !validCycle(month) {
		return nil, &ValidationError{Field: "month", Message: "must be YYYY-MM"}
	}
	comp, err := s.compRepo.FindByMemberMonth(ctx, memberID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load compensation: %w", err)
	}
	if comp == nil {
		return nil, ErrNotFound
	}
	return comp, nil
}
