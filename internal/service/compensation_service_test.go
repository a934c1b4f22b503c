package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlead/membership-backend/internal/repository"
)

func TestCompensationUpsert_LockedMonthRejectsEdits(t *testing.T) {
	// GIVEN: A finalized (locked) monthly reward record
	// WHEN: Trying to overwrite it
	// THEN: The edit is rejected until an admin unlocks the month

	env := newTestEnv(t)
	svc := NewCompensationService(env.repos.CompensationRepo, env.repos.MemberRepo)
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "ana"})

	comp, err := svc.Upsert(ctx, m.ID, "2026-07", CompensationInput{
		ContractReward: decimal.NewFromInt(5000),
		Bonus:          decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	assert.True(t, comp.Total().Equal(decimal.NewFromInt(5300)))

	locked, err := svc.SetLocked(ctx, comp.ID, true)
	require.NoError(t, err)
	assert.True(t, locked.Locked)

	_, err = svc.Upsert(ctx, m.ID, "2026-07", CompensationInput{
		ContractReward: decimal.NewFromInt(9999),
	})
	assert.ErrorIs(t, err, ErrLocked)

	// Unlocking reopens the month.
	_, err = svc.SetLocked(ctx, comp.ID, false)
	require.NoError(t, err)
	updated, err := svc.Upsert(ctx, m.ID, "2026-07", CompensationInput{
		ContractReward: decimal.NewFromInt(6000),
	})
	require.NoError(t, err)
	assert.True(t, updated.Total().Equal(decimal.NewFromInt(6000)))
}

func TestCompensationUpsert_Validation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCompensationService(env.repos.CompensationRepo, env.repos.MemberRepo)
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "bo"})

	_, err := svc.Upsert(ctx, m.ID, "July 2026", CompensationInput{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Upsert(ctx, m.ID, "2026-07", CompensationInput{
		Deduction: decimal.NewFromInt(-10),
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Upsert(ctx, "missing", "2026-07", CompensationInput{})
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
