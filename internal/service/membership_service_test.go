package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

// =============================================================================
// SUSPENSION
// =============================================================================

func TestRequestSuspension_WithinLimit(t *testing.T) {
	// GIVEN: An active member
	// WHEN: Requesting a suspension ending exactly 3 months out
	// THEN: The member is suspended, billing is paused, and one audit entry exists

	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "ana", SubscriptionID: "sub_1"})

	end := env.clock.Now().AddDate(0, 3, 0)
	result, err := svc.RequestSuspension(ctx, m.ID, end, "sabbatical")
	require.NoError(t, err)

	assert.Equal(t, types.StatusSuspended, result.Member.Status)
	require.NotNil(t, result.Member.SuspensionEnd)
	assert.True(t, result.Member.SuspensionEnd.Equal(end))
	assert.Equal(t, []string{"sub_1"}, env.billing.pauses)
	assert.Empty(t, result.Warnings)

	history, err := env.repos.StatusHistoryRepo.FindByMemberID(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.StatusActive, history[0].FromStatus)
	assert.Equal(t, types.StatusSuspended, history[0].ToStatus)
}

func TestRequestSuspension_ExceedsLimit(t *testing.T) {
	// GIVEN: An active member
	// WHEN: Requesting a suspension one day past the 3-month maximum
	// THEN: The request fails validation and nothing changes

	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "bruno"})

	end := env.clock.Now().AddDate(0, 3, 1)
	_, err := svc.RequestSuspension(ctx, m.ID, end, "too long")
	assert.ErrorIs(t, err, ErrValidation)

	stored, _ := env.repos.MemberRepo.FindByID(ctx, m.ID)
	assert.Equal(t, types.StatusActive, stored.Status)
	assert.Empty(t, env.billing.pauses)
}

func TestRequestSuspension_RequiresFutureDateAndActiveStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()

	active := env.createMember(t, &repository.Member{Name: "carla"})
	_, err := svc.RequestSuspension(ctx, active.ID, env.clock.Now().AddDate(0, 0, -1), "past")
	assert.ErrorIs(t, err, ErrValidation)

	pastDue := env.createMember(t, &repository.Member{Name: "diego", Status: types.StatusPastDue})
	_, err = svc.RequestSuspension(ctx, pastDue.ID, env.clock.Now().AddDate(0, 1, 0), "late")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestSuspension_BillingFailureDoesNotRollBack(t *testing.T) {
	// GIVEN: A billing provider that is down
	// WHEN: Requesting a suspension
	// THEN: The internal state still moves and the failure surfaces as a warning

	env := newTestEnv(t)
	env.billing.failAll = true
	svc := env.membershipService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "eva", SubscriptionID: "sub_e"})

	result, err := svc.RequestSuspension(ctx, m.ID, env.clock.Now().AddDate(0, 1, 0), "travel")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuspended, result.Member.Status)
	assert.NotEmpty(t, result.Warnings)
}

func TestResumeSuspension_OnlyFromSuspended(t *testing.T) {
	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()

	m := env.createMember(t, &repository.Member{Name: "fred", SubscriptionID: "sub_f"})
	_, err := svc.ResumeSuspension(ctx, m.ID, m.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.RequestSuspension(ctx, m.ID, env.clock.Now().AddDate(0, 2, 0), "break")
	require.NoError(t, err)

	resumed, err := svc.ResumeSuspension(ctx, m.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, resumed.Status)
	assert.Nil(t, resumed.SuspensionEnd)
	require.NotNil(t, resumed.ReactivatedAt)
	assert.Equal(t, []string{"sub_f"}, env.billing.unpauses)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestRequestCancellation_InsideMinimumCommitment(t *testing.T) {
	// GIVEN: A member who joined 40 days ago
	// WHEN: Requesting cancellation
	// THEN: The request is accepted but deferred to the 6-month anchor

	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()

	joined := env.clock.Now().AddDate(0, 0, -40)
	m := env.createMember(t, &repository.Member{Name: "gina", JoinedAt: joined, SubscriptionID: "sub_g"})

	result, err := svc.RequestCancellation(ctx, m.ID, CancellationInput{Reason: "too_expensive"})
	require.NoError(t, err)

	assert.True(t, result.IsScheduled)
	require.NotNil(t, result.EffectiveDate)
	assert.True(t, result.EffectiveDate.Equal(joined.AddDate(0, 6, 0)))
	assert.Equal(t, types.StatusCancellationPending, result.Member.Status)
	require.NotNil(t, result.Member.ScheduledCancelDate)

	require.Len(t, env.billing.cancels, 1)
	assert.True(t, env.billing.cancels[0].At.Equal(joined.AddDate(0, 6, 0)))
}

func TestRequestCancellation_AfterMinimumCommitment(t *testing.T) {
	// GIVEN: A member whose join date is exactly 6 months back
	// WHEN: Requesting cancellation
	// THEN: It takes effect at the billing period end, not a deferred anchor

	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()

	joined := env.clock.Now().AddDate(0, -6, 0)
	m := env.createMember(t, &repository.Member{Name: "hugo", JoinedAt: joined, SubscriptionID: "sub_h"})

	result, err := svc.RequestCancellation(ctx, m.ID, CancellationInput{
		Reason:       "moving_abroad",
		Detail:       "relocating in October",
		Continuation: "keep_newsletter",
	})
	require.NoError(t, err)

	assert.False(t, result.IsScheduled)
	assert.Nil(t, result.EffectiveDate)
	assert.Nil(t, result.Member.ScheduledCancelDate)

	require.Len(t, env.billing.cancels, 1)
	assert.True(t, env.billing.cancels[0].At.IsZero(), "period-end cancellation sends a zero time")

	history, _ := env.repos.StatusHistoryRepo.FindByMemberID(ctx, m.ID)
	require.Len(t, history, 1)
	assert.Equal(t, "moving_abroad: relocating in October (continuation: keep_newsletter)", history[0].Reason)
}

func TestRequestCancellation_BoundaryOneSecondBefore(t *testing.T) {
	// GIVEN: A member one second short of the minimum commitment
	// WHEN: Requesting cancellation
	// THEN: The request is still deferred

	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()

	joined := env.clock.Now().AddDate(0, -6, 0).Add(time.Second)
	m := env.createMember(t, &repository.Member{Name: "iris", JoinedAt: joined})

	result, err := svc.RequestCancellation(ctx, m.ID, CancellationInput{Reason: "other", Detail: "just because"})
	require.NoError(t, err)
	assert.True(t, result.IsScheduled)
}

func TestRequestCancellation_IllegalStates(t *testing.T) {
	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()

	suspended := env.createMember(t, &repository.Member{Name: "jo", Status: types.StatusSuspended})
	_, err := svc.RequestCancellation(ctx, suspended.ID, CancellationInput{Reason: "reason"})
	assert.ErrorIs(t, err, ErrInvalidState)

	canceled := env.createMember(t, &repository.Member{Name: "kim", Status: types.StatusCanceled})
	_, err = svc.RequestCancellation(ctx, canceled.ID, CancellationInput{Reason: "reason"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFinalizeCancellation(t *testing.T) {
	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()

	m := env.createMember(t, &repository.Member{Name: "lia", Status: types.StatusCancellationPending})
	final, err := svc.FinalizeCancellation(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCanceled, final.Status)
	assert.True(t, final.Retired)

	// Canceled is terminal.
	_, err = svc.FinalizeCancellation(ctx, m.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

// =============================================================================
// PAYMENT EVENTS
// =============================================================================

func TestHandlePaymentFailed_TransitionsAndIsIdempotent(t *testing.T) {
	// GIVEN: An active member
	// WHEN: The provider reports a failed charge twice
	// THEN: The member goes past-due once, with a single SYSTEM audit entry

	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "mia"})

	updated, err := svc.HandlePaymentFailed(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPastDue, updated.Status)

	again, err := svc.HandlePaymentFailed(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPastDue, again.Status)

	history, err := env.repos.StatusHistoryRepo.FindByMemberID(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.ActorSystem, history[0].Actor)
}

func TestHandlePaymentRecovered_FromPastDueAndDelinquent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()

	pastDue := env.createMember(t, &repository.Member{Name: "nora", Status: types.StatusPastDue})
	updated, err := svc.HandlePaymentRecovered(ctx, pastDue.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, updated.Status)

	delinquent := env.createMember(t, &repository.Member{Name: "otto", Status: types.StatusDelinquent})
	updated, err = svc.HandlePaymentRecovered(ctx, delinquent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, updated.Status)
}

func TestMarkDelinquent_OnlyFromPastDue(t *testing.T) {
	env := newTestEnv(t)
	svc := env.membershipService()
	ctx := context.Background()

	active := env.createMember(t, &repository.Member{Name: "pia"})
	_, err := svc.MarkDelinquent(ctx, active.ID, "admin-1", "")
	assert.ErrorIs(t, err, ErrInvalidState)

	pastDue := env.createMember(t, &repository.Member{Name: "quinn", Status: types.StatusPastDue})
	updated, err := svc.MarkDelinquent(ctx, pastDue.ID, "admin-1", "three failed retries")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDelinquent, updated.Status)

	history, _ := env.repos.StatusHistoryRepo.FindByMemberID(ctx, pastDue.ID)
	require.Len(t, history, 1)
	assert.Equal(t, "admin-1", history[0].Actor)
}
