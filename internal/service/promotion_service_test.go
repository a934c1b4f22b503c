package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_OnePendingApplicationPerMember(t *testing.T) {
	// GIVEN: A member with a pending application
	// WHEN: Submitting a second one
	// THEN: The second is rejected as a conflict

	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "ana"})

	first, err := svc.Submit(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)
	assert.Equal(t, types.ApplicationPending, first.Status)

	_, err = svc.Submit(ctx, m.ID, types.RoleAssociate)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSubmit_RequiresActiveStandingAndNextRole(t *testing.T) {
	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()

	pastDue := env.createMember(t, &repository.Member{Name: "bo", Status: types.StatusPastDue})
	_, err := svc.Submit(ctx, pastDue.ID, types.RoleAssociate)
	assert.ErrorIs(t, err, ErrInvalidState)

	member := env.createMember(t, &repository.Member{Name: "cal"})
	_, err = svc.Submit(ctx, member.ID, types.RoleManager)
	assert.ErrorIs(t, err, ErrValidation, "skipping a level is not allowed")
}

func TestSubmit_AllowedAgainAfterRejection(t *testing.T) {
	// GIVEN: A member whose application was rejected
	// WHEN: Submitting again
	// THEN: The new application is accepted (only pending blocks resubmission)

	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "dee"})

	app, err := svc.Submit(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)
	_, err = svc.Review(ctx, app.ID, false, "admin-1", "", "incomplete paperwork")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, m.ID, types.RoleAssociate)
	assert.NoError(t, err)
}

// =============================================================================
// REVIEW
// =============================================================================

func TestReview_RejectionRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "eli"})

	app, err := svc.Submit(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)

	_, err = svc.Review(ctx, app.ID, false, "admin-1", "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReview_OwnApplicationIsRejected(t *testing.T) {
	// GIVEN: A pending application
	// WHEN: The applicant tries to review it themselves
	// THEN: The review is rejected and the application stays pending

	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "gus", Role: types.RoleAssociate})

	app, err := svc.Submit(ctx, m.ID, types.RoleManager)
	require.NoError(t, err)

	_, err = svc.Review(ctx, app.ID, true, m.ID, "", "")
	assert.ErrorIs(t, err, ErrValidation)

	stored, _ := env.repos.PromotionRepo.FindByID(ctx, app.ID)
	assert.Equal(t, types.ApplicationPending, stored.Status)
}

func TestReview_TerminalApplicationsStayDecided(t *testing.T) {
	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "fen"})

	app, err := svc.Submit(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)
	_, err = svc.Review(ctx, app.ID, true, "admin-1", "", "")
	require.NoError(t, err)

	_, err = svc.Review(ctx, app.ID, false, "admin-2", "", "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestReview_AssociateApprovalDefersRoleChange(t *testing.T) {
	// GIVEN: A base-role member with an approved associate application
	// WHEN: The approval lands
	// THEN: The role does NOT change; the onboarding checklist is unlocked fresh

	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "gia", GuidanceViewed: true})

	app, err := svc.Submit(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)

	reviewed, err := svc.Review(ctx, app.ID, true, "admin-1", "solid record", "")
	require.NoError(t, err)
	assert.Equal(t, types.ApplicationApproved, reviewed.Status)

	stored, _ := env.repos.MemberRepo.FindByID(ctx, m.ID)
	assert.Equal(t, types.RoleMember, stored.Role, "role change waits for onboarding")
	assert.False(t, stored.GuidanceViewed, "checklist restarts at approval")
	assert.True(t, stored.OnboardingUnlocked)
	assert.Empty(t, env.identity.syncs)

	roleHistory, _ := env.repos.RoleHistoryRepo.FindByMemberID(ctx, m.ID)
	assert.Empty(t, roleHistory)
}

func TestReview_ManagerApprovalChangesRoleImmediately(t *testing.T) {
	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "hal", Role: types.RoleAssociate})

	app, err := svc.Submit(ctx, m.ID, types.RoleManager)
	require.NoError(t, err)

	_, err = svc.Review(ctx, app.ID, true, "admin-1", "", "")
	require.NoError(t, err)

	stored, _ := env.repos.MemberRepo.FindByID(ctx, m.ID)
	assert.Equal(t, types.RoleManager, stored.Role)

	require.Len(t, env.identity.syncs, 1)
	assert.Equal(t, types.RoleManager, env.identity.syncs[0].Role)

	roleHistory, _ := env.repos.RoleHistoryRepo.FindByMemberID(ctx, m.ID)
	require.Len(t, roleHistory, 1)
	assert.Equal(t, types.RoleAssociate, roleHistory[0].FromRole)
	assert.Equal(t, types.RoleManager, roleHistory[0].ToRole)
}

// =============================================================================
// ONBOARDING
// =============================================================================

func TestCompleteOnboardingStep_RoleChangesOnlyAfterFinalStep(t *testing.T) {
	// GIVEN: A member with an approved associate application
	// WHEN: Completing the checklist one step at a time
	// THEN: The role flips to associate only when the fourth step lands

	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "ida"})

	app, err := svc.Submit(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)
	_, err = svc.Review(ctx, app.ID, true, "admin-1", "", "")
	require.NoError(t, err)

	steps := types.OnboardingSteps
	for i, step := range steps[:3] {
		progress, err := svc.CompleteOnboardingStep(ctx, m.ID, step)
		require.NoError(t, err)
		assert.False(t, progress.RoleChanged, "step %d must not change the role", i+1)
		assert.Equal(t, types.RoleMember, progress.EffectiveRole)
	}

	progress, err := svc.CompleteOnboardingStep(ctx, m.ID, steps[3])
	require.NoError(t, err)
	assert.True(t, progress.RoleChanged)
	assert.Equal(t, types.RoleAssociate, progress.EffectiveRole)
	assert.True(t, progress.Completed)

	roleHistory, _ := env.repos.RoleHistoryRepo.FindByMemberID(ctx, m.ID)
	require.Len(t, roleHistory, 1)
	require.Len(t, env.identity.syncs, 1)
}

func TestCompleteOnboardingStep_RepeatedStepIsNoOp(t *testing.T) {
	// GIVEN: An approved applicant who already finished onboarding
	// WHEN: Re-posting the final step
	// THEN: No second role change or audit entry appears

	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "jun"})

	app, err := svc.Submit(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)
	_, err = svc.Review(ctx, app.ID, true, "admin-1", "", "")
	require.NoError(t, err)

	for _, step := range types.OnboardingSteps {
		_, err := svc.CompleteOnboardingStep(ctx, m.ID, step)
		require.NoError(t, err)
	}

	progress, err := svc.CompleteOnboardingStep(ctx, m.ID, types.StepPayoutAccount)
	require.NoError(t, err)
	assert.False(t, progress.RoleChanged)
	assert.Equal(t, types.RoleAssociate, progress.EffectiveRole)

	roleHistory, _ := env.repos.RoleHistoryRepo.FindByMemberID(ctx, m.ID)
	assert.Len(t, roleHistory, 1)
}

func TestCompleteOnboardingStep_RequiresApprovedApplication(t *testing.T) {
	// GIVEN: A base-role member who never submitted an application
	// WHEN: Posting every checklist step directly
	// THEN: Each step is rejected and the role never changes

	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "nia"})

	for _, step := range types.OnboardingSteps {
		_, err := svc.CompleteOnboardingStep(ctx, m.ID, step)
		assert.ErrorIs(t, err, ErrInvalidState)
	}

	stored, _ := env.repos.MemberRepo.FindByID(ctx, m.ID)
	assert.Equal(t, types.RoleMember, stored.Role, "role must not change without an approved application")
	assert.False(t, stored.ComplianceTestPassed)
	assert.Empty(t, env.identity.syncs)

	roleHistory, _ := env.repos.RoleHistoryRepo.FindByMemberID(ctx, m.ID)
	assert.Empty(t, roleHistory)

	// A pending-but-unreviewed application does not unlock the checklist
	// either; only approval does.
	_, err := svc.Submit(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)
	_, err = svc.CompleteOnboardingStep(ctx, m.ID, types.StepComplianceTest)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteOnboardingStep_UnknownStep(t *testing.T) {
	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "kai"})

	_, err := svc.CompleteOnboardingStep(ctx, m.ID, types.OnboardingStep("secret_handshake"))
	assert.ErrorIs(t, err, ErrValidation)
}

// =============================================================================
// STATS
// =============================================================================

func TestStats_CountersStaySeparate(t *testing.T) {
	// GIVEN: One approved associate application with onboarding unfinished,
	//        and one approved manager application
	// WHEN: Reading promotion stats
	// THEN: Approvals and effective role changes report different numbers

	env := newTestEnv(t)
	svc := env.promotionService()
	ctx := context.Background()

	assoc := env.createMember(t, &repository.Member{Name: "lea"})
	app1, err := svc.Submit(ctx, assoc.ID, types.RoleAssociate)
	require.NoError(t, err)
	_, err = svc.Review(ctx, app1.ID, true, "admin-1", "", "")
	require.NoError(t, err)

	mgr := env.createMember(t, &repository.Member{Name: "mo", Role: types.RoleAssociate})
	app2, err := svc.Submit(ctx, mgr.ID, types.RoleManager)
	require.NoError(t, err)
	_, err = svc.Review(ctx, app2.ID, true, "admin-1", "", "")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ApplicationsApproved)
	assert.Equal(t, 1, stats.RoleChanges, "the associate role change has not happened yet")
}
