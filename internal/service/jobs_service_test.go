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
// AUTO-RESUME
// =============================================================================

func suspendedMember(t *testing.T, env *testEnv, name string, end time.Time) *repository.Member {
	t.Helper()
	start := end.AddDate(0, -1, 0)
	return env.createMember(t, &repository.Member{
		Name:            name,
		Status:          types.StatusSuspended,
		SubscriptionID:  "sub_" + name,
		SuspensionStart: &start,
		SuspensionEnd:   &end,
	})
}

func TestRunAutoResume_ReactivatesDueMembers(t *testing.T) {
	// GIVEN: One member past their suspension window and one still inside it
	// WHEN: Running the auto-resume pass
	// THEN: Only the due member is reactivated, with a SYSTEM audit entry

	env := newTestEnv(t)
	svc := env.jobsService()
	ctx := context.Background()

	due := suspendedMember(t, env, "ana", env.clock.Now().AddDate(0, 0, -1))
	notDue := suspendedMember(t, env, "bo", env.clock.Now().AddDate(0, 1, 0))

	summary, err := svc.RunAutoResume(ctx)
	require.NoError(t, err)

	require.Len(t, summary.Succeeded, 1)
	assert.Equal(t, due.ID, summary.Succeeded[0].MemberID)
	assert.Empty(t, summary.Skipped)
	assert.Empty(t, summary.Failed)

	reactivated, _ := env.repos.MemberRepo.FindByID(ctx, due.ID)
	assert.Equal(t, types.StatusActive, reactivated.Status)
	assert.Nil(t, reactivated.SuspensionEnd)
	require.NotNil(t, reactivated.ReactivatedAt)

	untouched, _ := env.repos.MemberRepo.FindByID(ctx, notDue.ID)
	assert.Equal(t, types.StatusSuspended, untouched.Status)

	history, _ := env.repos.StatusHistoryRepo.FindByMemberID(ctx, due.ID)
	require.Len(t, history, 1)
	assert.Equal(t, types.ActorSystem, history[0].Actor)
	assert.Equal(t, "suspension period ended", history[0].Reason)

	assert.Equal(t, []string{"sub_ana"}, env.billing.unpauses)
}

func TestRunAutoResume_SecondRunIsNoOp(t *testing.T) {
	// GIVEN: A completed auto-resume pass
	// WHEN: Running the job again
	// THEN: Nothing changes and no duplicate audit entries appear

	env := newTestEnv(t)
	svc := env.jobsService()
	ctx := context.Background()
	due := suspendedMember(t, env, "cal", env.clock.Now().AddDate(0, 0, -2))

	first, err := svc.RunAutoResume(ctx)
	require.NoError(t, err)
	require.Len(t, first.Succeeded, 1)

	second, err := svc.RunAutoResume(ctx)
	require.NoError(t, err)
	assert.Empty(t, second.Succeeded)
	assert.Empty(t, second.Failed)

	history, _ := env.repos.StatusHistoryRepo.FindByMemberID(ctx, due.ID)
	assert.Len(t, history, 1, "rerun must not duplicate the audit entry")
}

func TestRunAutoResume_BillingFailureStillReactivates(t *testing.T) {
	// GIVEN: A billing provider that cannot unpause
	// WHEN: Running auto-resume
	// THEN: The member is reactivated anyway and the failure is a warning

	env := newTestEnv(t)
	env.billing.failUnpaus = true
	svc := env.jobsService()
	ctx := context.Background()
	due := suspendedMember(t, env, "dee", env.clock.Now().AddDate(0, 0, -1))

	summary, err := svc.RunAutoResume(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Succeeded, 1)
	assert.NotEmpty(t, summary.Succeeded[0].Warnings)

	reactivated, _ := env.repos.MemberRepo.FindByID(ctx, due.ID)
	assert.Equal(t, types.StatusActive, reactivated.Status)
}

// =============================================================================
// AUTO-DEMOTION
// =============================================================================

func demotedAttendance(t *testing.T, env *testEnv, memberID, cycle string) *repository.MeetingAttendance {
	t.Helper()
	att := &repository.MeetingAttendance{
		MemberID: memberID,
		Cycle:    cycle,
		Intent:   types.IntentWillNotAttend,
		Approval: types.ApprovalDemoted,
	}
	require.NoError(t, env.repos.AttendanceRepo.Upsert(context.Background(), att))
	return att
}

func TestRunAutoDemotion_OnlyDemotedVerdictsAreProcessed(t *testing.T) {
	// GIVEN: Last cycle finalized with one demoted and one maintained associate
	// WHEN: Running the auto-demotion pass
	// THEN: Only the demoted member drops to the base role

	env := newTestEnv(t)
	svc := env.jobsService()
	ctx := context.Background()
	cycle := env.clock.Now().AddDate(0, -1, 0).Format("2006-01") // 2026-07

	demoted := env.createMember(t, &repository.Member{
		Name: "ana", Role: types.RoleAssociate,
		MeetingCompleted: true, SurveyCompleted: true, OnboardingCompleted: true,
	})
	maintained := env.createMember(t, &repository.Member{Name: "bo", Role: types.RoleAssociate})

	demotedAttendance(t, env, demoted.ID, cycle)
	require.NoError(t, env.repos.AttendanceRepo.Upsert(ctx, &repository.MeetingAttendance{
		MemberID: maintained.ID, Cycle: cycle,
		Intent: types.IntentWillAttend, Completed: true, Approval: types.ApprovalMaintained,
	}))

	summary, err := svc.RunAutoDemotion(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Succeeded, 1)
	assert.Equal(t, demoted.ID, summary.Succeeded[0].MemberID)

	dropped, _ := env.repos.MemberRepo.FindByID(ctx, demoted.ID)
	assert.Equal(t, types.RoleMember, dropped.Role)
	assert.False(t, dropped.MeetingCompleted)
	assert.False(t, dropped.SurveyCompleted)
	assert.False(t, dropped.OnboardingCompleted)
	assert.False(t, dropped.OnboardingUnlocked, "demotion relocks the checklist")

	kept, _ := env.repos.MemberRepo.FindByID(ctx, maintained.ID)
	assert.Equal(t, types.RoleAssociate, kept.Role)

	roleHistory, _ := env.repos.RoleHistoryRepo.FindByMemberID(ctx, demoted.ID)
	require.Len(t, roleHistory, 1)
	assert.Equal(t, types.ActorSystem, roleHistory[0].Actor)
	assert.Contains(t, roleHistory[0].Reason, cycle)

	require.Len(t, env.identity.syncs, 1)
	assert.Equal(t, types.RoleMember, env.identity.syncs[0].Role)
}

func TestRunAutoDemotion_BaseRoleMemberIsSkipped(t *testing.T) {
	// GIVEN: A demoted verdict against a member already at the base role
	// WHEN: Running the pass
	// THEN: The member is reported as skipped, never failed

	env := newTestEnv(t)
	svc := env.jobsService()
	ctx := context.Background()
	cycle := env.clock.Now().AddDate(0, -1, 0).Format("2006-01")

	base := env.createMember(t, &repository.Member{Name: "cal"})
	demotedAttendance(t, env, base.ID, cycle)

	summary, err := svc.RunAutoDemotion(ctx)
	require.NoError(t, err)
	assert.Empty(t, summary.Succeeded)
	assert.Empty(t, summary.Failed)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, base.ID, summary.Skipped[0].MemberID)
}

func TestRunAutoDemotion_PurgesPendingWorkAndIsIdempotent(t *testing.T) {
	// GIVEN: A demoted associate with a pending application and open mentoring
	// WHEN: Running the pass twice
	// THEN: Pending work is purged once and the rerun finds nothing to do

	env := newTestEnv(t)
	jobs := env.jobsService()
	promotions := env.promotionService()
	ctx := context.Background()
	cycle := env.clock.Now().AddDate(0, -1, 0).Format("2006-01")

	m := env.createMember(t, &repository.Member{Name: "dee", Role: types.RoleAssociate})
	_, err := promotions.Submit(ctx, m.ID, types.RoleManager)
	require.NoError(t, err)
	require.NoError(t, env.repos.MentoringRepo.Create(ctx, &repository.MentoringRequest{
		MemberID: m.ID, Topic: "prospecting", Open: true,
	}))
	demotedAttendance(t, env, m.ID, cycle)

	first, err := jobs.RunAutoDemotion(ctx)
	require.NoError(t, err)
	require.Len(t, first.Succeeded, 1)

	pending, err := env.repos.PromotionRepo.FindPendingByMemberID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, pending, "pending application is purged")

	open, err := env.repos.MentoringRepo.FindOpenByMemberID(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, open, "open mentoring requests are closed")

	second, err := jobs.RunAutoDemotion(ctx)
	require.NoError(t, err)
	assert.Empty(t, second.Succeeded, "archived attendance is not reprocessed")
	assert.Empty(t, second.Failed)

	roleHistory, _ := env.repos.RoleHistoryRepo.FindByMemberID(ctx, m.ID)
	assert.Len(t, roleHistory, 1)
}
