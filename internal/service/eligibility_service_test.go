package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

// =============================================================================
// ASSOCIATE ELIGIBILITY
// =============================================================================

func TestEvaluateAssociate_BothMilestonesUnmet(t *testing.T) {
	// GIVEN: A base-role member with neither milestone completed
	// WHEN: Evaluating associate eligibility
	// THEN: Both criteria are unmet and the member is not eligible

	env := newTestEnv(t)
	svc := env.eligibilityService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "ana"})

	report, err := svc.Evaluate(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)

	assert.False(t, report.Eligible)
	assert.False(t, report.Criteria["orientationMeeting"].Met)
	assert.False(t, report.Criteria["complianceSurvey"].Met)
	assert.Equal(t, 0, report.Criteria["orientationMeeting"].Percent)
}

func TestEvaluateAssociate_BothMilestonesMet(t *testing.T) {
	env := newTestEnv(t)
	svc := env.eligibilityService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "bo", MeetingCompleted: true, SurveyCompleted: true})

	report, err := svc.Evaluate(ctx, m.ID, types.RoleAssociate)
	require.NoError(t, err)
	assert.True(t, report.Eligible)
	assert.Equal(t, 100, report.Criteria["complianceSurvey"].Percent)
}

// =============================================================================
// MANAGER ELIGIBILITY
// =============================================================================

func TestEvaluateManager_PartialCriteria(t *testing.T) {
	// GIVEN: An associate whose trailing window holds 1.5M sales volume and
	//        22 insured policies but no approved referrals
	// WHEN: Evaluating manager eligibility against range-0 thresholds
	// THEN: Sales and insured criteria are met, referrals are not, and the
	//       overall verdict is not eligible

	env := newTestEnv(t)
	svc := env.eligibilityService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "carla", Role: types.RoleAssociate})

	inWindow := env.clock.Now().AddDate(0, -2, 0)
	require.NoError(t, env.repos.ActivityRepo.AddSale(ctx, &repository.SalesRecord{
		MemberID: m.ID, Amount: decimal.NewFromInt(1_500_000), InsuredCount: 22, OccurredAt: inWindow,
	}))

	report, err := svc.Evaluate(ctx, m.ID, types.RoleManager)
	require.NoError(t, err)

	assert.False(t, report.Eligible)

	sales := report.Criteria["salesVolume"]
	assert.True(t, sales.Met)
	assert.True(t, sales.Current.Equal(decimal.NewFromInt(1_500_000)))
	assert.Equal(t, 100, sales.Percent)

	insured := report.Criteria["insuredCount"]
	assert.True(t, insured.Met)
	assert.True(t, insured.Current.Equal(decimal.NewFromInt(22)))

	refs := report.Criteria["memberReferrals"]
	assert.False(t, refs.Met)
	assert.True(t, refs.Current.IsZero())
}

func TestEvaluateManager_WindowExcludesCurrentMonth(t *testing.T) {
	// GIVEN: A sale recorded in the in-progress month and one 7 months back
	// WHEN: Evaluating manager eligibility
	// THEN: Neither lands inside the trailing 6-whole-month window

	env := newTestEnv(t)
	svc := env.eligibilityService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "dino", Role: types.RoleAssociate})

	now := env.clock.Now() // 2026-08-15
	require.NoError(t, env.repos.ActivityRepo.AddSale(ctx, &repository.SalesRecord{
		MemberID: m.ID, Amount: decimal.NewFromInt(2_000_000), InsuredCount: 30,
		OccurredAt: now.AddDate(0, 0, -1), // current partial month
	}))
	require.NoError(t, env.repos.ActivityRepo.AddSale(ctx, &repository.SalesRecord{
		MemberID: m.ID, Amount: decimal.NewFromInt(2_000_000), InsuredCount: 30,
		OccurredAt: time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC), // before window start
	}))

	report, err := svc.Evaluate(ctx, m.ID, types.RoleManager)
	require.NoError(t, err)

	require.NotNil(t, report.WindowFrom)
	require.NotNil(t, report.WindowTo)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), *report.WindowFrom)
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), *report.WindowTo)
	assert.True(t, report.Criteria["salesVolume"].Current.IsZero())
}

func TestEvaluateManager_NoActivityIsZeroNotError(t *testing.T) {
	// GIVEN: An associate with no recorded activity at all
	// WHEN: Evaluating manager eligibility
	// THEN: Every criterion reads zero and evaluation succeeds

	env := newTestEnv(t)
	svc := env.eligibilityService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "elsa", Role: types.RoleAssociate})

	report, err := svc.Evaluate(ctx, m.ID, types.RoleManager)
	require.NoError(t, err)
	assert.False(t, report.Eligible)
	for name, c := range report.Criteria {
		assert.True(t, c.Current.IsZero(), "criterion %s should read zero", name)
	}
	assert.True(t, report.RewardTotal.IsZero())
}

func TestEvaluateManager_RangeThresholds(t *testing.T) {
	// GIVEN: A range-2 associate with 700k volume and 12 insured
	// WHEN: Evaluating against the lower range-2 bars
	// THEN: Both quantitative criteria are met

	env := newTestEnv(t)
	svc := env.eligibilityService()
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "fay", Role: types.RoleAssociate, Range: 2})

	inWindow := env.clock.Now().AddDate(0, -3, 0)
	require.NoError(t, env.repos.ActivityRepo.AddSale(ctx, &repository.SalesRecord{
		MemberID: m.ID, Amount: decimal.NewFromInt(700_000), InsuredCount: 12, OccurredAt: inWindow,
	}))

	report, err := svc.Evaluate(ctx, m.ID, types.RoleManager)
	require.NoError(t, err)
	assert.True(t, report.Criteria["salesVolume"].Met)
	assert.True(t, report.Criteria["insuredCount"].Met)
}

func TestEvaluate_TargetMustOutrank(t *testing.T) {
	env := newTestEnv(t)
	svc := env.eligibilityService()
	ctx := context.Background()

	manager := env.createMember(t, &repository.Member{Name: "gus", Role: types.RoleManager})
	_, err := svc.Evaluate(ctx, manager.ID, types.RoleAssociate)
	assert.ErrorIs(t, err, ErrValidation)
}

// =============================================================================
// TIMEOUT
// =============================================================================

// stallActivityRepo blocks aggregate calls until the context dies.
type stallActivityRepo struct {
	repository.ActivityRepository
}

func (s *stallActivityRepo) SumSalesVolume(ctx context.Context, memberID string, from, to time.Time) (decimal.Decimal, error) {
	<-ctx.Done()
	return decimal.Zero, ctx.Err()
}

func TestEvaluateManager_TimeoutIsTyped(t *testing.T) {
	// GIVEN: An aggregator that never answers within the configured bound
	// WHEN: Evaluating manager eligibility
	// THEN: The caller gets the typed timeout error, not a generic failure

	env := newTestEnv(t)
	env.cfg.EligibilityTimeoutMS = 30
	svc := NewEligibilityService(
		env.repos.MemberRepo,
		&stallActivityRepo{ActivityRepository: env.repos.ActivityRepo},
		env.repos.CompensationRepo,
		nil, env.clock, env.cfg)
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "hana", Role: types.RoleAssociate})

	_, err := svc.Evaluate(ctx, m.ID, types.RoleManager)
	assert.ErrorIs(t, err, ErrEvaluationTimeout)
}
