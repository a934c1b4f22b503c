package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finlead/membership-backend/internal/clock"
	"github.com/finlead/membership-backend/internal/config"
	"github.com/finlead/membership-backend/internal/db"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

// Criterion is one evaluated requirement: how far along the member is and
// whether the bar is met. Percent is capped at 100.
type Criterion struct {
	Current decimal.Decimal `json:"current"`
	Target  decimal.Decimal `json:"target"`
	Met     bool            `json:"met"`
	Percent int             `json:"percent"`
}

// EligibilityReport is the full evaluation result for one member and target
// role. Eligible is true only when every criterion is met.
type EligibilityReport struct {
	MemberID    string               `json:"memberId"`
	TargetRole  types.Role           `json:"targetRole"`
	Eligible    bool                 `json:"eligible"`
	Criteria    map[string]Criterion `json:"criteria"`
	WindowFrom  *time.Time           `json:"windowFrom,omitempty"`
	WindowTo    *time.Time           `json:"windowTo,omitempty"`
	RewardTotal decimal.Decimal      `json:"rewardTotal"`
	EvaluatedAt time.Time            `json:"evaluatedAt"`
}

// EligibilityService evaluates promotion readiness. Evaluation is read-only
// and never mutates member state.
type EligibilityService interface {
	Evaluate(ctx context.Context, memberID string, targetRole types.Role) (*EligibilityReport, error)
}

// managerThresholds are the quantitative bars for the manager role, varying
// by the member's range.
type managerThresholds struct {
	SalesVolume        decimal.Decimal
	InsuredCount       int
	MemberReferrals    int
	AssociateReferrals int
}

var managerThresholdsByRange = map[int]managerThresholds{
	0: {SalesVolume: decimal.NewFromInt(1_200_000), InsuredCount: 20, MemberReferrals: 3, AssociateReferrals: 1},
	1: {SalesVolume: decimal.NewFromInt(900_000), InsuredCount: 15, MemberReferrals: 2, AssociateReferrals: 1},
	2: {SalesVolume: decimal.NewFromInt(600_000), InsuredCount: 10, MemberReferrals: 2, AssociateReferrals: 1},
}

func thresholdsForRange(r int) managerThresholds {
	if t, ok := managerThresholdsByRange[r]; ok {
		return t
	}
	return managerThresholdsByRange[0]
}

type eligibilityService struct {
	memberRepo repository.MemberRepository
	activity   repository.ActivityRepository
	comp       repository.CompensationRepository
	cache      *db.RedisDB
	clock      clock.Clock
	cfg        *config.Config
}

func NewEligibilityService(
	memberRepo repository.MemberRepository,
	activity repository.ActivityRepository,
	comp repository.CompensationRepository,
	cache *db.RedisDB,
	clk clock.Clock,
	cfg *config.Config,
) EligibilityService {
	return &eligibilityService{
		memberRepo: memberRepo,
		activity:   activity,
		comp:       comp,
		cache:      cache,
		clock:      clk,
		cfg:        cfg,
	}
}

const eligibilityCacheTTL = 60 * time.Second

func (s *eligibilityService) Evaluate(ctx context.Context, memberID string, targetRole types.Role) (*EligibilityReport, error) {
	if targetRole != types.RoleAssociate && targetRole != types.RoleManager {
		return nil, &ValidationError{Field: "targetRole", Message: "must be associate or manager"}
	}

	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if !targetRole.Above(member.Role) {
		return nil, &ValidationError{Field: "targetRole", Message: "must outrank current role"}
	}

	cacheKey := fmt.Sprintf("eligibility:%s:%s", memberID, targetRole)
	if s.cache != nil {
		var cached EligibilityReport
		if found, err := s.cache.GetCache(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	var report *EligibilityReport
	if targetRole == types.RoleAssociate {
		report = s.evaluateAssociate(member)
	} else {
		report, err = s.evaluateManager(ctx, member)
		if err != nil {
			return nil, err
		}
	}
	report.EvaluatedAt = s.clock.Now()

	if s.cache != nil {
		if err := s.cache.SetCache(ctx, cacheKey, report, eligibilityCacheTTL); err != nil {
			log.Printf("[Eligibility] Failed to cache report for %s: %v", memberID, err)
		}
	}
	return report, nil
}

// evaluateAssociate checks the two milestone flags. These are bookkeeping
// bits on the member record, so no aggregation window applies.
func (s *eligibilityService) evaluateAssociate(member *repository.Member) *EligibilityReport {
	criteria := map[string]Criterion{
		"orientationMeeting": boolCriterion(member.MeetingCompleted),
		"complianceSurvey":   boolCriterion(member.SurveyCompleted),
	}
	return &EligibilityReport{
		MemberID:    member.ID,
		TargetRole:  types.RoleAssociate,
		Eligible:    member.MeetingCompleted && member.SurveyCompleted,
		Criteria:    criteria,
		RewardTotal: decimal.Zero,
	}
}

// evaluateManager aggregates activity over the trailing six whole calendar
// months. The window ends at the first day of the current month so an
// in-progress month never counts against the member. The four aggregations
// run concurrently under the configured deadline.
func (s *eligibilityService) evaluateManager(ctx context.Context, member *repository.Member) (*EligibilityReport, error) {
	now := s.clock.Now()
	windowTo := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	windowFrom := windowTo.AddDate(0, -6, 0)
	fromMonth := windowFrom.Format("2006-01")
	toMonth := windowTo.AddDate(0, -1, 0).Format("2006-01")

	t := thresholdsForRange(member.Range)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.EligibilityTimeoutMS)*time.Millisecond)
	defer cancel()

	type aggResult struct {
		name    string
		dec     decimal.Decimal
		n       int
		isCount bool
		err     error
	}
	results := make(chan aggResult, 5)

	go func() {
		v, err := s.activity.SumSalesVolume(ctx, member.ID, windowFrom, windowTo)
		results <- aggResult{name: "salesVolume", dec: v, err: err}
	}()
	go func() {
		n, err := s.activity.SumInsuredCount(ctx, member.ID, windowFrom, windowTo)
		results <- aggResult{name: "insuredCount", n: n, isCount: true, err: err}
	}()
	go func() {
		n, err := s.activity.CountApprovedReferrals(ctx, member.ID, types.RoleMember, windowFrom, windowTo)
		results <- aggResult{name: "memberReferrals", n: n, isCount: true, err: err}
	}()
	go func() {
		n, err := s.activity.CountApprovedReferrals(ctx, member.ID, types.RoleAssociate, windowFrom, windowTo)
		results <- aggResult{name: "associateReferrals", n: n, isCount: true, err: err}
	}()
	go func() {
		v, err := s.comp.SumTotals(ctx, member.ID, fromMonth, toMonth)
		results <- aggResult{name: "rewardTotal", dec: v, err: err}
	}()

	agg := make(map[string]aggResult, 5)
	for i := 0; i < 5; i++ {
		select {
		case r := <-results:
			if r.err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("%w: %s", ErrEvaluationTimeout, r.name)
				}
				return nil, fmt.Errorf("failed to aggregate %s: %v", r.name, r.err)
			}
			agg[r.name] = r
		case <-ctx.Done():
			return nil, ErrEvaluationTimeout
		}
	}

	criteria := map[string]Criterion{
		"salesVolume":        decCriterion(agg["salesVolume"].dec, t.SalesVolume),
		"insuredCount":       intCriterion(agg["insuredCount"].n, t.InsuredCount),
		"memberReferrals":    intCriterion(agg["memberReferrals"].n, t.MemberReferrals),
		"associateReferrals": intCriterion(agg["associateReferrals"].n, t.AssociateReferrals),
	}

	eligible := true
	for _, c := range criteria {
		if !c.Met {
			eligible = false
			break
		}
	}

	return &EligibilityReport{
		MemberID:    member.ID,
		TargetRole:  types.RoleManager,
		Eligible:    eligible,
		Criteria:    criteria,
		WindowFrom:  &windowFrom,
		WindowTo:    &windowTo,
		RewardTotal: agg["rewardTotal"].dec,
	}, nil
}

func boolCriterion(done bool) Criterion {
	c := Criterion{Current: decimal.Zero, Target: decimal.NewFromInt(1), Met: done}
	if done {
		c.Current = decimal.NewFromInt(1)
		c.Percent = 100
	}
	return c
}

func intCriterion(current, target int) Criterion {
	return decCriterion(decimal.NewFromInt(int64(current)), decimal.NewFromInt(int64(target)))
}

func decCriterion(current, target decimal.Decimal) Criterion {
	c := Criterion{Current: current, Target: target, Met: current.GreaterThanOrEqual(target)}
	if target.IsPositive() {
		pct := current.Div(target).Mul(decimal.NewFromInt(100)).IntPart()
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
		c.Percent = int(pct)
	} else if c.Met {
		c.Percent = 100
	}
	return c
}
