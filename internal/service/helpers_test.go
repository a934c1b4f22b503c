package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finlead/membership-backend/internal/clock"
	"github.com/finlead/membership-backend/internal/config"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fakeBilling records provider calls and can be told to fail.
type fakeBilling struct {
	mu         sync.Mutex
	pauses     []string
	unpauses   []string
	cancels    []cancelCall
	failAll    bool
	failUnpaus bool
}

type cancelCall struct {
	SubscriptionID string
	At             time.Time
}

func (f *fakeBilling) PauseBilling(ctx context.Context, subscriptionID string, resumeAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return context.DeadlineExceeded
	}
	f.pauses = append(f.pauses, subscriptionID)
	return nil
}

func (f *fakeBilling) UnpauseBilling(ctx context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll || f.failUnpaus {
		return context.DeadlineExceeded
	}
	f.unpauses = append(f.unpauses, subscriptionID)
	return nil
}

func (f *fakeBilling) ScheduleCancellation(ctx context.Context, subscriptionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return context.DeadlineExceeded
	}
	f.cancels = append(f.cancels, cancelCall{SubscriptionID: subscriptionID, At: at})
	return nil
}

// fakeIdentity records role sync calls.
type fakeIdentity struct {
	mu    sync.Mutex
	syncs []roleSync
}

type roleSync struct {
	MemberID string
	Role     types.Role
}

func (f *fakeIdentity) UpdateRoleMetadata(ctx context.Context, memberID string, role types.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, roleSync{MemberID: memberID, Role: role})
	return nil
}

type testEnv struct {
	repos    *repository.Repositories
	clock    *clock.Fixed
	billing  *fakeBilling
	identity *fakeIdentity
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		repos:    repository.NewRepositories(),
		clock:    &clock.Fixed{T: time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)},
		billing:  &fakeBilling{},
		identity: &fakeIdentity{},
		cfg: &config.Config{
			SuspensionMaxMonths:  3,
			MinCommitmentMonths:  6,
			EligibilityTimeoutMS: 2000,
			JWTSecret:            "test-secret",
			JWTExpiry:            1,
			RefreshExpiry:        7,
		},
	}
}

func (e *testEnv) membershipService() MembershipService {
	return NewMembershipService(e.repos.MemberRepo, e.repos.StatusHistoryRepo, e.billing, nil, nil, e.clock, e.cfg)
}

func (e *testEnv) promotionService() PromotionService {
	return NewPromotionService(e.repos.MemberRepo, e.repos.PromotionRepo, e.repos.RoleHistoryRepo, e.identity, nil, nil, e.clock)
}

func (e *testEnv) eligibilityService() EligibilityService {
	return NewEligibilityService(e.repos.MemberRepo, e.repos.ActivityRepo, e.repos.CompensationRepo, nil, e.clock, e.cfg)
}

func (e *testEnv) jobsService() JobsService {
	return NewJobsService(
		e.repos.MemberRepo, e.repos.StatusHistoryRepo, e.repos.RoleHistoryRepo,
		e.repos.PromotionRepo, e.repos.AttendanceRepo, e.repos.MentoringRepo,
		e.billing, e.identity, nil, e.clock)
}

func (e *testEnv) createMember(t *testing.T, m *repository.Member) *repository.Member {
	t.Helper()
	if m.Status == "" {
		m.Status = types.StatusActive
	}
	if m.Role == "" {
		m.Role = types.RoleMember
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = e.clock.Now().AddDate(-1, 0, 0)
	}
	if m.Email == "" {
		m.Email = m.Name + "@test.dev"
	}
	require.NoError(t, e.repos.MemberRepo.Create(context.Background(), m))
	return m
}
