package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

func TestMeetingCycle_IntentCompleteFinalize(t *testing.T) {
	// GIVEN: An associate declaring intent for the current cycle
	// WHEN: Completing via the video-survey alternative and finalizing
	// THEN: Each stage persists and a finalized cycle rejects further edits

	env := newTestEnv(t)
	svc := NewMeetingService(env.repos.MemberRepo, env.repos.AttendanceRepo, env.clock)
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "ana", Role: types.RoleAssociate})

	att, err := svc.DeclareIntent(ctx, m.ID, "2026-08", types.IntentWillNotAttend)
	require.NoError(t, err)
	assert.Equal(t, types.IntentWillNotAttend, att.Intent)

	att, err = svc.MarkCompleted(ctx, m.ID, "2026-08", "video_survey")
	require.NoError(t, err)
	assert.True(t, att.Completed)
	assert.Equal(t, "video_survey", att.CompletedVia)

	att, err = svc.Finalize(ctx, m.ID, "2026-08", types.ApprovalMaintained, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, types.ApprovalMaintained, att.Approval)
	require.NotNil(t, att.FinalizedAt)

	_, err = svc.Finalize(ctx, m.ID, "2026-08", types.ApprovalDemoted, "admin-2")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.DeclareIntent(ctx, m.ID, "2026-08", types.IntentWillAttend)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMeetingCycle_Validation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMeetingService(env.repos.MemberRepo, env.repos.AttendanceRepo, env.clock)
	ctx := context.Background()
	m := env.createMember(t, &repository.Member{Name: "bo"})

	_, err := svc.DeclareIntent(ctx, m.ID, "August", types.IntentWillAttend)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.DeclareIntent(ctx, m.ID, "2026-08", types.AttendanceIntent("maybe"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.MarkCompleted(ctx, m.ID, "2026-08", "osmosis")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Finalize(ctx, m.ID, "2026-08", types.ApprovalMaintained, "admin-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
