package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_LegalMoves(t *testing.T) {
	// GIVEN: The status transition table
	// WHEN: Checking every documented legal transition
	// THEN: Each should be allowed

	legal := []struct{ from, to MembershipStatus }{
		{StatusActive, StatusPastDue},
		{StatusActive, StatusSuspended},
		{StatusActive, StatusCancellationPending},
		{StatusPastDue, StatusActive},
		{StatusPastDue, StatusDelinquent},
		{StatusPastDue, StatusCancellationPending},
		{StatusDelinquent, StatusActive},
		{StatusDelinquent, StatusCancellationPending},
		{StatusSuspended, StatusActive},
		{StatusCancellationPending, StatusCanceled},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}
}

func TestCanTransition_IllegalMoves(t *testing.T) {
	// GIVEN: The status transition table
	// WHEN: Checking moves outside it
	// THEN: Each should be rejected, including everything out of canceled

	illegal := []struct{ from, to MembershipStatus }{
		{StatusSuspended, StatusPastDue},
		{StatusSuspended, StatusCancellationPending},
		{StatusDelinquent, StatusPastDue},
		{StatusActive, StatusDelinquent},
		{StatusActive, StatusCanceled},
		{StatusCancellationPending, StatusActive},
		{StatusCanceled, StatusActive},
		{StatusCanceled, StatusPastDue},
		{StatusActive, StatusActive},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestIsCancellable(t *testing.T) {
	assert.True(t, StatusActive.IsCancellable())
	assert.True(t, StatusPastDue.IsCancellable())
	assert.True(t, StatusDelinquent.IsCancellable())
	assert.False(t, StatusSuspended.IsCancellable())
	assert.False(t, StatusCancellationPending.IsCancellable())
	assert.False(t, StatusCanceled.IsCancellable())
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleAssociate.Above(RoleMember))
	assert.True(t, RoleManager.Above(RoleAssociate))
	assert.False(t, RoleMember.Above(RoleManager))
	assert.Equal(t, -1, Role("ceo").Rank())
}

func TestApplicationStatusTerminal(t *testing.T) {
	assert.False(t, ApplicationPending.IsTerminal())
	assert.True(t, ApplicationApproved.IsTerminal())
	assert.True(t, ApplicationRejected.IsTerminal())
}
