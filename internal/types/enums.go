package types

// Role is the member's position in the career-progression program.
// Roles are ordered: member < associate < manager.
type Role string

const (
	RoleMember    Role = "member"
	RoleAssociate Role = "associate"
	RoleManager   Role = "manager"
)

var roleRank = map[Role]int{
	RoleMember:    0,
	RoleAssociate: 1,
	RoleManager:   2,
}

// Rank returns the ordering position of a role, -1 for unknown roles.
func (r Role) Rank() int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return -1
}

// Above reports whether r outranks other.
func (r Role) Above(other Role) bool {
	return r.Rank() > other.Rank()
}

func IsValidRole(role string) bool {
	_, ok := roleRank[Role(role)]
	return ok
}

// MembershipStatus is the member's billing/standing status.
type MembershipStatus string

const (
	StatusActive              MembershipStatus = "active"
	StatusPastDue             MembershipStatus = "past_due"
	StatusDelinquent          MembershipStatus = "delinquent"
	StatusSuspended           MembershipStatus = "suspended"
	StatusCancellationPending MembershipStatus = "cancellation_pending"
	StatusCanceled            MembershipStatus = "canceled"
)

// legalStatusTransitions is the single source of truth for the membership
// status state machine. A transition absent from this table is illegal no
// matter who requests it.
var legalStatusTransitions = map[MembershipStatus][]MembershipStatus{
	StatusActive:              {StatusPastDue, StatusSuspended, StatusCancellationPending},
	StatusPastDue:             {StatusActive, StatusDelinquent, StatusCancellationPending},
	StatusDelinquent:          {StatusActive, StatusCancellationPending},
	StatusSuspended:           {StatusActive},
	StatusCancellationPending: {StatusCanceled},
	StatusCanceled:            {},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to MembershipStatus) bool {
	for _, next := range legalStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsValidMembershipStatus(status string) bool {
	_, ok := legalStatusTransitions[MembershipStatus(status)]
	return ok
}

// IsCancellable reports whether a cancellation request may be made from this status.
func (s MembershipStatus) IsCancellable() bool {
	return CanTransition(s, StatusCancellationPending)
}

// ApplicationStatus is the review state of a promotion application.
// Pending is the only non-terminal state.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationApproved || s == ApplicationRejected
}

// OnboardingStep is one item of the post-approval checklist a member works
// through before the member -> associate role change takes effect.
type OnboardingStep string

const (
	StepComplianceTest OnboardingStep = "compliance_test"
	StepGuidanceViewed OnboardingStep = "guidance_viewed"
	StepManagerContact OnboardingStep = "manager_contact"
	StepPayoutAccount  OnboardingStep = "payout_account"
)

// OnboardingSteps lists every checklist step in completion order.
var OnboardingSteps = []OnboardingStep{
	StepComplianceTest,
	StepGuidanceViewed,
	StepManagerContact,
	StepPayoutAccount,
}

func IsValidOnboardingStep(step string) bool {
	for _, s := range OnboardingSteps {
		if s == OnboardingStep(step) {
			return true
		}
	}
	return false
}

// AttendanceIntent is a member's declared participation for a mandatory
// meeting cycle.
type AttendanceIntent string

const (
	IntentWillAttend    AttendanceIntent = "will_attend"
	IntentWillNotAttend AttendanceIntent = "will_not_attend"
	IntentUndecided     AttendanceIntent = "undecided"
)

func IsValidAttendanceIntent(intent string) bool {
	switch AttendanceIntent(intent) {
	case IntentWillAttend, IntentWillNotAttend, IntentUndecided:
		return true
	}
	return false
}

// FinalApproval is the reviewer's outcome for a member's meeting cycle.
// Empty means the cycle has not been finalized for that member yet.
type FinalApproval string

const (
	ApprovalUnset      FinalApproval = ""
	ApprovalMaintained FinalApproval = "maintained"
	ApprovalDemoted    FinalApproval = "demoted"
)

func IsValidFinalApproval(approval string) bool {
	switch FinalApproval(approval) {
	case ApprovalMaintained, ApprovalDemoted:
		return true
	}
	return false
}

// ActorSystem is the audit actor recorded for automated job transitions.
const ActorSystem = "SYSTEM"
