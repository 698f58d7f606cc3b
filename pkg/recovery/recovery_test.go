package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_Monotonic(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusApproved))
	assert.True(t, CanTransition(StatusApproved, StatusExecuting))
	assert.True(t, CanTransition(StatusExecuting, StatusCompleted))
	assert.True(t, CanTransition(StatusExecuting, StatusFailed))
	assert.True(t, CanTransition(StatusPending, StatusFailed))

	// Never regress.
	assert.False(t, CanTransition(StatusApproved, StatusPending))
	assert.False(t, CanTransition(StatusExecuting, StatusApproved))

	// Terminal states never leave.
	assert.False(t, CanTransition(StatusCompleted, StatusFailed))
	assert.False(t, CanTransition(StatusFailed, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusPending))

	assert.False(t, CanTransition(Status("BOGUS"), StatusPending))
	assert.False(t, CanTransition(StatusPending, Status("BOGUS")))
}

func TestStatus_Active(t *testing.T) {
	assert.True(t, StatusPending.Active())
	assert.True(t, StatusApproved.Active())
	assert.True(t, StatusExecuting.Active())
	assert.False(t, StatusCompleted.Active())
	assert.False(t, StatusFailed.Active())
}

func TestRequest_GuardianChecks(t *testing.T) {
	req := &Request{
		Guardians: []string{"0xAbCd000000000000000000000000000000000001"},
		Approvals: []string{"0xabcd000000000000000000000000000000000001"},
		Threshold: 2,
	}

	assert.True(t, req.HasGuardian("0xABCD000000000000000000000000000000000001"))
	assert.False(t, req.HasGuardian("0x0000000000000000000000000000000000000002"))
	assert.True(t, req.HasApproved("0xAbCd000000000000000000000000000000000001"))
	assert.False(t, req.ThresholdMet())

	req.Approvals = append(req.Approvals, "0x0000000000000000000000000000000000000002")
	assert.True(t, req.ThresholdMet())
}
