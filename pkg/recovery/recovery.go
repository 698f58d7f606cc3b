// Package recovery holds the domain model for guardian-approved wallet
// identity recovery.
package recovery

import (
	"time"

	"github.com/novavault/recovery-middleware/pkg/identity"
)

// Status is the lifecycle state of a recovery request. Transitions are
// monotonic: a request never moves backwards, and COMPLETED/FAILED are
// terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusExecuting Status = "EXECUTING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

var statusRank = map[Status]int{
	StatusPending:   0,
	StatusApproved:  1,
	StatusExecuting: 2,
	StatusCompleted: 3,
	StatusFailed:    3,
}

// CanTransition reports whether moving from one status to another keeps the
// lifecycle monotonic.
func CanTransition(from, to Status) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if from == StatusCompleted || from == StatusFailed {
		return false
	}
	return toRank > fromRank
}

// Active reports whether the status still blocks a new recovery for the
// same identity.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved || s == StatusExecuting
}

// Phase names one stage of the fund migration pipeline.
type Phase string

const (
	PhaseExecuteRecovery Phase = "executeRecovery"
	PhaseAggregateUSDC   Phase = "aggregateUSDC"
	PhaseConvertNonUSDC  Phase = "convertNonUSDC"
	PhaseRedistribute    Phase = "redistribute"
)

// Request tracks one recovery attempt for an identity: its guardian quorum
// state and, once approved, its migration progress.
type Request struct {
	RequestID   string `json:"requestId"`
	IdentityKey string `json:"identityKey"`
	Identity    string `json:"identity"`

	CurrentOwner string `json:"currentOwner"`
	NewOwner     string `json:"newOwner"`

	Guardians []string `json:"guardians"`
	Threshold int      `json:"threshold"`
	Approvals []string `json:"approvals"`

	Status         Status `json:"status"`
	ExecutionPhase Phase  `json:"executionPhase,omitempty"`

	CreatedAt          time.Time  `json:"createdAt"`
	ExecutionStartedAt *time.Time `json:"executionStartedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	FailedAt           *time.Time `json:"failedAt,omitempty"`
	Error              string     `json:"error,omitempty"`

	Result *MigrationResult `json:"result,omitempty"`
}

// HasGuardian reports whether the address belongs to the guardian set.
// Comparison is case-insensitive.
func (r *Request) HasGuardian(address string) bool {
	normalized := identity.NormalizeAddress(address)
	for _, g := range r.Guardians {
		if identity.NormalizeAddress(g) == normalized {
			return true
		}
	}
	return false
}

// HasApproved reports whether the guardian already approved.
func (r *Request) HasApproved(address string) bool {
	normalized := identity.NormalizeAddress(address)
	for _, a := range r.Approvals {
		if identity.NormalizeAddress(a) == normalized {
			return true
		}
	}
	return false
}

// ThresholdMet reports whether the quorum has been reached.
func (r *Request) ThresholdMet() bool {
	return len(r.Approvals) >= r.Threshold
}

// TokenHolding is one non-USDC token balance on a network.
type TokenHolding struct {
	Symbol       string `json:"symbol"`
	Balance      string `json:"balance"`
	TokenAddress string `json:"tokenAddress"`
}

// NetworkBalance is a read-only snapshot of the old wallet's holdings on a
// single chain. The migration pipeline never mutates it.
type NetworkBalance struct {
	Chain   string         `json:"chain"`
	Address string         `json:"address"`
	USDC    string         `json:"usdcBalance"`
	Native  string         `json:"nativeBalance"`
	Tokens  []TokenHolding `json:"tokens"`
}

// OutcomeStatus is the result of one per-network migration item.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

// NetworkOutcome is the result of migrating one network (or one token on
// one network in the conversion phase).
type NetworkOutcome struct {
	Network    string        `json:"network"`
	Token      string        `json:"token,omitempty"`
	Status     OutcomeStatus `json:"status"`
	BurnTxHash string        `json:"burnTxHash,omitempty"`
	MintTxHash string        `json:"mintTxHash,omitempty"`
	SwapTxHash string        `json:"swapTxHash,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// PhaseResult aggregates the per-network outcomes of one pipeline phase.
type PhaseResult struct {
	Phase    Phase            `json:"phase"`
	Outcomes []NetworkOutcome `json:"outcomes"`
}

// MigrationResult is the per-invocation aggregate across all phases.
type MigrationResult struct {
	Phases []PhaseResult `json:"phases"`
}
