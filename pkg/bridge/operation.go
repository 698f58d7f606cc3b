package bridge

// Step is the engine's position in the CCTP protocol for one operation.
type Step string

const (
	StepApproving Step = "APPROVING"
	StepBurning   Step = "BURNING"
	StepAttesting Step = "ATTESTING"
	StepMinting   Step = "MINTING"
	StepDone      Step = "DONE"
)

// Status is the overall outcome of one operation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// AttestationStatus tracks whether the burn has been attested.
type AttestationStatus string

const (
	AttestationPending  AttestationStatus = "PENDING"
	AttestationComplete AttestationStatus = "COMPLETE"
)

// Operation is one cross-chain transfer attempt. BurnTxHash is recorded the
// moment the burn confirms: the burn is irreversible, so the hash must
// survive any later failure for funds to stay traceable. MintTxHash is only
// ever set after AttestationStatus is COMPLETE.
type Operation struct {
	ID                string            `json:"id"`
	SourceChain       string            `json:"sourceChain"`
	DestinationChain  string            `json:"destinationChain"`
	Amount            string            `json:"amount"`
	Recipient         string            `json:"recipient"`
	Step              Step              `json:"step"`
	Status            Status            `json:"status"`
	AttestationStatus AttestationStatus `json:"attestationStatus"`
	BurnTxHash        string            `json:"burnTxHash,omitempty"`
	MintTxHash        string            `json:"mintTxHash,omitempty"`
	Error             string            `json:"error,omitempty"`
}
