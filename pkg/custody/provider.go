// Package custody defines the wallet custody provider contract. The provider
// holds wallet keys and signs transactions; this service only submits calls
// and polls their state.
package custody

import "context"

// OperationState is the provider-reported state of a submitted transaction.
type OperationState string

const (
	OperationStateInitiated OperationState = "INITIATED"
	OperationStateQueued    OperationState = "QUEUED"
	OperationStateSent      OperationState = "SENT"
	OperationStateConfirmed OperationState = "CONFIRMED"
	OperationStateComplete  OperationState = "COMPLETE"
	OperationStateFailed    OperationState = "FAILED"
	OperationStateDenied    OperationState = "DENIED"
)

// Terminal reports whether the state will never change again.
func (s OperationState) Terminal() bool {
	switch s {
	case OperationStateConfirmed, OperationStateComplete, OperationStateFailed, OperationStateDenied:
		return true
	}
	return false
}

// Succeeded reports whether a terminal state is a success.
func (s OperationState) Succeeded() bool {
	return s == OperationStateConfirmed || s == OperationStateComplete
}

// TokenBalance is a non-USDC token holding on a single chain.
type TokenBalance struct {
	Symbol       string `json:"symbol"`
	Balance      string `json:"balance"`
	TokenAddress string `json:"tokenAddress"`
}

// Balance is a wallet's holdings on one chain.
type Balance struct {
	USDC   string         `json:"usdc"`
	Native string         `json:"native"`
	Tokens []TokenBalance `json:"tokens"`
}

// Operation is a submitted on-chain call tracked by the provider.
type Operation struct {
	ID          string         `json:"id"`
	State       OperationState `json:"state"`
	TxHash      string         `json:"txHash"`
	ErrorReason string         `json:"errorReason"`
}

// ContractCallRequest describes one contract invocation to submit through
// the provider-held wallet.
type ContractCallRequest struct {
	WalletRef         string
	ContractAddress   string
	FunctionSignature string
	Params            []string
}

// Provider is the custody collaborator interface. All blocking on-chain
// actions in the bridge engine and migration pipeline go through it.
type Provider interface {
	GetBalance(ctx context.Context, walletRef, chain string) (*Balance, error)
	SubmitContractCall(ctx context.Context, req ContractCallRequest) (string, error)
	GetOperationStatus(ctx context.Context, operationID string) (*Operation, error)
}
