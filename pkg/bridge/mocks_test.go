package bridge

import (
	"context"

	"github.com/novavault/recovery-middleware/pkg/attestation"
	"github.com/novavault/recovery-middleware/pkg/custody"
)

// MockContractCaller is a mock implementation of ContractCaller
type MockContractCaller struct {
	SubmitContractCallFunc func(ctx context.Context, req custody.ContractCallRequest) (string, error)
	GetOperationStatusFunc func(ctx context.Context, operationID string) (*custody.Operation, error)

	Submitted []custody.ContractCallRequest
}

func (m *MockContractCaller) SubmitContractCall(ctx context.Context, req custody.ContractCallRequest) (string, error) {
	m.Submitted = append(m.Submitted, req)
	if m.SubmitContractCallFunc != nil {
		return m.SubmitContractCallFunc(ctx, req)
	}
	return "op-mock", nil
}

func (m *MockContractCaller) GetOperationStatus(ctx context.Context, operationID string) (*custody.Operation, error) {
	if m.GetOperationStatusFunc != nil {
		return m.GetOperationStatusFunc(ctx, operationID)
	}
	return &custody.Operation{ID: operationID, State: custody.OperationStateComplete, TxHash: "0xmock"}, nil
}

// MockAttestationWaiter is a mock implementation of AttestationWaiter
type MockAttestationWaiter struct {
	WaitForAttestationFunc func(ctx context.Context, domain uint32, burnTxHash string) (*attestation.Attestation, error)
}

func (m *MockAttestationWaiter) WaitForAttestation(ctx context.Context, domain uint32, burnTxHash string) (*attestation.Attestation, error) {
	if m.WaitForAttestationFunc != nil {
		return m.WaitForAttestationFunc(ctx, domain, burnTxHash)
	}
	return &attestation.Attestation{
		Status:      attestation.StatusComplete,
		Message:     "0xmsg",
		Attestation: "0xatt",
	}, nil
}
