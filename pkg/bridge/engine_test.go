package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/novavault/recovery-middleware/pkg/app/errors"
	"github.com/novavault/recovery-middleware/pkg/attestation"
	"github.com/novavault/recovery-middleware/pkg/config"
	"github.com/novavault/recovery-middleware/pkg/custody"
)

const testRecipient = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

func fastConfig() *config.BridgeConfig {
	return &config.BridgeConfig{
		ConfirmationInterval:    time.Millisecond,
		ConfirmationMaxAttempts: 5,
	}
}

func testRequest() TransferRequest {
	return TransferRequest{
		SourceChain:      "AVAX-FUJI",
		DestinationChain: "ETH-SEPOLIA",
		Amount:           "12.5",
		Recipient:        testRecipient,
		WalletRef:        "wallet-1",
	}
}

func TestEngine_Transfer_HappyPath(t *testing.T) {
	var submissions int
	caller := &MockContractCaller{
		SubmitContractCallFunc: func(ctx context.Context, req custody.ContractCallRequest) (string, error) {
			submissions++
			return fmt.Sprintf("op-%d", submissions), nil
		},
		GetOperationStatusFunc: func(ctx context.Context, operationID string) (*custody.Operation, error) {
			return &custody.Operation{
				ID:     operationID,
				State:  custody.OperationStateComplete,
				TxHash: "0xtx-" + operationID,
			}, nil
		},
	}
	attester := &MockAttestationWaiter{}

	engine := NewEngine(caller, attester, fastConfig(), zap.NewNop())

	op, err := engine.Transfer(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, op.Status)
	assert.Equal(t, StepDone, op.Step)
	assert.Equal(t, AttestationComplete, op.AttestationStatus)
	assert.Equal(t, "0xtx-op-2", op.BurnTxHash)
	assert.Equal(t, "0xtx-op-3", op.MintTxHash)

	require.Len(t, caller.Submitted, 3)
	assert.Equal(t, approveSignature, caller.Submitted[0].FunctionSignature)
	assert.Equal(t, burnSignature, caller.Submitted[1].FunctionSignature)
	assert.Equal(t, mintSignature, caller.Submitted[2].FunctionSignature)

	// Amount converted to USDC base units for both approve and burn.
	assert.Equal(t, "12500000", caller.Submitted[0].Params[1])
	assert.Equal(t, "12500000", caller.Submitted[1].Params[0])
	// Destination domain for ETH-SEPOLIA.
	assert.Equal(t, "0", caller.Submitted[1].Params[1])
	// Recipient is left-padded to bytes32.
	assert.Equal(t,
		"0x0000000000000000000000008ba1f109551bd432803012645ac136ddd64dba72",
		caller.Submitted[1].Params[2])
}

func TestEngine_Transfer_ApprovalFailureAbortsBeforeBurn(t *testing.T) {
	caller := &MockContractCaller{
		GetOperationStatusFunc: func(ctx context.Context, operationID string) (*custody.Operation, error) {
			return &custody.Operation{
				ID:          operationID,
				State:       custody.OperationStateFailed,
				ErrorReason: "insufficient allowance",
			}, nil
		},
	}

	engine := NewEngine(caller, &MockAttestationWaiter{}, fastConfig(), zap.NewNop())

	op, err := engine.Transfer(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrApprovalFailed))
	assert.Contains(t, err.Error(), "insufficient allowance")

	assert.Equal(t, StatusFailed, op.Status)
	assert.Equal(t, StepApproving, op.Step)
	assert.Empty(t, op.BurnTxHash)
	// Only the approval was ever submitted.
	assert.Len(t, caller.Submitted, 1)
}

func TestEngine_Transfer_AttestationTimeoutExposesBurnTxHash(t *testing.T) {
	caller := &MockContractCaller{
		GetOperationStatusFunc: func(ctx context.Context, operationID string) (*custody.Operation, error) {
			return &custody.Operation{ID: operationID, State: custody.OperationStateComplete, TxHash: "0xburn"}, nil
		},
	}
	attester := &MockAttestationWaiter{
		WaitForAttestationFunc: func(ctx context.Context, domain uint32, burnTxHash string) (*attestation.Attestation, error) {
			return nil, fmt.Errorf("%w: no complete attestation", attestation.ErrTimeout)
		},
	}

	engine := NewEngine(caller, attester, fastConfig(), zap.NewNop())

	op, err := engine.Transfer(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, attestation.ErrTimeout))
	assert.True(t, apperrors.Is(err, apperrors.CategoryTimeout))

	// Funds remain traceable: the burn hash survives the timeout.
	assert.Equal(t, "0xburn", op.BurnTxHash)
	assert.Equal(t, StatusFailed, op.Status)
	assert.Equal(t, StepAttesting, op.Step)
	assert.Equal(t, AttestationPending, op.AttestationStatus)
}

func TestEngine_Transfer_MintFailureIsRetryableWithoutReburn(t *testing.T) {
	var submissions int
	caller := &MockContractCaller{
		SubmitContractCallFunc: func(ctx context.Context, req custody.ContractCallRequest) (string, error) {
			submissions++
			if req.FunctionSignature == mintSignature {
				return "", errors.New("destination rpc unavailable")
			}
			return fmt.Sprintf("op-%d", submissions), nil
		},
		GetOperationStatusFunc: func(ctx context.Context, operationID string) (*custody.Operation, error) {
			return &custody.Operation{ID: operationID, State: custody.OperationStateConfirmed, TxHash: "0xburn"}, nil
		},
	}

	engine := NewEngine(caller, &MockAttestationWaiter{}, fastConfig(), zap.NewNop())

	op, err := engine.Transfer(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMintFailed))
	assert.Contains(t, err.Error(), "0xburn")

	assert.Equal(t, "0xburn", op.BurnTxHash)
	assert.Equal(t, AttestationComplete, op.AttestationStatus)
	assert.Empty(t, op.MintTxHash)
}

func TestEngine_Transfer_ConfirmationTimeout(t *testing.T) {
	caller := &MockContractCaller{
		GetOperationStatusFunc: func(ctx context.Context, operationID string) (*custody.Operation, error) {
			// Never reaches a terminal state.
			return &custody.Operation{ID: operationID, State: custody.OperationStateSent}, nil
		},
	}

	engine := NewEngine(caller, &MockAttestationWaiter{}, fastConfig(), zap.NewNop())

	_, err := engine.Transfer(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfirmationTimeout))
	assert.True(t, apperrors.Is(err, apperrors.CategoryTimeout))
}

func TestEngine_Transfer_ValidationFailures(t *testing.T) {
	engine := NewEngine(&MockContractCaller{}, &MockAttestationWaiter{}, fastConfig(), zap.NewNop())

	tests := []struct {
		name   string
		mutate func(*TransferRequest)
		want   string
	}{
		{"unsupported source", func(r *TransferRequest) { r.SourceChain = "SOL-DEVNET" }, "unsupported chain"},
		{"unsupported destination", func(r *TransferRequest) { r.DestinationChain = "SOL-DEVNET" }, "unsupported chain"},
		{"bad recipient", func(r *TransferRequest) { r.Recipient = "bob" }, "malformed recipient"},
		{"bad amount", func(r *TransferRequest) { r.Amount = "ten" }, "malformed amount"},
		{"negative amount", func(r *TransferRequest) { r.Amount = "-5" }, "must be positive"},
		{"too precise", func(r *TransferRequest) { r.Amount = "1.0000001" }, "exceeds USDC precision"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(&req)
			op, err := engine.Transfer(context.Background(), req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, StatusFailed, op.Status)
		})
	}
}

func TestToBaseUnits(t *testing.T) {
	units, err := toBaseUnits("12.5")
	require.NoError(t, err)
	assert.Equal(t, "12500000", units)

	units, err = toBaseUnits("0.000001")
	require.NoError(t, err)
	assert.Equal(t, "1", units)
}
