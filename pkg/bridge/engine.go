// Package bridge executes the four-step CCTP protocol: approve the spend,
// burn on the source chain, wait for the attestation, mint on the
// destination chain.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/novavault/recovery-middleware/internal/metrics"
	apperrors "github.com/novavault/recovery-middleware/pkg/app/errors"
	"github.com/novavault/recovery-middleware/pkg/attestation"
	"github.com/novavault/recovery-middleware/pkg/chains"
	"github.com/novavault/recovery-middleware/pkg/config"
	"github.com/novavault/recovery-middleware/pkg/custody"
)

var (
	// ErrApprovalFailed aborts the whole operation: nothing was burned.
	ErrApprovalFailed = errors.New("spend approval failed")

	// ErrBurnFailed means the burn submission or confirmation failed.
	ErrBurnFailed = errors.New("burn failed")

	// ErrMintFailed means the burn succeeded but the mint did not. The
	// operation's BurnTxHash lets the caller retry minting without
	// re-burning once the attestation is known.
	ErrMintFailed = errors.New("mint failed")

	// ErrConfirmationTimeout means a submitted transaction never reached a
	// terminal provider state within the polling ceiling.
	ErrConfirmationTimeout = errors.New("transaction confirmation ceiling exceeded")
)

const (
	approveSignature = "approve(address,uint256)"
	burnSignature    = "depositForBurn(uint256,uint32,bytes32,address)"
	mintSignature    = "receiveMessage(bytes,bytes)"

	defaultConfirmationInterval = 5 * time.Second
	defaultConfirmationAttempts = 60
)

// ContractCaller is the narrow custody surface the engine needs: submit a
// contract call through the held wallet and poll its state.
type ContractCaller interface {
	SubmitContractCall(ctx context.Context, req custody.ContractCallRequest) (string, error)
	GetOperationStatus(ctx context.Context, operationID string) (*custody.Operation, error)
}

// AttestationWaiter blocks until the burn is attested or the polling ceiling
// is exceeded.
type AttestationWaiter interface {
	WaitForAttestation(ctx context.Context, domain uint32, burnTxHash string) (*attestation.Attestation, error)
}

// TransferRequest describes one (source, destination, amount, recipient)
// transfer tuple. Amount is a decimal USDC string.
type TransferRequest struct {
	SourceChain      string
	DestinationChain string
	Amount           string
	Recipient        string
	WalletRef        string
}

// Engine drives CCTP operations one at a time, reporting step-level status
// on the returned Operation even when a step fails.
type Engine struct {
	caller               ContractCaller
	attester             AttestationWaiter
	confirmationInterval time.Duration
	confirmationAttempts uint64
	logger               *zap.Logger
}

// NewEngine creates a bridge engine.
func NewEngine(caller ContractCaller, attester AttestationWaiter, cfg *config.BridgeConfig, logger *zap.Logger) *Engine {
	interval := cfg.ConfirmationInterval
	if interval <= 0 {
		interval = defaultConfirmationInterval
	}
	attempts := uint64(cfg.ConfirmationMaxAttempts)
	if attempts == 0 {
		attempts = defaultConfirmationAttempts
	}
	return &Engine{
		caller:               caller,
		attester:             attester,
		confirmationInterval: interval,
		confirmationAttempts: attempts,
		logger:               logger,
	}
}

// Transfer runs the full approve/burn/attest/mint sequence. The returned
// Operation is non-nil even on failure so the caller always sees how far
// the transfer got and, after a successful burn, its tx hash.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*Operation, error) {
	op := &Operation{
		ID:                uuid.NewString(),
		SourceChain:       req.SourceChain,
		DestinationChain:  req.DestinationChain,
		Amount:            req.Amount,
		Recipient:         req.Recipient,
		Step:              StepApproving,
		Status:            StatusPending,
		AttestationStatus: AttestationPending,
	}

	source, err := chains.MustGet(req.SourceChain)
	if err != nil {
		return e.fail(op, err)
	}
	dest, err := chains.MustGet(req.DestinationChain)
	if err != nil {
		return e.fail(op, err)
	}
	if !common.IsHexAddress(req.Recipient) {
		return e.fail(op, fmt.Errorf("malformed recipient address %q", req.Recipient))
	}

	units, err := toBaseUnits(req.Amount)
	if err != nil {
		return e.fail(op, err)
	}

	start := time.Now()
	logger := e.logger.With(
		zap.String("operation_id", op.ID),
		zap.String("source", source.Name),
		zap.String("destination", dest.Name),
		zap.String("amount", req.Amount))

	logger.Info("Starting CCTP transfer")

	// Step 1: approve the TokenMessenger to spend the exact amount. The
	// approval must confirm before the burn is submitted.
	_, err = e.submitAndConfirm(ctx, custody.ContractCallRequest{
		WalletRef:         req.WalletRef,
		ContractAddress:   source.USDCAddress.Hex(),
		FunctionSignature: approveSignature,
		Params:            []string{source.TokenMessenger.Hex(), units},
	})
	if err != nil {
		metrics.BridgeOperationsTotal.WithLabelValues(string(StepApproving), "failed").Inc()
		return e.fail(op, fmt.Errorf("%w: %w", ErrApprovalFailed, err))
	}
	metrics.BridgeOperationsTotal.WithLabelValues(string(StepApproving), "completed").Inc()

	// Step 2: burn. Irreversible once confirmed, so the tx hash is recorded
	// on the operation before anything else can go wrong.
	op.Step = StepBurning
	recipientBytes32 := common.BytesToHash(common.LeftPadBytes(common.HexToAddress(req.Recipient).Bytes(), 32)).Hex()
	burnOp, err := e.submitAndConfirm(ctx, custody.ContractCallRequest{
		WalletRef:         req.WalletRef,
		ContractAddress:   source.TokenMessenger.Hex(),
		FunctionSignature: burnSignature,
		Params:            []string{units, fmt.Sprintf("%d", dest.Domain), recipientBytes32, source.USDCAddress.Hex()},
	})
	if err != nil {
		metrics.BridgeOperationsTotal.WithLabelValues(string(StepBurning), "failed").Inc()
		return e.fail(op, fmt.Errorf("%w: %w", ErrBurnFailed, err))
	}
	op.BurnTxHash = burnOp.TxHash
	metrics.BridgeOperationsTotal.WithLabelValues(string(StepBurning), "completed").Inc()
	logger.Info("Burn confirmed", zap.String("burn_tx_hash", op.BurnTxHash))

	// Step 3: wait for the attestation service to finalize the burn.
	op.Step = StepAttesting
	att, err := e.attester.WaitForAttestation(ctx, source.Domain, op.BurnTxHash)
	if err != nil {
		metrics.BridgeOperationsTotal.WithLabelValues(string(StepAttesting), "failed").Inc()
		werr := fmt.Errorf("attestation for burn %s: %w", op.BurnTxHash, err)
		if errors.Is(err, attestation.ErrTimeout) {
			werr = apperrors.TimeoutError(werr,
				fmt.Sprintf("attestation polling ceiling exceeded for burn %s", op.BurnTxHash))
		}
		return e.fail(op, werr)
	}
	op.AttestationStatus = AttestationComplete
	metrics.BridgeOperationsTotal.WithLabelValues(string(StepAttesting), "completed").Inc()

	// Step 4: mint on the destination chain.
	op.Step = StepMinting
	mintOp, err := e.submitAndConfirm(ctx, custody.ContractCallRequest{
		WalletRef:         req.WalletRef,
		ContractAddress:   dest.MessageTransmitter.Hex(),
		FunctionSignature: mintSignature,
		Params:            []string{att.Message, att.Attestation},
	})
	if err != nil {
		metrics.BridgeOperationsTotal.WithLabelValues(string(StepMinting), "failed").Inc()
		return e.fail(op, fmt.Errorf("%w: burn %s attested, mint can be retried: %w", ErrMintFailed, op.BurnTxHash, err))
	}
	op.MintTxHash = mintOp.TxHash
	metrics.BridgeOperationsTotal.WithLabelValues(string(StepMinting), "completed").Inc()

	op.Step = StepDone
	op.Status = StatusCompleted
	metrics.BridgeOperationDuration.WithLabelValues(source.Name, dest.Name).Observe(time.Since(start).Seconds())

	logger.Info("CCTP transfer completed",
		zap.String("burn_tx_hash", op.BurnTxHash),
		zap.String("mint_tx_hash", op.MintTxHash),
		zap.Duration("duration", time.Since(start)))

	return op, nil
}

// submitAndConfirm submits a contract call and polls the provider until the
// operation reaches a terminal state. Terminal failure states raise
// immediately with the provider's reason; anything else keeps polling until
// the ceiling.
func (e *Engine) submitAndConfirm(ctx context.Context, req custody.ContractCallRequest) (*custody.Operation, error) {
	operationID, err := e.caller.SubmitContractCall(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("submission failed: %w", err)
	}

	poll := func() (*custody.Operation, error) {
		op, err := e.caller.GetOperationStatus(ctx, operationID)
		if err != nil {
			// Provider hiccups are retried within the same ceiling.
			return nil, err
		}
		if !op.State.Terminal() {
			return nil, fmt.Errorf("operation %s still %s", operationID, op.State)
		}
		if !op.State.Succeeded() {
			reason := op.ErrorReason
			if reason == "" {
				reason = "no reason given"
			}
			return nil, backoff.Permanent(fmt.Errorf("operation %s %s: %s", operationID, op.State, reason))
		}
		return op, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.confirmationInterval), e.confirmationAttempts-1),
		ctx,
	)

	op, err := backoff.RetryWithData(poll, policy)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Unwrap()
		}
		return nil, apperrors.TimeoutError(
			fmt.Errorf("%w: operation %s after %d attempts: %v",
				ErrConfirmationTimeout, operationID, e.confirmationAttempts, err),
			fmt.Sprintf("confirmation polling ceiling exceeded for operation %s", operationID))
	}
	return op, nil
}

func (e *Engine) fail(op *Operation, err error) (*Operation, error) {
	op.Status = StatusFailed
	op.Error = err.Error()
	metrics.ErrorsTotal.WithLabelValues("bridge", string(op.Step)).Inc()
	e.logger.Error("CCTP transfer failed",
		zap.String("operation_id", op.ID),
		zap.String("step", string(op.Step)),
		zap.String("burn_tx_hash", op.BurnTxHash),
		zap.Error(err))
	return op, err
}

// toBaseUnits converts a decimal USDC amount string to integer base units.
func toBaseUnits(amount string) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("malformed amount %q: %w", amount, err)
	}
	if d.Sign() <= 0 {
		return "", fmt.Errorf("amount must be positive, got %s", amount)
	}
	units := d.Shift(chains.USDCDecimals)
	if !units.IsInteger() {
		return "", fmt.Errorf("amount %s exceeds USDC precision of %d decimals", amount, chains.USDCDecimals)
	}
	return units.BigInt().String(), nil
}
