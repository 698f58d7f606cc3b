// Package service implements the guardian-approved recovery workflow:
// initiation, quorum collection, and the post-approval fund migration.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novavault/recovery-middleware/internal/metrics"
	apperrors "github.com/novavault/recovery-middleware/pkg/app/errors"
	"github.com/novavault/recovery-middleware/pkg/bridge"
	"github.com/novavault/recovery-middleware/pkg/custody"
	"github.com/novavault/recovery-middleware/pkg/identity"
	"github.com/novavault/recovery-middleware/pkg/recovery"
	"github.com/novavault/recovery-middleware/pkg/recoverystore"
	"github.com/novavault/recovery-middleware/pkg/swap"
)

// maxGuardians bounds the guardian set size.
const maxGuardians = 5

var (
	ErrInvalidAddress        = errors.New("invalid address")
	ErrNoGuardiansConfigured = errors.New("no guardians configured")
	ErrAlreadyInProgress     = errors.New("recovery already in progress")
	ErrNotAGuardian          = errors.New("address is not a guardian")
	ErrAlreadyApproved       = errors.New("guardian already approved")
	ErrNotPending            = errors.New("request is not pending")
	ErrNotApproved           = errors.New("request is not approved")
)

// Bridger is the narrow bridge surface the migration pipeline needs.
type Bridger interface {
	Transfer(ctx context.Context, req bridge.TransferRequest) (*bridge.Operation, error)
}

// BalanceReader reads a wallet's holdings on one chain.
type BalanceReader interface {
	GetBalance(ctx context.Context, walletRef, chain string) (*custody.Balance, error)
}

// InitiateParams are the inputs to Initiate. Guardians and Threshold may be
// left empty, in which case they are seeded from the identity registry.
type InitiateParams struct {
	Identity     string   `json:"identity"`
	CurrentOwner string   `json:"currentOwner"`
	NewOwner     string   `json:"newOwner"`
	Guardians    []string `json:"guardians,omitempty"`
	Threshold    int      `json:"threshold,omitempty"`
}

// ApproveParams are the inputs to Approve. Signature is recorded for audit
// but not verified.
type ApproveParams struct {
	Guardian  string `json:"guardianAddress"`
	Signature string `json:"signature,omitempty"`
}

// ApprovalResult reports the quorum state after a successful approval.
type ApprovalResult struct {
	ApprovalCount int  `json:"approvalCount"`
	ThresholdMet  bool `json:"thresholdMet"`
}

// Service coordinates recovery requests end to end.
type Service struct {
	store            recoverystore.Store
	registry         identity.Registry
	balances         BalanceReader
	bridger          Bridger
	swapper          swap.Swapper
	destinationChain string
	logger           *zap.Logger
}

// NewService creates a recovery service.
func NewService(
	store recoverystore.Store,
	registry identity.Registry,
	balances BalanceReader,
	bridger Bridger,
	swapper swap.Swapper,
	destinationChain string,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:            store,
		registry:         registry,
		balances:         balances,
		bridger:          bridger,
		swapper:          swapper,
		destinationChain: destinationChain,
		logger:           logger,
	}
}

// Initiate creates a PENDING recovery request for the identity. At most one
// non-terminal request may exist per identity.
func (s *Service) Initiate(ctx context.Context, params InitiateParams) (*recovery.Request, error) {
	if params.Identity == "" {
		return nil, apperrors.ValidationError(nil, "identity is required")
	}
	if !identity.ValidAddress(params.CurrentOwner) {
		return nil, apperrors.ValidationError(ErrInvalidAddress,
			fmt.Sprintf("malformed current owner address %q", params.CurrentOwner))
	}
	if !identity.ValidAddress(params.NewOwner) {
		return nil, apperrors.ValidationError(ErrInvalidAddress,
			fmt.Sprintf("malformed new owner address %q", params.NewOwner))
	}

	guardians, threshold := params.Guardians, params.Threshold
	if len(guardians) == 0 {
		cfg, err := s.registry.GetGuardianConfig(ctx, params.Identity)
		if err != nil {
			return nil, apperrors.DependencyError(err, "failed to load guardian config from registry")
		}
		guardians = cfg.Guardians
		if threshold == 0 {
			threshold = cfg.Threshold
		}
	}
	if len(guardians) == 0 {
		return nil, apperrors.ValidationError(ErrNoGuardiansConfigured, "no guardians configured for identity")
	}
	if len(guardians) > maxGuardians {
		return nil, apperrors.ValidationError(nil,
			fmt.Sprintf("at most %d guardians are supported, got %d", maxGuardians, len(guardians)))
	}
	seen := make(map[string]struct{}, len(guardians))
	for _, g := range guardians {
		if !identity.ValidAddress(g) {
			return nil, apperrors.ValidationError(ErrInvalidAddress,
				fmt.Sprintf("malformed guardian address %q", g))
		}
		normalized := identity.NormalizeAddress(g)
		if _, dup := seen[normalized]; dup {
			return nil, apperrors.ValidationError(nil, fmt.Sprintf("duplicate guardian %s", g))
		}
		seen[normalized] = struct{}{}
	}
	if threshold < 1 || threshold > len(guardians) {
		return nil, apperrors.ValidationError(nil,
			fmt.Sprintf("threshold %d out of range [1, %d]", threshold, len(guardians)))
	}

	req := &recovery.Request{
		RequestID:    uuid.NewString(),
		IdentityKey:  identity.Namehash(params.Identity).Hex(),
		Identity:     params.Identity,
		CurrentOwner: params.CurrentOwner,
		NewOwner:     params.NewOwner,
		Guardians:    guardians,
		Threshold:    threshold,
		Approvals:    []string{},
		Status:       recovery.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, recoverystore.ErrActiveExists) {
			return nil, apperrors.ConflictError(ErrAlreadyInProgress,
				fmt.Sprintf("recovery already in progress for %s", params.Identity))
		}
		return nil, apperrors.GeneralError(err)
	}

	metrics.RecoveriesTotal.WithLabelValues(string(recovery.StatusPending)).Inc()
	metrics.PendingRecoveries.Inc()
	s.logger.Info("Recovery initiated",
		zap.String("identity", params.Identity),
		zap.String("request_id", req.RequestID),
		zap.Int("guardians", len(guardians)),
		zap.Int("threshold", threshold))

	return req, nil
}

// Approve records a guardian's approval. The read-modify-write runs under
// the store's per-identity lock, so concurrent approvals neither lose
// updates nor double-fire the threshold transition.
func (s *Service) Approve(ctx context.Context, identityName string, params ApproveParams) (*ApprovalResult, error) {
	if !identity.ValidAddress(params.Guardian) {
		metrics.ApprovalsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.ValidationError(ErrInvalidAddress,
			fmt.Sprintf("malformed guardian address %q", params.Guardian))
	}
	if params.Signature != "" {
		// Signatures are stored for audit only; ownership of the guardian
		// address is not proven cryptographically.
		s.logger.Warn("Approval signature recorded but not verified",
			zap.String("identity", identityName),
			zap.String("guardian", params.Guardian))
	}

	key := identity.Namehash(identityName).Hex()
	var result ApprovalResult

	updated, err := s.store.Mutate(ctx, key, func(req *recovery.Request) error {
		if req.Status != recovery.StatusPending {
			return apperrors.ConflictError(ErrNotPending,
				fmt.Sprintf("recovery for %s is %s, approvals are closed", identityName, req.Status))
		}
		if !req.HasGuardian(params.Guardian) {
			return apperrors.ValidationError(ErrNotAGuardian,
				fmt.Sprintf("%s is not a guardian of %s", params.Guardian, identityName))
		}
		if req.HasApproved(params.Guardian) {
			return apperrors.ConflictError(ErrAlreadyApproved,
				fmt.Sprintf("%s already approved recovery of %s", params.Guardian, identityName))
		}

		req.Approvals = append(req.Approvals, identity.NormalizeAddress(params.Guardian))
		result.ApprovalCount = len(req.Approvals)
		result.ThresholdMet = req.ThresholdMet()
		if result.ThresholdMet {
			req.Status = recovery.StatusApproved
		}
		return nil
	})
	if err != nil {
		metrics.ApprovalsTotal.WithLabelValues("rejected").Inc()
		if errors.Is(err, recoverystore.ErrRequestNotFound) {
			return nil, apperrors.NotFoundError(err,
				fmt.Sprintf("no recovery request for %s", identityName))
		}
		return nil, err
	}

	metrics.ApprovalsTotal.WithLabelValues("accepted").Inc()
	if result.ThresholdMet {
		metrics.PendingRecoveries.Dec()
		metrics.RecoveriesTotal.WithLabelValues(string(recovery.StatusApproved)).Inc()
		s.logger.Info("Recovery approved, quorum reached",
			zap.String("identity", identityName),
			zap.Int("approvals", result.ApprovalCount),
			zap.Int("threshold", updated.Threshold))
	} else {
		s.logger.Info("Guardian approval recorded",
			zap.String("identity", identityName),
			zap.String("guardian", params.Guardian),
			zap.Int("approvals", result.ApprovalCount),
			zap.Int("threshold", updated.Threshold))
	}

	return &result, nil
}

// Status returns the recovery request for the identity, terminal or not.
func (s *Service) Status(ctx context.Context, identityName string) (*recovery.Request, error) {
	req, err := s.store.Get(ctx, identity.Namehash(identityName).Hex())
	if err != nil {
		if errors.Is(err, recoverystore.ErrRequestNotFound) {
			return nil, apperrors.NotFoundError(err,
				fmt.Sprintf("no recovery request for %s", identityName))
		}
		return nil, apperrors.GeneralError(err)
	}
	return req, nil
}

// Cancel removes a PENDING request. Only a guardian may cancel; once the
// quorum is reached the request can no longer be withdrawn. The status check
// and the removal run under the store's per-identity lock, so an approval
// that reaches quorum concurrently either lands before the check, which
// rejects the cancel, or waits until the request is gone.
func (s *Service) Cancel(ctx context.Context, identityName, callerAddress string) error {
	key := identity.Namehash(identityName).Hex()

	err := s.store.DeleteIf(ctx, key, func(req *recovery.Request) error {
		if req.Status != recovery.StatusPending {
			return apperrors.ConflictError(ErrNotPending,
				fmt.Sprintf("recovery for %s is %s and cannot be cancelled", identityName, req.Status))
		}
		if !req.HasGuardian(callerAddress) {
			return apperrors.ValidationError(ErrNotAGuardian,
				fmt.Sprintf("%s is not a guardian of %s", callerAddress, identityName))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, recoverystore.ErrRequestNotFound) {
			return apperrors.NotFoundError(err,
				fmt.Sprintf("no recovery request for %s", identityName))
		}
		return err
	}

	metrics.PendingRecoveries.Dec()
	s.logger.Info("Recovery cancelled",
		zap.String("identity", identityName),
		zap.String("caller", callerAddress))
	return nil
}
