package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/novavault/recovery-middleware/internal/metrics"
	apperrors "github.com/novavault/recovery-middleware/pkg/app/errors"
	"github.com/novavault/recovery-middleware/pkg/bridge"
	"github.com/novavault/recovery-middleware/pkg/chains"
	"github.com/novavault/recovery-middleware/pkg/identity"
	"github.com/novavault/recovery-middleware/pkg/recovery"
	"github.com/novavault/recovery-middleware/pkg/recoverystore"
)

// ExecuteMigration runs the four-phase fund migration for an APPROVED
// request. Phase 1 (on-chain ownership transfer) is fatal on failure;
// phases 2 and 3 isolate failures per network so one chain's outage never
// strands funds on the others. Phase 4 is recorded but never executed.
//
// The APPROVED -> EXECUTING transition happens under the store's
// per-identity lock, so a second concurrent invocation gets a Conflict
// instead of a duplicate migration.
func (s *Service) ExecuteMigration(ctx context.Context, identityName string) (*recovery.Request, error) {
	key := identity.Namehash(identityName).Hex()

	req, err := s.store.Mutate(ctx, key, func(req *recovery.Request) error {
		if req.Status != recovery.StatusApproved {
			return apperrors.ConflictError(ErrNotApproved,
				fmt.Sprintf("recovery for %s is %s, not APPROVED", identityName, req.Status))
		}
		now := time.Now().UTC()
		req.Status = recovery.StatusExecuting
		req.ExecutionStartedAt = &now
		req.ExecutionPhase = recovery.PhaseExecuteRecovery
		return nil
	})
	if err != nil {
		if errors.Is(err, recoverystore.ErrRequestNotFound) {
			return nil, apperrors.NotFoundError(err,
				fmt.Sprintf("no recovery request for %s", identityName))
		}
		return nil, err
	}

	s.logger.Info("Starting fund migration",
		zap.String("identity", identityName),
		zap.String("request_id", req.RequestID),
		zap.String("new_owner", req.NewOwner))

	result, migErr := s.runMigration(ctx, req)

	final, err := s.store.Mutate(ctx, key, func(req *recovery.Request) error {
		now := time.Now().UTC()
		req.Result = result
		req.ExecutionPhase = ""
		if migErr != nil {
			req.Status = recovery.StatusFailed
			req.FailedAt = &now
			req.Error = migErr.Error()
		} else {
			req.Status = recovery.StatusCompleted
			req.CompletedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}

	metrics.RecoveriesTotal.WithLabelValues(string(final.Status)).Inc()
	if migErr != nil {
		s.logger.Error("Fund migration failed",
			zap.String("identity", identityName),
			zap.Error(migErr))
		return final, migErr
	}
	s.logger.Info("Fund migration completed", zap.String("identity", identityName))
	return final, nil
}

// runMigration executes the phases and builds the per-network result. Only
// a phase 1 failure returns an error; phase 2/3 failures live in the result.
func (s *Service) runMigration(ctx context.Context, req *recovery.Request) (*recovery.MigrationResult, error) {
	result := &recovery.MigrationResult{}

	// Phase 1: execute the ownership transfer on-chain. Without it the
	// identity still points at the compromised wallet, so nothing else
	// may proceed.
	if err := s.registry.TransferOwnership(ctx, req.Identity, req.NewOwner); err != nil {
		result.Phases = append(result.Phases, recovery.PhaseResult{
			Phase: recovery.PhaseExecuteRecovery,
			Outcomes: []recovery.NetworkOutcome{{
				Network: req.Identity,
				Status:  recovery.OutcomeFailed,
				Error:   err.Error(),
			}},
		})
		metrics.MigrationPhaseResults.WithLabelValues(string(recovery.PhaseExecuteRecovery), "failed").Inc()
		return result, apperrors.FatalMigrationError(err, "on-chain recovery execution failed")
	}
	result.Phases = append(result.Phases, recovery.PhaseResult{
		Phase: recovery.PhaseExecuteRecovery,
		Outcomes: []recovery.NetworkOutcome{{
			Network: req.Identity,
			Status:  recovery.OutcomeCompleted,
		}},
	})
	metrics.MigrationPhaseResults.WithLabelValues(string(recovery.PhaseExecuteRecovery), "completed").Inc()

	walletRef, err := s.custodyWalletRef(ctx, req)
	if err != nil {
		// Ownership has moved; balance discovery failing leaves funds where
		// they are, recoverable by re-running aggregation.
		s.logger.Warn("Skipping fund aggregation, wallet lookup failed",
			zap.String("identity", req.Identity), zap.Error(err))
		result.Phases = append(result.Phases,
			skippedPhase(recovery.PhaseAggregateUSDC, err.Error()),
			skippedPhase(recovery.PhaseConvertNonUSDC, err.Error()),
			skippedPhase(recovery.PhaseRedistribute, "redistribution requires explicit user intent"))
		return result, nil
	}

	balances, unreadable := s.collectBalances(ctx, walletRef)

	s.setPhase(ctx, req.IdentityKey, recovery.PhaseAggregateUSDC)
	result.Phases = append(result.Phases, s.aggregateUSDC(ctx, req, walletRef, balances, unreadable))

	s.setPhase(ctx, req.IdentityKey, recovery.PhaseConvertNonUSDC)
	result.Phases = append(result.Phases, s.convertNonUSDC(ctx, req, walletRef, balances))

	s.setPhase(ctx, req.IdentityKey, recovery.PhaseRedistribute)
	result.Phases = append(result.Phases,
		skippedPhase(recovery.PhaseRedistribute, "redistribution requires explicit user intent"))
	metrics.MigrationPhaseResults.WithLabelValues(string(recovery.PhaseRedistribute), "skipped").Inc()

	return result, nil
}

// custodyWalletRef resolves the custody reference of the identity's old
// wallet from the registry's guardian config.
func (s *Service) custodyWalletRef(ctx context.Context, req *recovery.Request) (string, error) {
	cfg, err := s.registry.GetGuardianConfig(ctx, req.Identity)
	if err != nil {
		return "", fmt.Errorf("failed to load guardian config: %w", err)
	}
	if cfg.WalletAddress == "" {
		return "", fmt.Errorf("no wallet configured for identity %s", req.Identity)
	}
	return cfg.WalletAddress, nil
}

// collectBalances snapshots the old wallet's holdings on every supported
// chain. A chain whose balance read fails becomes a failed outcome so the
// result reports it instead of silently dropping the network.
func (s *Service) collectBalances(ctx context.Context, walletRef string) ([]recovery.NetworkBalance, []recovery.NetworkOutcome) {
	var snapshots []recovery.NetworkBalance
	var unreadable []recovery.NetworkOutcome
	for _, chain := range chains.All() {
		balance, err := s.balances.GetBalance(ctx, walletRef, chain.Name)
		if err != nil {
			s.logger.Warn("Balance read failed",
				zap.String("chain", chain.Name), zap.Error(err))
			unreadable = append(unreadable, recovery.NetworkOutcome{
				Network: chain.Name,
				Status:  recovery.OutcomeFailed,
				Error:   "balance unavailable: " + err.Error(),
			})
			continue
		}
		tokens := make([]recovery.TokenHolding, 0, len(balance.Tokens))
		for _, tok := range balance.Tokens {
			tokens = append(tokens, recovery.TokenHolding{
				Symbol:       tok.Symbol,
				Balance:      tok.Balance,
				TokenAddress: tok.TokenAddress,
			})
		}
		snapshots = append(snapshots, recovery.NetworkBalance{
			Chain:   chain.Name,
			Address: walletRef,
			USDC:    balance.USDC,
			Native:  balance.Native,
			Tokens:  tokens,
		})
	}
	return snapshots, unreadable
}

// aggregateUSDC bridges every positive USDC balance to the destination
// chain. Failures are recorded per network and never stop the loop.
func (s *Service) aggregateUSDC(ctx context.Context, req *recovery.Request, walletRef string, balances []recovery.NetworkBalance, unreadable []recovery.NetworkOutcome) recovery.PhaseResult {
	phase := recovery.PhaseResult{Phase: recovery.PhaseAggregateUSDC}

	for _, failed := range unreadable {
		phase.Outcomes = append(phase.Outcomes, failed)
		metrics.MigrationPhaseResults.WithLabelValues(string(phase.Phase), "failed").Inc()
	}

	for _, nb := range balances {
		amount, err := decimal.NewFromString(nb.USDC)
		if err != nil {
			phase.Outcomes = append(phase.Outcomes, recovery.NetworkOutcome{
				Network: nb.Chain,
				Status:  recovery.OutcomeFailed,
				Error:   fmt.Sprintf("malformed USDC balance %q", nb.USDC),
			})
			metrics.MigrationPhaseResults.WithLabelValues(string(phase.Phase), "failed").Inc()
			continue
		}
		if amount.Sign() <= 0 {
			continue
		}
		if nb.Chain == s.destinationChain {
			phase.Outcomes = append(phase.Outcomes, recovery.NetworkOutcome{
				Network: nb.Chain,
				Status:  recovery.OutcomeSkipped,
				Error:   "already on destination chain",
			})
			metrics.MigrationPhaseResults.WithLabelValues(string(phase.Phase), "skipped").Inc()
			continue
		}

		outcome := s.bridgeToDestination(ctx, req, walletRef, nb.Chain, amount)
		phase.Outcomes = append(phase.Outcomes, outcome)
		metrics.MigrationPhaseResults.WithLabelValues(string(phase.Phase), string(outcome.Status)).Inc()
	}
	return phase
}

// convertNonUSDC swaps each nonzero non-USDC token to USDC and bridges the
// proceeds, with the same per-item isolation as aggregateUSDC.
func (s *Service) convertNonUSDC(ctx context.Context, req *recovery.Request, walletRef string, balances []recovery.NetworkBalance) recovery.PhaseResult {
	phase := recovery.PhaseResult{Phase: recovery.PhaseConvertNonUSDC}

	for _, nb := range balances {
		chain, ok := chains.Get(nb.Chain)
		if !ok {
			continue
		}
		for _, tok := range nb.Tokens {
			amount, err := decimal.NewFromString(tok.Balance)
			if err != nil || amount.Sign() <= 0 {
				continue
			}

			outcome := recovery.NetworkOutcome{Network: nb.Chain, Token: tok.Symbol}

			swapped, err := s.swapper.Swap(ctx, tok.TokenAddress, chain.USDCAddress.Hex(), amount, nb.Chain)
			if err != nil {
				outcome.Status = recovery.OutcomeFailed
				outcome.Error = fmt.Sprintf("swap failed: %v", err)
				phase.Outcomes = append(phase.Outcomes, outcome)
				metrics.MigrationPhaseResults.WithLabelValues(string(phase.Phase), "failed").Inc()
				continue
			}
			outcome.SwapTxHash = swapped.TxHash

			if nb.Chain == s.destinationChain {
				outcome.Status = recovery.OutcomeCompleted
			} else {
				bridged := s.bridgeToDestination(ctx, req, walletRef, nb.Chain, swapped.AmountOut)
				outcome.Status = bridged.Status
				outcome.BurnTxHash = bridged.BurnTxHash
				outcome.MintTxHash = bridged.MintTxHash
				outcome.Error = bridged.Error
			}
			phase.Outcomes = append(phase.Outcomes, outcome)
			metrics.MigrationPhaseResults.WithLabelValues(string(phase.Phase), string(outcome.Status)).Inc()
		}
	}
	return phase
}

// bridgeToDestination runs one CCTP transfer and folds the operation into a
// NetworkOutcome. A failed operation still carries its burn tx hash.
func (s *Service) bridgeToDestination(ctx context.Context, req *recovery.Request, walletRef, sourceChain string, amount decimal.Decimal) recovery.NetworkOutcome {
	outcome := recovery.NetworkOutcome{Network: sourceChain}

	op, err := s.bridger.Transfer(ctx, bridge.TransferRequest{
		SourceChain:      sourceChain,
		DestinationChain: s.destinationChain,
		Amount:           amount.String(),
		Recipient:        req.NewOwner,
		WalletRef:        walletRef,
	})
	if op != nil {
		outcome.BurnTxHash = op.BurnTxHash
		outcome.MintTxHash = op.MintTxHash
	}
	if err != nil {
		outcome.Status = recovery.OutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Status = recovery.OutcomeCompleted
	return outcome
}

// setPhase records execution progress for observability. Failing to record
// it never interrupts the migration itself.
func (s *Service) setPhase(ctx context.Context, identityKey string, phase recovery.Phase) {
	_, err := s.store.Mutate(ctx, identityKey, func(req *recovery.Request) error {
		req.ExecutionPhase = phase
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to record execution phase",
			zap.String("phase", string(phase)), zap.Error(err))
	}
}

func skippedPhase(phase recovery.Phase, reason string) recovery.PhaseResult {
	return recovery.PhaseResult{
		Phase: phase,
		Outcomes: []recovery.NetworkOutcome{{
			Status: recovery.OutcomeSkipped,
			Error:  reason,
		}},
	}
}
