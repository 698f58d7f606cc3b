// Package recoverystore persists recovery requests. Two drivers exist: an
// in-memory store for tests and single-node deployments, and a Postgres
// store backed by bun.
package recoverystore

import (
	"context"
	"errors"

	"github.com/novavault/recovery-middleware/pkg/recovery"
)

var (
	// ErrRequestNotFound means no recovery request exists for the identity.
	ErrRequestNotFound = errors.New("recovery request not found")

	// ErrActiveExists means the identity already has a request that has not
	// reached a terminal status.
	ErrActiveExists = errors.New("recovery already in progress for identity")
)

// Store persists recovery requests keyed by identity key. At most one
// request exists per identity; a new request may only replace one that has
// reached a terminal status.
type Store interface {
	// Create stores a new request. It fails with ErrActiveExists if the
	// identity already has a non-terminal request.
	Create(ctx context.Context, req *recovery.Request) error

	// Get returns the request for the identity key, terminal or not.
	Get(ctx context.Context, identityKey string) (*recovery.Request, error)

	// Mutate applies fn to the stored request under per-identity mutual
	// exclusion and persists the result. Concurrent Mutate calls for the
	// same identity serialize; fn sees the latest persisted state. If fn
	// returns an error nothing is persisted and the error is returned.
	Mutate(ctx context.Context, identityKey string, fn func(*recovery.Request) error) (*recovery.Request, error)

	// Delete removes the request for the identity key.
	Delete(ctx context.Context, identityKey string) error

	// DeleteIf removes the request only if fn accepts the stored state. The
	// check and the removal run under the same per-identity mutual exclusion
	// as Mutate, so fn never validates against state another writer is about
	// to change. If fn returns an error the request stays and the error is
	// returned.
	DeleteIf(ctx context.Context, identityKey string, fn func(*recovery.Request) error) error
}

// clone deep-copies a request so callers never share slices with the store.
func clone(req *recovery.Request) *recovery.Request {
	cp := *req
	cp.Guardians = append([]string(nil), req.Guardians...)
	cp.Approvals = append([]string(nil), req.Approvals...)
	if req.Result != nil {
		res := recovery.MigrationResult{Phases: make([]recovery.PhaseResult, len(req.Result.Phases))}
		for i, phase := range req.Result.Phases {
			res.Phases[i] = recovery.PhaseResult{
				Phase:    phase.Phase,
				Outcomes: append([]recovery.NetworkOutcome(nil), phase.Outcomes...),
			}
		}
		cp.Result = &res
	}
	return &cp
}
