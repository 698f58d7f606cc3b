package recoverystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/novavault/recovery-middleware/pkg/recovery"
)

type pgStore struct {
	db *bun.DB
}

// NewPGStore creates a postgres implementation of the recovery store.
// Per-identity mutual exclusion comes from SELECT ... FOR UPDATE inside a
// transaction, so Mutate serializes across processes as well.
func NewPGStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) Create(ctx context.Context, req *recovery.Request) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(RequestDao)
		err := tx.NewSelect().
			Model(existing).
			Where("identity_key = ?", req.IdentityKey).
			For("UPDATE").
			Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// First request for this identity.
		case err != nil:
			return fmt.Errorf("failed to check existing request: %w", err)
		default:
			if recovery.Status(existing.Status).Active() {
				return ErrActiveExists
			}
			_, err = tx.NewDelete().
				Model((*RequestDao)(nil)).
				Where("identity_key = ?", req.IdentityKey).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to replace terminal request: %w", err)
			}
		}

		_, err = tx.NewInsert().Model(toRequestDao(req)).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		return nil
	})
}

func (s *pgStore) Get(ctx context.Context, identityKey string) (*recovery.Request, error) {
	dao := new(RequestDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("identity_key = ?", identityKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return toRequest(dao), nil
}

func (s *pgStore) Mutate(ctx context.Context, identityKey string, fn func(*recovery.Request) error) (*recovery.Request, error) {
	var mutated *recovery.Request

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dao := new(RequestDao)
		err := tx.NewSelect().
			Model(dao).
			Where("identity_key = ?", identityKey).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("failed to lock request: %w", err)
		}

		req := toRequest(dao)
		if err := fn(req); err != nil {
			return err
		}

		next := toRequestDao(req)
		next.ID = dao.ID
		next.CreatedAt = dao.CreatedAt
		_, err = tx.NewUpdate().
			Model(next).
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}

		mutated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mutated, nil
}

func (s *pgStore) DeleteIf(ctx context.Context, identityKey string, fn func(*recovery.Request) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dao := new(RequestDao)
		err := tx.NewSelect().
			Model(dao).
			Where("identity_key = ?", identityKey).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("failed to lock request: %w", err)
		}

		if err := fn(toRequest(dao)); err != nil {
			return err
		}

		// The row lock held since the SELECT makes check and removal atomic
		// against concurrent Mutate calls.
		_, err = tx.NewDelete().Model(dao).WherePK().Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete request: %w", err)
		}
		return nil
	})
}

func (s *pgStore) Delete(ctx context.Context, identityKey string) error {
	res, err := s.db.NewDelete().
		Model((*RequestDao)(nil)).
		Where("identity_key = ?", identityKey).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrRequestNotFound
	}
	return nil
}
