package distribution

import (
	"context"
	"fmt"

	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

// Acquire grants actor the exclusive working claim on a pallet. Re-acquiring
// a pallet already held by actor succeeds.
func (s *Service) Acquire(ctx context.Context, palletCode, actor string) (*store.Pallet, error) {
	if err := domain.RequireActor(actor); err != nil {
		return nil, err
	}
	granted, err := s.db.TryLockPallet(palletCode, actor)
	if err != nil {
		return nil, fmt.Errorf("lock pallet %s: %w", palletCode, err)
	}
	p, err := s.db.GetPallet(palletCode)
	if err != nil {
		return nil, notFound(err, "pallet %s", palletCode)
	}
	if !granted {
		if p.Status == domain.PalletBlocked {
			return nil, fmt.Errorf("%w: %s", domain.ErrBlocked, palletCode)
		}
		return nil, fmt.Errorf("%w: %s held by %s", domain.ErrLockHeld, palletCode, p.LockedBy)
	}

	if err := s.db.AppendAudit(&store.AuditEvent{
		Type: domain.EventScanPallet, PalletCode: palletCode, Actor: actor, RawCode: palletCode,
	}); err != nil {
		s.log.Warnf("distribution: audit scan pallet %s: %v", palletCode, err)
	}
	s.emitter.EmitPalletLocked(palletCode, actor)
	return p, nil
}

// Release clears the claim held by actor. Releasing an unlocked pallet is a no-op.
func (s *Service) Release(ctx context.Context, palletCode, actor string) error {
	return s.release(palletCode, actor, false)
}

// ForceRelease clears any claim on the pallet regardless of holder. Callers
// are expected to restrict it to supervisors.
func (s *Service) ForceRelease(ctx context.Context, palletCode, actor string) error {
	return s.release(palletCode, actor, true)
}

func (s *Service) release(palletCode, actor string, force bool) error {
	if err := domain.RequireActor(actor); err != nil {
		return err
	}
	p, err := s.db.GetPallet(palletCode)
	if err != nil {
		return notFound(err, "pallet %s", palletCode)
	}
	released, err := s.db.UnlockPallet(palletCode, actor, force)
	if err != nil {
		return fmt.Errorf("unlock pallet %s: %w", palletCode, err)
	}
	if !released {
		return fmt.Errorf("%w: %s held by %s", domain.ErrLockHeld, palletCode, p.LockedBy)
	}
	if p.LockedBy == "" {
		return nil
	}

	note := ""
	if force && p.LockedBy != actor {
		note = "forced release of lock held by " + p.LockedBy
	}
	if err := s.db.AppendAudit(&store.AuditEvent{
		Type: domain.EventUnlock, PalletCode: palletCode, Actor: actor, Note: note,
	}); err != nil {
		s.log.Warnf("distribution: audit unlock %s: %v", palletCode, err)
	}
	s.emitter.EmitPalletReleased(palletCode, actor, force)
	return nil
}

// Block marks the pallet BLOCKED so no operator can acquire it.
func (s *Service) Block(ctx context.Context, palletCode, actor string) error {
	return s.setBlocked(ctx, palletCode, actor, true)
}

// Unblock returns a blocked pallet to OPEN, or DEPLETED when it has no stock.
func (s *Service) Unblock(ctx context.Context, palletCode, actor string) error {
	return s.setBlocked(ctx, palletCode, actor, false)
}

func (s *Service) setBlocked(ctx context.Context, palletCode, actor string, blocked bool) error {
	if err := domain.RequireActor(actor); err != nil {
		return err
	}
	var status string
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetPallet(palletCode); err != nil {
			return notFound(err, "pallet %s", palletCode)
		}
		note := "blocked"
		if blocked {
			status = domain.PalletBlocked
			if err := tx.SetPalletStatus(palletCode, status); err != nil {
				return err
			}
		} else {
			note = "unblocked"
			if err := tx.SetPalletStatus(palletCode, domain.PalletOpen); err != nil {
				return err
			}
			var err error
			if status, err = tx.RefreshPalletDepletion(palletCode); err != nil {
				return err
			}
		}
		return tx.AppendAudit(&store.AuditEvent{Type: domain.EventBlock, PalletCode: palletCode, Actor: actor, Note: note})
	})
	if err != nil {
		return err
	}
	s.emitter.EmitPalletStatusChanged(palletCode, status, actor)
	return nil
}
