package distribution

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

type ConfirmRequest struct {
	PalletCode string
	SKU        string
	LineID     int64
	Qty        decimal.Decimal
	Actor      string
}

// ConfirmResult is the state after a committed confirmation.
type ConfirmResult struct {
	ContainerID     int64             `json:"container_id"`
	ContainerCode   string            `json:"container_code"`
	ContainerLineID int64             `json:"container_line_id"`
	Line            *store.DemandLine `json:"line"`
	Qty             decimal.Decimal   `json:"qty"`
	SKUAvailable    decimal.Decimal   `json:"sku_available"`
	PalletAvailable decimal.Decimal   `json:"pallet_available"`
	PalletStatus    string            `json:"pallet_status"`
}

// Confirm moves qty of a SKU from pallet inventory into the OPEN container of
// the demand line's destination. Inventory, demand progress, the container
// line and the audit event are written in one transaction.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if err := domain.RequireActor(req.Actor); err != nil {
		return nil, err
	}
	if req.Qty.Sign() <= 0 {
		return nil, domain.Errorf(domain.ErrValidation, "quantity must be greater than zero")
	}

	p, err := s.db.GetPallet(req.PalletCode)
	if err != nil {
		return nil, notFound(err, "pallet %s", req.PalletCode)
	}
	if p.LockedBy != req.Actor {
		return nil, fmt.Errorf("%w: %s held by %q", domain.ErrLockHeld, req.PalletCode, p.LockedBy)
	}

	line, err := s.db.GetDemandLine(req.LineID)
	if err != nil {
		return nil, notFound(err, "demand line %d", req.LineID)
	}
	if line.PalletCode != req.PalletCode || line.SKU != req.SKU {
		return nil, domain.Errorf(domain.ErrValidation, "demand line %d is not for sku %s on pallet %s", line.ID, req.SKU, req.PalletCode)
	}
	pending := line.Pending()
	if pending.Sign() <= 0 {
		return nil, fmt.Errorf("%w: line %d for %s", domain.ErrComplete, line.ID, line.Destination)
	}
	if req.Qty.GreaterThan(pending) {
		return nil, domain.Errorf(domain.ErrValidation, "quantity %s exceeds pending %s", req.Qty, pending)
	}

	inv, err := s.db.GetInventory(req.PalletCode, req.SKU)
	if err != nil {
		return nil, notFound(err, "sku %s on pallet %s", req.SKU, req.PalletCode)
	}
	if req.Qty.GreaterThan(inv.QtyAvailable) {
		return nil, domain.Errorf(domain.ErrValidation, "quantity %s exceeds available %s", req.Qty, inv.QtyAvailable)
	}

	// The container is resolved inside the confirming transaction, so a
	// failed confirmation leaves no empty OPEN container behind.
	var res *ConfirmResult
	var opened *store.Container
	err = s.withCodeRetry(ctx, "open container", func() error {
		res, opened = &ConfirmResult{Qty: req.Qty}, nil
		return s.db.WithTx(ctx, func(tx *store.Tx) error {
			holder, err := tx.PalletHolder(req.PalletCode)
			if err != nil {
				return notFound(err, "pallet %s", req.PalletCode)
			}
			if holder != req.Actor {
				return fmt.Errorf("%w: %s held by %q", domain.ErrLockHeld, req.PalletCode, holder)
			}

			c, created, err := s.openContainer(tx, line.ManifestID, line.Destination, req.Actor)
			if err != nil {
				return err
			}
			if created {
				opened = c
			}
			res.ContainerID, res.ContainerCode = c.ID, c.Code
			return s.confirmInto(tx, c, req, res)
		})
	})
	if err != nil {
		return nil, err
	}
	if opened != nil {
		s.logOpened(opened)
	}
	if res.PalletAvailable, err = s.db.PalletAvailable(req.PalletCode); err != nil {
		return nil, err
	}

	s.log.Infof("distribution: %s confirmed %s x %s from %s to %s (%s)",
		req.Actor, req.Qty, req.SKU, req.PalletCode, res.Line.Destination, res.ContainerCode)
	s.emitter.EmitQuantityConfirmed(res, req.Actor)
	return res, nil
}

// confirmInto moves the stock into the OPEN container c within tx.
func (s *Service) confirmInto(tx *store.Tx, c *store.Container, req ConfirmRequest, res *ConfirmResult) error {
	l, err := tx.GetDemandLine(req.LineID)
	if err != nil {
		return notFound(err, "demand line %d", req.LineID)
	}
	if req.Qty.GreaterThan(l.Pending()) {
		return domain.Errorf(domain.ErrValidation, "quantity %s exceeds pending %s", req.Qty, l.Pending())
	}

	taken, err := tx.TakeInventory(req.PalletCode, req.SKU, req.Qty)
	if err != nil {
		return fmt.Errorf("take inventory: %w", err)
	}
	if !taken {
		return domain.Errorf(domain.ErrValidation, "quantity %s exceeds available stock of %s", req.Qty, req.SKU)
	}

	if err := tx.SetDemandConfirmed(l, l.QtyConfirmed.Add(req.Qty), req.Actor); err != nil {
		return fmt.Errorf("update demand line: %w", err)
	}

	cl := &store.ContainerLine{
		ContainerID:  c.ID,
		PalletCode:   req.PalletCode,
		SKU:          req.SKU,
		Qty:          req.Qty,
		DemandLineID: &l.ID,
		CreatedBy:    req.Actor,
	}
	if err := tx.InsertContainerLine(cl); err != nil {
		return fmt.Errorf("insert container line: %w", err)
	}
	res.ContainerLineID = cl.ID

	if err := tx.AppendAudit(&store.AuditEvent{
		Type:        domain.EventConfirmQty,
		PalletCode:  req.PalletCode,
		SKU:         req.SKU,
		Destination: l.Destination,
		Qty:         decimal.NewNullDecimal(req.Qty),
		Actor:       req.Actor,
		Note:        "container " + c.Code,
	}); err != nil {
		return fmt.Errorf("audit confirm: %w", err)
	}

	if res.PalletStatus, err = tx.RefreshPalletDepletion(req.PalletCode); err != nil {
		return err
	}
	if err := tx.RefreshManifestStatus(l.ManifestID); err != nil {
		return err
	}

	if res.Line, err = tx.GetDemandLine(l.ID); err != nil {
		return err
	}
	after, err := tx.GetInventory(req.PalletCode, req.SKU)
	if err != nil {
		return err
	}
	res.SKUAvailable = after.QtyAvailable
	return nil
}
