package distribution

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

// ReverseResult describes an undone container line.
type ReverseResult struct {
	Removed      *store.ContainerLine `json:"removed"`
	Container    *store.Container     `json:"container"`
	Line         *store.DemandLine    `json:"line,omitempty"`
	SKUAvailable decimal.Decimal      `json:"sku_available"`
	PalletStatus string               `json:"pallet_status"`
}

// Reverse undoes one container line: stock returns to the pallet, demand
// progress shrinks by the line quantity and the line is deleted. The container
// row itself stays. Lines in DISPATCHED containers cannot be reversed.
func (s *Service) Reverse(ctx context.Context, containerLineID int64, actor string) (*ReverseResult, error) {
	if err := domain.RequireActor(actor); err != nil {
		return nil, err
	}
	res := &ReverseResult{}
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		cl, err := tx.GetContainerLine(containerLineID)
		if err != nil {
			return notFound(err, "container line %d", containerLineID)
		}
		res.Removed = cl

		c, err := tx.GetContainer(cl.ContainerID)
		if err != nil {
			return notFound(err, "container %d", cl.ContainerID)
		}
		res.Container = c
		if c.Status == domain.ContainerDispatched {
			return domain.Errorf(domain.ErrWrongState, "container %s was already dispatched", c.Code)
		}

		returned, err := tx.ReturnInventory(cl.PalletCode, cl.SKU, cl.Qty)
		if err != nil {
			return fmt.Errorf("return inventory: %w", err)
		}
		if !returned {
			return domain.Errorf(domain.ErrConflict, "returning %s of %s would exceed the pallet's initial stock", cl.Qty, cl.SKU)
		}

		if cl.DemandLineID != nil {
			l, err := tx.GetDemandLine(*cl.DemandLineID)
			if err != nil {
				return notFound(err, "demand line %d", *cl.DemandLineID)
			}
			confirmed := decimal.Max(decimal.Zero, l.QtyConfirmed.Sub(cl.Qty))
			if err := tx.SetDemandConfirmed(l, confirmed, actor); err != nil {
				return fmt.Errorf("update demand line: %w", err)
			}
			if err := tx.RefreshManifestStatus(l.ManifestID); err != nil {
				return err
			}
			if res.Line, err = tx.GetDemandLine(l.ID); err != nil {
				return err
			}
		}

		if err := tx.DeleteContainerLine(cl.ID); err != nil {
			return fmt.Errorf("delete container line: %w", err)
		}

		if err := tx.AppendAudit(&store.AuditEvent{
			Type:        domain.EventReverse,
			PalletCode:  cl.PalletCode,
			SKU:         cl.SKU,
			Destination: c.Destination,
			Qty:         decimal.NewNullDecimal(cl.Qty),
			Actor:       actor,
			Note:        "reversed from container " + c.Code,
		}); err != nil {
			return fmt.Errorf("audit reverse: %w", err)
		}

		if res.PalletStatus, err = tx.RefreshPalletDepletion(cl.PalletCode); err != nil {
			return err
		}
		inv, err := tx.GetInventory(cl.PalletCode, cl.SKU)
		if err != nil {
			return err
		}
		res.SKUAvailable = inv.QtyAvailable
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("distribution: %s reversed %s x %s from container %s", actor, res.Removed.Qty, res.Removed.SKU, res.Container.Code)
	s.emitter.EmitLineReversed(res, actor)
	return res, nil
}
