package distribution

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

type SurplusEntry struct {
	SKU string          `json:"sku"`
	Qty decimal.Decimal `json:"qty"`
}

// SurplusResult describes the CLOSED surplus container created for a report.
type SurplusResult struct {
	ContainerID int64          `json:"container_id"`
	Code        string         `json:"code"`
	PalletCode  string         `json:"pallet_code"`
	ManifestID  int64          `json:"manifest_id"`
	LineCount   int            `json:"line_count"`
	Accepted    []SurplusEntry `json:"accepted"`
	Skipped     []SurplusEntry `json:"skipped,omitempty"`
}

// ReportSurplus moves leftover stock into a new CLOSED surplus container.
// Entries with a non-positive quantity, or more than the SKU has available,
// are skipped. Demand lines are not touched.
func (s *Service) ReportSurplus(ctx context.Context, palletCode string, manifestID int64, entries []SurplusEntry, actor string) (*SurplusResult, error) {
	if err := domain.RequireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.db.GetManifest(manifestID); err != nil {
		return nil, notFound(err, "manifest %d", manifestID)
	}

	var res *SurplusResult
	err := s.withCodeRetry(ctx, "surplus container", func() error {
		res = &SurplusResult{PalletCode: palletCode, ManifestID: manifestID}
		return s.db.WithTx(ctx, func(tx *store.Tx) error {
			holder, err := tx.PalletHolder(palletCode)
			if err != nil {
				return notFound(err, "pallet %s", palletCode)
			}
			if holder != actor {
				return fmt.Errorf("%w: %s held by %q", domain.ErrLockHeld, palletCode, holder)
			}

			var c *store.Container
			for _, e := range entries {
				if e.Qty.Sign() <= 0 {
					res.Skipped = append(res.Skipped, e)
					continue
				}
				inv, err := tx.GetInventory(palletCode, e.SKU)
				if err != nil {
					return notFound(err, "sku %s on pallet %s", e.SKU, palletCode)
				}
				if e.Qty.GreaterThan(inv.QtyAvailable) {
					res.Skipped = append(res.Skipped, e)
					continue
				}

				if c == nil {
					code, err := s.nextCode(tx, s.cfg.SurplusPrefix)
					if err != nil {
						return err
					}
					c = &store.Container{
						Code:        code,
						ManifestID:  manifestID,
						Destination: domain.SurplusDestination,
						Status:      domain.ContainerClosed,
						Type:        domain.ContainerSurplus,
						CreatedBy:   actor,
					}
					if err := tx.InsertContainer(c); err != nil {
						return err
					}
				}

				if err := tx.InsertContainerLine(&store.ContainerLine{
					ContainerID: c.ID,
					PalletCode:  palletCode,
					SKU:         e.SKU,
					Qty:         e.Qty,
					CreatedBy:   actor,
				}); err != nil {
					return fmt.Errorf("insert surplus line: %w", err)
				}
				taken, err := tx.TakeInventory(palletCode, e.SKU, e.Qty)
				if err != nil {
					return fmt.Errorf("take inventory: %w", err)
				}
				if !taken {
					return domain.Errorf(domain.ErrValidation, "quantity %s exceeds available stock of %s", e.Qty, e.SKU)
				}
				if err := tx.AppendAudit(&store.AuditEvent{
					Type:        domain.EventAdjust,
					PalletCode:  palletCode,
					SKU:         e.SKU,
					Destination: domain.SurplusDestination,
					Qty:         decimal.NewNullDecimal(e.Qty),
					Actor:       actor,
					Note:        "surplus reported in container " + c.Code,
				}); err != nil {
					return fmt.Errorf("audit surplus: %w", err)
				}
				res.Accepted = append(res.Accepted, e)
			}
			if c == nil {
				return fmt.Errorf("%w: no surplus entry qualified", domain.ErrEmpty)
			}

			res.ContainerID = c.ID
			res.Code = c.Code
			res.LineCount = len(res.Accepted)
			if _, err := tx.RefreshPalletDepletion(palletCode); err != nil {
				return err
			}
			return s.announcer.AnnounceContainerClosed(tx, c, res.LineCount)
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("distribution: %s reported surplus on %s in container %s (%d lines)", actor, palletCode, res.Code, res.LineCount)
	s.emitter.EmitSurplusReported(res, actor)
	return res, nil
}
