package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/JeanCaOLO/crossdoking/allocation"
	"github.com/JeanCaOLO/crossdoking/distribution"
	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/ingest"
	"github.com/JeanCaOLO/crossdoking/store"
)

// PalletView is what the operator screen shows for a pallet.
type PalletView struct {
	Pallet    *store.Pallet          `json:"pallet"`
	Inventory []*store.InventoryLine `json:"inventory"`
	Demand    []*store.DemandLine    `json:"demand"`
	Available decimal.Decimal        `json:"available"`
	Session   *allocation.Session    `json:"session,omitempty"`
}

// ConfirmOutcome pairs the committed confirmation with the next target.
type ConfirmOutcome struct {
	Result *distribution.ConfirmResult `json:"result"`
	Next   *allocation.Outcome         `json:"next"`
}

// Pallet loads the pallet view, including operator's session when one exists.
func (e *Engine) Pallet(ctx context.Context, code, operator string) (*PalletView, error) {
	p, err := e.db.GetPallet(code)
	if err != nil {
		return nil, notFound(err, "pallet %s", code)
	}
	v := &PalletView{Pallet: p}
	if v.Inventory, err = e.db.ListPalletInventory(code); err != nil {
		return nil, err
	}
	if v.Demand, err = e.db.ListPalletDemand(code); err != nil {
		return nil, err
	}
	if v.Available, err = e.db.PalletAvailable(code); err != nil {
		return nil, err
	}
	if operator != "" {
		if v.Session, err = e.alloc.Session(ctx, code, operator); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ScanPallet locks the pallet for operator and starts a fresh session.
func (e *Engine) ScanPallet(ctx context.Context, code, operator string) (*PalletView, error) {
	if _, err := e.dist.Acquire(ctx, code, operator); err != nil {
		return nil, err
	}
	if _, err := e.alloc.Begin(ctx, code, operator); err != nil {
		return nil, err
	}
	return e.Pallet(ctx, code, operator)
}

// ScanSKU resolves a scanned SKU or barcode on a pallet the operator holds.
func (e *Engine) ScanSKU(ctx context.Context, palletCode, operator, rawCode string) (*allocation.Selection, error) {
	if err := e.requireHolder(palletCode, operator); err != nil {
		return nil, err
	}
	sel, err := e.alloc.ScanSKU(ctx, palletCode, operator, rawCode)
	if err != nil {
		return nil, err
	}
	if err := e.db.AppendAudit(&store.AuditEvent{
		Type: domain.EventScanSKU, PalletCode: palletCode, SKU: sel.SKU,
		Destination: sel.Line.Destination, Actor: operator, RawCode: rawCode,
	}); err != nil {
		e.logFn("engine: audit scan sku %s: %v", rawCode, err)
	}
	return sel, nil
}

// SelectDestination pins the active line to destination (MANUAL mode).
func (e *Engine) SelectDestination(ctx context.Context, palletCode, operator, destination string) (*allocation.Selection, error) {
	if err := e.requireHolder(palletCode, operator); err != nil {
		return nil, err
	}
	return e.alloc.ChooseDestination(ctx, palletCode, operator, destination)
}

// ResetAuto hands destination choice back to the engine.
func (e *Engine) ResetAuto(ctx context.Context, palletCode, operator string) (*allocation.Selection, error) {
	if err := e.requireHolder(palletCode, operator); err != nil {
		return nil, err
	}
	return e.alloc.ResetAuto(ctx, palletCode, operator)
}

// ConfirmActive confirms qty on the session's active line and advances the
// session. The pallet lock is released once the pallet has no stock left.
func (e *Engine) ConfirmActive(ctx context.Context, palletCode, operator string, qty decimal.Decimal) (*ConfirmOutcome, error) {
	s, line, err := e.alloc.ActiveLine(ctx, palletCode, operator)
	if err != nil {
		return nil, err
	}
	res, err := e.dist.Confirm(ctx, distribution.ConfirmRequest{
		PalletCode: palletCode, SKU: s.SKU, LineID: line.ID, Qty: qty, Actor: operator,
	})
	if err != nil {
		return nil, err
	}
	next, err := e.alloc.Advance(ctx, operator, line, res.Line.QtyConfirmed)
	if err != nil {
		// the confirmation is committed; the session is rebuilt on the next scan
		e.logFn("engine: advance session on %s: %v", palletCode, err)
		next = &allocation.Outcome{Mode: allocation.ModeAuto, SKUComplete: true}
	}
	if next.DestinationChanged {
		e.Events.Emit(Event{Type: EventDestinationChanged, Payload: DestinationChangedEvent{
			PalletCode: palletCode, SKU: s.SKU, Operator: operator, From: next.From, To: next.To,
		}})
	}
	if next.PalletComplete {
		if err := e.dist.Release(ctx, palletCode, operator); err != nil {
			e.logFn("engine: release depleted pallet %s: %v", palletCode, err)
		}
	}
	return &ConfirmOutcome{Result: res, Next: next}, nil
}

// Reverse undoes a container line. The operator's active line, if any, is
// left as is; a reopened demand line is picked up on the next scan.
func (e *Engine) Reverse(ctx context.Context, containerLineID int64, actor string) (*distribution.ReverseResult, error) {
	return e.dist.Reverse(ctx, containerLineID, actor)
}

// ReportSurplus moves leftover stock into a surplus container. A zero
// manifestID resolves to the newest manifest with demand on the pallet.
func (e *Engine) ReportSurplus(ctx context.Context, palletCode string, manifestID int64, entries []distribution.SurplusEntry, actor string) (*distribution.SurplusResult, error) {
	if manifestID == 0 {
		lines, err := e.db.ListPalletDemand(palletCode)
		if err != nil {
			return nil, err
		}
		if len(lines) == 0 {
			return nil, domain.Errorf(domain.ErrNotFound, "pallet %s has no manifest", palletCode)
		}
		for _, l := range lines {
			if l.ManifestID > manifestID {
				manifestID = l.ManifestID
			}
		}
	}
	return e.dist.ReportSurplus(ctx, palletCode, manifestID, entries, actor)
}

func (e *Engine) CloseContainer(ctx context.Context, containerID int64, actor string) (*distribution.CloseResult, error) {
	return e.dist.Close(ctx, containerID, actor)
}

// Unlock releases the operator's own claim and ends their session.
func (e *Engine) Unlock(ctx context.Context, palletCode, operator string) error {
	if err := e.dist.Release(ctx, palletCode, operator); err != nil {
		return err
	}
	return e.alloc.End(ctx, palletCode, operator)
}

// ForceUnlock clears whoever holds the pallet and drops their session.
func (e *Engine) ForceUnlock(ctx context.Context, palletCode, supervisor string) error {
	p, err := e.db.GetPallet(palletCode)
	if err != nil {
		return notFound(err, "pallet %s", palletCode)
	}
	if err := e.dist.ForceRelease(ctx, palletCode, supervisor); err != nil {
		return err
	}
	if p.LockedBy != "" {
		return e.alloc.End(ctx, palletCode, p.LockedBy)
	}
	return nil
}

func (e *Engine) Block(ctx context.Context, palletCode, supervisor string) error {
	return e.dist.Block(ctx, palletCode, supervisor)
}

func (e *Engine) Unblock(ctx context.Context, palletCode, supervisor string) error {
	return e.dist.Unblock(ctx, palletCode, supervisor)
}

func (e *Engine) MarkDispatched(ctx context.Context, code, actor string) (*store.Container, error) {
	return e.dist.MarkDispatched(ctx, code, actor)
}

// ImportManifest loads an XLSX manifest.
func (e *Engine) ImportManifest(ctx context.Context, fileName string, r io.Reader, actor string) (*ingest.ImportResult, error) {
	res, err := e.importer.Import(ctx, fileName, r, actor)
	if err != nil {
		return nil, err
	}
	e.Events.Emit(Event{Type: EventManifestImported, Payload: ManifestImportedEvent{
		ManifestID: res.ManifestID, FileName: res.FileName, Lines: res.Lines, Pallets: res.Pallets, Actor: actor,
	}})
	return res, nil
}

func (e *Engine) requireHolder(palletCode, operator string) error {
	if err := domain.RequireActor(operator); err != nil {
		return err
	}
	p, err := e.db.GetPallet(palletCode)
	if err != nil {
		return notFound(err, "pallet %s", palletCode)
	}
	if p.LockedBy != operator {
		return fmt.Errorf("%w: %s held by %q", domain.ErrLockHeld, palletCode, p.LockedBy)
	}
	return nil
}
