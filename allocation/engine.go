package allocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

// Selection is the active target after a scan or a destination choice.
type Selection struct {
	Session    *Session            `json:"session"`
	SKU        string              `json:"sku"`
	Line       *store.DemandLine   `json:"line"`
	Candidates []*store.DemandLine `json:"candidates"`
	Available  decimal.Decimal     `json:"available"`
}

// Outcome is what the operator sees after a confirmation.
type Outcome struct {
	Line               *store.DemandLine `json:"line,omitempty"`
	Mode               Mode              `json:"mode"`
	DestinationChanged bool              `json:"destination_changed"`
	From               string            `json:"from,omitempty"`
	To                 string            `json:"to,omitempty"`
	SKUComplete        bool              `json:"sku_complete"`
	PalletComplete     bool              `json:"pallet_complete"`
}

// Engine picks which demand line a scanned SKU should go to next.
type Engine struct {
	db       *store.DB
	sessions SessionStore
	now      func() time.Time
}

func NewEngine(db *store.DB, sessions SessionStore) *Engine {
	if sessions == nil {
		sessions = NewMemoryStore()
	}
	return &Engine{db: db, sessions: sessions, now: time.Now}
}

// ResolveScan maps a raw scanned code to a SKU on the pallet: exact SKU match
// first, then a barcode lookup scoped to the same pallet. A SKU with no
// available stock does not resolve.
func (e *Engine) ResolveScan(palletCode, rawCode string) (string, *store.InventoryLine, error) {
	inv, err := e.db.GetInventory(palletCode, rawCode)
	if errors.Is(err, sql.ErrNoRows) {
		sku, berr := e.db.FindSKUByBarcode(palletCode, rawCode)
		if errors.Is(berr, sql.ErrNoRows) {
			return "", nil, domain.Errorf(domain.ErrNotFound, "code %s does not match any sku on pallet %s", rawCode, palletCode)
		}
		if berr != nil {
			return "", nil, fmt.Errorf("barcode lookup: %w", berr)
		}
		inv, err = e.db.GetInventory(palletCode, sku)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, domain.Errorf(domain.ErrNotFound, "sku %s has no inventory on pallet %s", sku, palletCode)
		}
	}
	if err != nil {
		return "", nil, fmt.Errorf("inventory lookup: %w", err)
	}
	if inv.QtyAvailable.Sign() <= 0 {
		return "", nil, domain.Errorf(domain.ErrNotFound, "sku %s has no available stock on pallet %s", inv.SKU, palletCode)
	}
	return inv.SKU, inv, nil
}

// CandidateLines returns the unsatisfied demand for (pallet, sku) ordered by
// destination.
func (e *Engine) CandidateLines(palletCode, sku string) ([]*store.DemandLine, error) {
	lines, err := e.db.ListOpenDemand(palletCode, sku)
	if err != nil {
		return nil, fmt.Errorf("list demand: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrNoDemand, sku, palletCode)
	}
	return lines, nil
}

// SelectDefault returns the first candidate that still has pending quantity.
func SelectDefault(candidates []*store.DemandLine) *store.DemandLine {
	for _, l := range candidates {
		if l.Pending().Sign() > 0 {
			return l
		}
	}
	return nil
}

// SelectManual returns the candidate for destination.
func SelectManual(candidates []*store.DemandLine, destination string) (*store.DemandLine, error) {
	for _, l := range candidates {
		if l.Destination != destination {
			continue
		}
		if l.Pending().Sign() <= 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrComplete, destination)
		}
		return l, nil
	}
	return nil, domain.Errorf(domain.ErrNotFound, "no open demand for destination %s", destination)
}

// Begin starts a fresh session for the operator on the pallet.
func (e *Engine) Begin(ctx context.Context, palletCode, operator string) (*Session, error) {
	s := &Session{PalletCode: palletCode, Operator: operator, Mode: ModeAuto, UpdatedAt: e.now()}
	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

// End discards the operator's session on the pallet.
func (e *Engine) End(ctx context.Context, palletCode, operator string) error {
	return e.sessions.Delete(ctx, palletCode, operator)
}

// Session returns the operator's current session, nil when none exists.
func (e *Engine) Session(ctx context.Context, palletCode, operator string) (*Session, error) {
	return e.sessions.Get(ctx, palletCode, operator)
}

// ScanSKU resolves the scanned code and makes the first open line for the SKU
// active in AUTO mode.
func (e *Engine) ScanSKU(ctx context.Context, palletCode, operator, rawCode string) (*Selection, error) {
	sku, inv, err := e.ResolveScan(palletCode, rawCode)
	if err != nil {
		return nil, err
	}
	candidates, err := e.CandidateLines(palletCode, sku)
	if err != nil {
		return nil, err
	}
	line := SelectDefault(candidates)
	if line == nil {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrNoDemand, sku, palletCode)
	}
	s := &Session{PalletCode: palletCode, Operator: operator, SKU: sku, LineID: line.ID, Mode: ModeAuto, UpdatedAt: e.now()}
	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &Selection{Session: s, SKU: sku, Line: line, Candidates: candidates, Available: inv.QtyAvailable}, nil
}

// ChooseDestination switches the active line to the operator's pick and
// holds it in MANUAL mode.
func (e *Engine) ChooseDestination(ctx context.Context, palletCode, operator, destination string) (*Selection, error) {
	return e.reselect(ctx, palletCode, operator, func(candidates []*store.DemandLine) (*store.DemandLine, Mode, error) {
		l, err := SelectManual(candidates, destination)
		return l, ModeManual, err
	})
}

// ResetAuto returns the session to AUTO mode on the default line.
func (e *Engine) ResetAuto(ctx context.Context, palletCode, operator string) (*Selection, error) {
	return e.reselect(ctx, palletCode, operator, func(candidates []*store.DemandLine) (*store.DemandLine, Mode, error) {
		l := SelectDefault(candidates)
		if l == nil {
			return nil, ModeAuto, domain.ErrNoDemand
		}
		return l, ModeAuto, nil
	})
}

func (e *Engine) reselect(ctx context.Context, palletCode, operator string,
	pick func([]*store.DemandLine) (*store.DemandLine, Mode, error)) (*Selection, error) {
	s, err := e.activeSession(ctx, palletCode, operator)
	if err != nil {
		return nil, err
	}
	candidates, err := e.CandidateLines(palletCode, s.SKU)
	if err != nil {
		return nil, err
	}
	line, mode, err := pick(candidates)
	if err != nil {
		return nil, err
	}
	s.LineID, s.Mode, s.UpdatedAt = line.ID, mode, e.now()
	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	inv, err := e.db.GetInventory(palletCode, s.SKU)
	if err != nil {
		return nil, fmt.Errorf("inventory lookup: %w", err)
	}
	return &Selection{Session: s, SKU: s.SKU, Line: line, Candidates: candidates, Available: inv.QtyAvailable}, nil
}

// ActiveLine returns the session and its active demand line.
func (e *Engine) ActiveLine(ctx context.Context, palletCode, operator string) (*Session, *store.DemandLine, error) {
	s, err := e.activeSession(ctx, palletCode, operator)
	if err != nil {
		return nil, nil, err
	}
	l, err := e.db.GetDemandLine(s.LineID)
	if err != nil {
		return nil, nil, fmt.Errorf("active line %d: %w", s.LineID, err)
	}
	return s, l, nil
}

func (e *Engine) activeSession(ctx context.Context, palletCode, operator string) (*Session, error) {
	s, err := e.sessions.Get(ctx, palletCode, operator)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil || s.SKU == "" {
		return nil, domain.Errorf(domain.ErrWrongState, "no sku scanned on pallet %s", palletCode)
	}
	return s, nil
}

// Advance moves the session on after prev was confirmed up to newConfirmed.
// A MANUAL line with quantity still pending stays active. Otherwise the next
// open line in destination order becomes active in AUTO mode. The SKU session
// ends when no line or no stock remains; the pallet session ends when the
// pallet has no stock at all.
func (e *Engine) Advance(ctx context.Context, operator string, prev *store.DemandLine, newConfirmed decimal.Decimal) (*Outcome, error) {
	s, err := e.sessions.Get(ctx, prev.PalletCode, operator)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		s = &Session{PalletCode: prev.PalletCode, Operator: operator, Mode: ModeAuto}
	}
	s.SKU = prev.SKU
	s.UpdatedAt = e.now()

	palletLeft, err := e.db.PalletAvailable(prev.PalletCode)
	if err != nil {
		return nil, fmt.Errorf("pallet stock: %w", err)
	}
	if palletLeft.Sign() <= 0 {
		if err := e.sessions.Delete(ctx, prev.PalletCode, operator); err != nil {
			return nil, fmt.Errorf("end session: %w", err)
		}
		return &Outcome{Mode: ModeAuto, SKUComplete: true, PalletComplete: true}, nil
	}

	inv, err := e.db.GetInventory(prev.PalletCode, prev.SKU)
	if err != nil {
		return nil, fmt.Errorf("inventory lookup: %w", err)
	}
	if inv.QtyAvailable.Sign() <= 0 {
		return e.endSKU(ctx, s)
	}

	if s.Mode == ModeManual && domain.Pending(prev.QtyToSend, newConfirmed).Sign() > 0 {
		l, err := e.db.GetDemandLine(prev.ID)
		if err != nil {
			return nil, fmt.Errorf("active line %d: %w", prev.ID, err)
		}
		s.LineID = l.ID
		if err := e.sessions.Put(ctx, s); err != nil {
			return nil, fmt.Errorf("store session: %w", err)
		}
		return &Outcome{Line: l, Mode: ModeManual}, nil
	}

	candidates, err := e.db.ListOpenDemand(prev.PalletCode, prev.SKU)
	if err != nil {
		return nil, fmt.Errorf("list demand: %w", err)
	}
	next := SelectDefault(candidates)
	if next == nil {
		return e.endSKU(ctx, s)
	}
	s.LineID, s.Mode = next.ID, ModeAuto
	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	out := &Outcome{Line: next, Mode: ModeAuto}
	if next.Destination != prev.Destination {
		out.DestinationChanged = true
		out.From, out.To = prev.Destination, next.Destination
	}
	return out, nil
}

func (e *Engine) endSKU(ctx context.Context, s *Session) (*Outcome, error) {
	s.SKU, s.LineID, s.Mode = "", 0, ModeAuto
	if err := e.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &Outcome{Mode: ModeAuto, SKUComplete: true}, nil
}
