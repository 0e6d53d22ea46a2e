package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JeanCaOLO/crossdoking/domain"
)

type DemandLine struct {
	ID           int64           `json:"id"`
	ManifestID   int64           `json:"manifest_id"`
	Shipment     string          `json:"shipment"`
	PalletCode   string          `json:"pallet_code"`
	Location     string          `json:"location"`
	SKU          string          `json:"sku"`
	Barcode      string          `json:"barcode"`
	Description  string          `json:"description"`
	QtyTotal     decimal.Decimal `json:"qty_total"`
	Destination  string          `json:"destination"`
	Truck        string          `json:"truck"`
	QtyToSend    decimal.Decimal `json:"qty_to_send"`
	QtyConfirmed decimal.Decimal `json:"qty_confirmed"`
	Status       string          `json:"status"`
	DoneAt       *time.Time      `json:"done_at,omitempty"`
	DoneBy       string          `json:"done_by,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Pending is the quantity still owed to the line's destination.
func (l *DemandLine) Pending() decimal.Decimal {
	return domain.Pending(l.QtyToSend, l.QtyConfirmed)
}

const demandSelectCols = `id, manifest_id, shipment, pallet_code, location, sku, barcode, description, qty_total,
	destination, truck, qty_to_send, qty_confirmed, status, done_at, done_by, updated_at`

func scanDemand(row interface{ Scan(...any) error }) (*DemandLine, error) {
	var l DemandLine
	var doneBy sql.NullString
	var doneAt, updatedAt any
	if err := row.Scan(&l.ID, &l.ManifestID, &l.Shipment, &l.PalletCode, &l.Location, &l.SKU, &l.Barcode,
		&l.Description, &l.QtyTotal, &l.Destination, &l.Truck, &l.QtyToSend, &l.QtyConfirmed, &l.Status,
		&doneAt, &doneBy, &updatedAt); err != nil {
		return nil, err
	}
	l.DoneAt = parseTimePtr(doneAt)
	l.DoneBy = doneBy.String
	l.UpdatedAt = parseTime(updatedAt)
	return &l, nil
}

func scanDemands(rows *sql.Rows) ([]*DemandLine, error) {
	defer rows.Close()
	var out []*DemandLine
	for rows.Next() {
		l, err := scanDemand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (tx *Tx) InsertDemandLine(l *DemandLine) error {
	if l.Status == "" {
		l.Status = domain.DemandStatus(l.QtyConfirmed, l.QtyToSend)
	}
	id, err := insertID(tx, `INSERT INTO demand_lines (manifest_id, shipment, pallet_code, location, sku, barcode, description,
		qty_total, destination, truck, qty_to_send, qty_confirmed, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ManifestID, l.Shipment, l.PalletCode, l.Location, l.SKU, l.Barcode, l.Description,
		l.QtyTotal, l.Destination, l.Truck, l.QtyToSend, l.QtyConfirmed, l.Status)
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func getDemandLine(q querier, id int64) (*DemandLine, error) {
	row := q.QueryRow(q.Q(`SELECT `+demandSelectCols+` FROM demand_lines WHERE id=?`), id)
	return scanDemand(row)
}

func (db *DB) GetDemandLine(id int64) (*DemandLine, error) { return getDemandLine(db, id) }
func (tx *Tx) GetDemandLine(id int64) (*DemandLine, error) { return getDemandLine(tx, id) }

// ListOpenDemand returns PENDING and PARTIAL lines for (pallet, sku) ordered
// by destination, then id.
func (db *DB) ListOpenDemand(palletCode, sku string) ([]*DemandLine, error) {
	rows, err := db.Query(db.Q(`SELECT `+demandSelectCols+` FROM demand_lines
		WHERE pallet_code=? AND sku=? AND status IN (?, ?) ORDER BY destination, id`),
		palletCode, sku, domain.DemandPending, domain.DemandPartial)
	if err != nil {
		return nil, err
	}
	return scanDemands(rows)
}

func (db *DB) ListPalletDemand(palletCode string) ([]*DemandLine, error) {
	rows, err := db.Query(db.Q(`SELECT `+demandSelectCols+` FROM demand_lines WHERE pallet_code=? ORDER BY sku, destination, id`), palletCode)
	if err != nil {
		return nil, err
	}
	return scanDemands(rows)
}

func (db *DB) ListManifestDemand(manifestID int64) ([]*DemandLine, error) {
	rows, err := db.Query(db.Q(`SELECT `+demandSelectCols+` FROM demand_lines WHERE manifest_id=? ORDER BY pallet_code, sku, destination, id`), manifestID)
	if err != nil {
		return nil, err
	}
	return scanDemands(rows)
}

// FindSKUByBarcode resolves a barcode to a SKU among the pallet's demand lines.
func (db *DB) FindSKUByBarcode(palletCode, barcode string) (string, error) {
	var sku string
	err := db.QueryRow(db.Q(`SELECT sku FROM demand_lines WHERE pallet_code=? AND barcode=? ORDER BY id LIMIT 1`), palletCode, barcode).Scan(&sku)
	return sku, err
}

// SetDemandConfirmed stores a new confirmed quantity and the status derived
// from it. Completion metadata is stamped when the line enters DONE and
// cleared when it leaves DONE. The update is guarded on l.QtyConfirmed, so l
// must have been read in the same transaction.
func (tx *Tx) SetDemandConfirmed(l *DemandLine, confirmed decimal.Decimal, actor string) error {
	status := domain.DemandStatus(confirmed, l.QtyToSend)
	var res sql.Result
	var err error
	switch {
	case status == domain.DemandDone && l.Status != domain.DemandDone:
		res, err = tx.Exec(tx.Q(`UPDATE demand_lines SET qty_confirmed=?, status=?, done_at=datetime('now','localtime'), done_by=?,
			updated_at=datetime('now','localtime') WHERE id=? AND qty_confirmed=?`), confirmed, status, nullString(actor), l.ID, l.QtyConfirmed)
	case status != domain.DemandDone:
		res, err = tx.Exec(tx.Q(`UPDATE demand_lines SET qty_confirmed=?, status=?, done_at=NULL, done_by=NULL,
			updated_at=datetime('now','localtime') WHERE id=? AND qty_confirmed=?`), confirmed, status, l.ID, l.QtyConfirmed)
	default:
		res, err = tx.Exec(tx.Q(`UPDATE demand_lines SET qty_confirmed=?, status=?, updated_at=datetime('now','localtime')
			WHERE id=? AND qty_confirmed=?`), confirmed, status, l.ID, l.QtyConfirmed)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%w: demand line %d changed concurrently", domain.ErrConflict, l.ID)
	}
	return nil
}
