package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JeanCaOLO/crossdoking/domain"
)

type InventoryLine struct {
	ID           int64           `json:"id"`
	PalletCode   string          `json:"pallet_code"`
	SKU          string          `json:"sku"`
	Description  string          `json:"description"`
	QtyInitial   decimal.Decimal `json:"qty_initial"`
	QtyAvailable decimal.Decimal `json:"qty_available"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

const inventorySelectCols = `id, pallet_code, sku, description, qty_initial, qty_available, updated_at`

func scanInventory(row interface{ Scan(...any) error }) (*InventoryLine, error) {
	var l InventoryLine
	var updatedAt any
	if err := row.Scan(&l.ID, &l.PalletCode, &l.SKU, &l.Description, &l.QtyInitial, &l.QtyAvailable, &updatedAt); err != nil {
		return nil, err
	}
	l.UpdatedAt = parseTime(updatedAt)
	return &l, nil
}

func getInventory(q querier, palletCode, sku string) (*InventoryLine, error) {
	row := q.QueryRow(q.Q(`SELECT `+inventorySelectCols+` FROM inventory_lines WHERE pallet_code=? AND sku=?`), palletCode, sku)
	return scanInventory(row)
}

func (db *DB) GetInventory(palletCode, sku string) (*InventoryLine, error) {
	return getInventory(db, palletCode, sku)
}

func (tx *Tx) GetInventory(palletCode, sku string) (*InventoryLine, error) {
	return getInventory(tx, palletCode, sku)
}

func (db *DB) ListPalletInventory(palletCode string) ([]*InventoryLine, error) {
	rows, err := db.Query(db.Q(`SELECT `+inventorySelectCols+` FROM inventory_lines WHERE pallet_code=? ORDER BY sku`), palletCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*InventoryLine
	for rows.Next() {
		l, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// palletAvailable sums in Go so fractional quantities stay exact on SQLite,
// where SUM over TEXT columns would go through floating point.
func palletAvailable(q querier, palletCode string) (decimal.Decimal, error) {
	rows, err := q.Query(q.Q(`SELECT qty_available FROM inventory_lines WHERE pallet_code=?`), palletCode)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()
	total := decimal.Zero
	for rows.Next() {
		var qty decimal.Decimal
		if err := rows.Scan(&qty); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(qty)
	}
	return total, rows.Err()
}

// PalletAvailable sums available quantity across every SKU on the pallet.
func (db *DB) PalletAvailable(palletCode string) (decimal.Decimal, error) {
	return palletAvailable(db, palletCode)
}

// Quantity updates read the row, compute the new value with decimal and
// write it back guarded on the value that was read. A guard miss reports
// false so the caller can fail the transaction.

func (tx *Tx) setInventory(l *InventoryLine, initial, available decimal.Decimal) (bool, error) {
	res, err := tx.Exec(tx.Q(`UPDATE inventory_lines SET qty_initial=?, qty_available=?, updated_at=datetime('now','localtime')
		WHERE id=? AND qty_initial=? AND qty_available=?`), initial, available, l.ID, l.QtyInitial, l.QtyAvailable)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// AddInventory creates the (pallet, sku) line or grows both its initial and
// available quantities.
func (tx *Tx) AddInventory(palletCode, sku, description string, qty decimal.Decimal) error {
	l, err := tx.GetInventory(palletCode, sku)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.Exec(tx.Q(`INSERT INTO inventory_lines (pallet_code, sku, description, qty_initial, qty_available) VALUES (?, ?, ?, ?, ?)`),
			palletCode, sku, description, qty, qty)
		return err
	}
	if err != nil {
		return err
	}
	ok, err := tx.setInventory(l, l.QtyInitial.Add(qty), l.QtyAvailable.Add(qty))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: inventory %s/%s changed concurrently", domain.ErrConflict, palletCode, sku)
	}
	return nil
}

// TakeInventory decrements available quantity only if at least qty remains.
// It reports false when the line has less than qty or changed underneath.
func (tx *Tx) TakeInventory(palletCode, sku string, qty decimal.Decimal) (bool, error) {
	l, err := tx.GetInventory(palletCode, sku)
	if err != nil {
		return false, err
	}
	if qty.GreaterThan(l.QtyAvailable) {
		return false, nil
	}
	return tx.setInventory(l, l.QtyInitial, l.QtyAvailable.Sub(qty))
}

// ReturnInventory increments available quantity, never past qty_initial.
func (tx *Tx) ReturnInventory(palletCode, sku string, qty decimal.Decimal) (bool, error) {
	l, err := tx.GetInventory(palletCode, sku)
	if err != nil {
		return false, err
	}
	next := l.QtyAvailable.Add(qty)
	if next.GreaterThan(l.QtyInitial) {
		return false, nil
	}
	return tx.setInventory(l, l.QtyInitial, next)
}
