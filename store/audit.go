package store

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuditEvent struct {
	ID          int64               `json:"id"`
	Type        string              `json:"type"`
	PalletCode  string              `json:"pallet_code"`
	SKU         string              `json:"sku"`
	Destination string              `json:"destination"`
	Qty         decimal.NullDecimal `json:"qty"`
	Actor       string              `json:"actor"`
	RawCode     string              `json:"raw_code,omitempty"`
	Note        string              `json:"note,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

const auditSelectCols = `id, type, pallet_code, sku, destination, qty, actor, raw_code, note, created_at`

func appendAudit(q querier, e *AuditEvent) error {
	id, err := insertID(q, `INSERT INTO audit_events (type, pallet_code, sku, destination, qty, actor, raw_code, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Type, e.PalletCode, e.SKU, e.Destination, e.Qty, e.Actor, e.RawCode, e.Note)
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (db *DB) AppendAudit(e *AuditEvent) error { return appendAudit(db, e) }
func (tx *Tx) AppendAudit(e *AuditEvent) error { return appendAudit(tx, e) }

func (db *DB) ListAudit(limit int) ([]*AuditEvent, error) {
	return db.queryAudit(`SELECT `+auditSelectCols+` FROM audit_events ORDER BY id DESC LIMIT ?`, limit)
}

func (db *DB) ListPalletAudit(palletCode string, limit int) ([]*AuditEvent, error) {
	return db.queryAudit(`SELECT `+auditSelectCols+` FROM audit_events WHERE pallet_code=? ORDER BY id DESC LIMIT ?`, palletCode, limit)
}

func (db *DB) CountAudit() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM audit_events`).Scan(&n)
	return n, err
}

func (db *DB) queryAudit(query string, args ...any) ([]*AuditEvent, error) {
	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		var createdAt any
		if err := rows.Scan(&e.ID, &e.Type, &e.PalletCode, &e.SKU, &e.Destination, &e.Qty, &e.Actor,
			&e.RawCode, &e.Note, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}
