package store

import (
	"database/sql"
	"time"

	"github.com/JeanCaOLO/crossdoking/domain"
)

type Pallet struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Location  string     `json:"location"`
	Status    string     `json:"status"`
	LockedBy  string     `json:"locked_by,omitempty"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

const palletSelectCols = `id, code, location, status, locked_by, locked_at, created_at, updated_at`

func scanPallet(row interface{ Scan(...any) error }) (*Pallet, error) {
	var p Pallet
	var lockedBy sql.NullString
	var lockedAt, createdAt, updatedAt any
	if err := row.Scan(&p.ID, &p.Code, &p.Location, &p.Status, &lockedBy, &lockedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.LockedBy = lockedBy.String
	p.LockedAt = parseTimePtr(lockedAt)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func getPallet(q querier, code string) (*Pallet, error) {
	row := q.QueryRow(q.Q(`SELECT `+palletSelectCols+` FROM pallets WHERE code=?`), code)
	return scanPallet(row)
}

func (db *DB) GetPallet(code string) (*Pallet, error) { return getPallet(db, code) }
func (tx *Tx) GetPallet(code string) (*Pallet, error) { return getPallet(tx, code) }

func (db *DB) ListPallets() ([]*Pallet, error) {
	rows, err := db.Query(`SELECT ` + palletSelectCols + ` FROM pallets ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Pallet
	for rows.Next() {
		p, err := scanPallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EnsurePallet creates the pallet if its code is unseen. It reports whether a
// row was inserted.
func (tx *Tx) EnsurePallet(code, location string) (bool, error) {
	var exists int
	err := tx.QueryRow(tx.Q(`SELECT COUNT(*) FROM pallets WHERE code=?`), code).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists > 0 {
		return false, nil
	}
	_, err = tx.Exec(tx.Q(`INSERT INTO pallets (code, location, status) VALUES (?, ?, ?)`), code, location, domain.PalletOpen)
	return err == nil, err
}

// TryLockPallet grants the lock to actor in a single conditional update. It
// succeeds when the pallet exists, is not blocked, and is unlocked or already
// held by actor. The returned bool is false when no row qualified.
func (db *DB) TryLockPallet(code, actor string) (bool, error) {
	res, err := db.Exec(db.Q(`UPDATE pallets SET locked_by=?, locked_at=datetime('now','localtime'), updated_at=datetime('now','localtime')
		WHERE code=? AND status<>? AND (locked_by IS NULL OR locked_by='' OR locked_by=?)`),
		actor, code, domain.PalletBlocked, actor)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// UnlockPallet clears the lock when held by actor, or unconditionally when
// force is set. Unlocking an unlocked pallet affects one row and succeeds.
func (db *DB) UnlockPallet(code, actor string, force bool) (bool, error) {
	query := `UPDATE pallets SET locked_by=NULL, locked_at=NULL, updated_at=datetime('now','localtime')
		WHERE code=? AND (locked_by IS NULL OR locked_by='' OR locked_by=?)`
	args := []any{code, actor}
	if force {
		query = `UPDATE pallets SET locked_by=NULL, locked_at=NULL, updated_at=datetime('now','localtime') WHERE code=?`
		args = []any{code}
	}
	res, err := db.Exec(db.Q(query), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func setPalletStatus(q querier, code, status string) error {
	res, err := q.Exec(q.Q(`UPDATE pallets SET status=?, updated_at=datetime('now','localtime') WHERE code=?`), status, code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (db *DB) SetPalletStatus(code, status string) error { return setPalletStatus(db, code, status) }
func (tx *Tx) SetPalletStatus(code, status string) error { return setPalletStatus(tx, code, status) }

// RefreshPalletDepletion flips an OPEN pallet to DEPLETED when it has no
// available inventory left, and a DEPLETED pallet back to OPEN when it does.
// BLOCKED pallets are left alone.
func (tx *Tx) RefreshPalletDepletion(code string) (string, error) {
	p, err := tx.GetPallet(code)
	if err != nil {
		return "", err
	}
	if p.Status == domain.PalletBlocked {
		return p.Status, nil
	}
	total, err := palletAvailable(tx, code)
	if err != nil {
		return "", err
	}
	want := domain.PalletOpen
	if total.Sign() <= 0 {
		want = domain.PalletDepleted
	}
	if want == p.Status {
		return p.Status, nil
	}
	return want, setPalletStatus(tx, code, want)
}

// PalletHolder returns the current lock holder, empty when unlocked.
func (tx *Tx) PalletHolder(code string) (string, error) {
	var holder sql.NullString
	err := tx.QueryRow(tx.Q(`SELECT locked_by FROM pallets WHERE code=?`), code).Scan(&holder)
	return holder.String, err
}
