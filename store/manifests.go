package store

import (
	"time"

	"github.com/JeanCaOLO/crossdoking/domain"
)

type Manifest struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	Status     string    `json:"status"`
	TotalLines int       `json:"total_lines"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ManifestProgress summarises demand line completion for one manifest.
type ManifestProgress struct {
	Manifest
	DoneLines    int `json:"done_lines"`
	PartialLines int `json:"partial_lines"`
	PendingLines int `json:"pending_lines"`
}

const manifestSelectCols = `id, file_name, status, total_lines, created_by, created_at, updated_at`

func scanManifest(row interface{ Scan(...any) error }) (*Manifest, error) {
	var m Manifest
	var createdAt, updatedAt any
	if err := row.Scan(&m.ID, &m.FileName, &m.Status, &m.TotalLines, &m.CreatedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

func createManifest(q querier, m *Manifest) error {
	if m.Status == "" {
		m.Status = domain.ManifestDraft
	}
	id, err := insertID(q,
		`INSERT INTO manifests (file_name, status, total_lines, created_by) VALUES (?, ?, ?, ?)`,
		m.FileName, m.Status, m.TotalLines, m.CreatedBy)
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (tx *Tx) CreateManifest(m *Manifest) error { return createManifest(tx, m) }
func (db *DB) CreateManifest(m *Manifest) error { return createManifest(db, m) }

func setManifestStatus(q querier, id int64, status string) error {
	_, err := q.Exec(q.Q(`UPDATE manifests SET status=?, updated_at=datetime('now','localtime') WHERE id=?`), status, id)
	return err
}

func (tx *Tx) SetManifestStatus(id int64, status string) error {
	return setManifestStatus(tx, id, status)
}
func (db *DB) SetManifestStatus(id int64, status string) error {
	return setManifestStatus(db, id, status)
}

// RefreshManifestStatus moves an in-progress manifest to DONE once every
// demand line is DONE, and back to IN_PROGRESS when one reopens.
func (tx *Tx) RefreshManifestStatus(id int64) error {
	var status string
	if err := tx.QueryRow(tx.Q(`SELECT status FROM manifests WHERE id=?`), id).Scan(&status); err != nil {
		return err
	}
	if status == domain.ManifestDraft {
		return nil
	}
	var open int
	if err := tx.QueryRow(tx.Q(`SELECT COUNT(*) FROM demand_lines WHERE manifest_id=? AND status<>?`), id, domain.DemandDone).Scan(&open); err != nil {
		return err
	}
	want := domain.ManifestInProgress
	if open == 0 {
		want = domain.ManifestDone
	}
	if want == status {
		return nil
	}
	return setManifestStatus(tx, id, want)
}

func (db *DB) GetManifest(id int64) (*Manifest, error) {
	row := db.QueryRow(db.Q(`SELECT `+manifestSelectCols+` FROM manifests WHERE id=?`), id)
	return scanManifest(row)
}

func (db *DB) ListManifests(limit int) ([]*Manifest, error) {
	rows, err := db.Query(db.Q(`SELECT `+manifestSelectCols+` FROM manifests ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Manifest
	for rows.Next() {
		m, err := scanManifest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *DB) GetManifestProgress(id int64) (*ManifestProgress, error) {
	m, err := db.GetManifest(id)
	if err != nil {
		return nil, err
	}
	p := &ManifestProgress{Manifest: *m}
	rows, err := db.Query(db.Q(`SELECT status, COUNT(*) FROM demand_lines WHERE manifest_id=? GROUP BY status`), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		switch status {
		case domain.DemandDone:
			p.DoneLines = n
		case domain.DemandPartial:
			p.PartialLines = n
		default:
			p.PendingLines = n
		}
	}
	return p, rows.Err()
}
