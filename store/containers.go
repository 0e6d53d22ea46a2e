package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JeanCaOLO/crossdoking/domain"
)

type Container struct {
	ID           int64      `json:"id"`
	Code         string     `json:"code"`
	ManifestID   int64      `json:"manifest_id"`
	Destination  string     `json:"destination"`
	Status       string     `json:"status"`
	Type         string     `json:"type"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedBy     string     `json:"closed_by,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
}

type ContainerLine struct {
	ID           int64           `json:"id"`
	ContainerID  int64           `json:"container_id"`
	PalletCode   string          `json:"pallet_code"`
	SKU          string          `json:"sku"`
	Qty          decimal.Decimal `json:"qty"`
	DemandLineID *int64          `json:"demand_line_id,omitempty"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

const containerSelectCols = `id, code, manifest_id, destination, status, type, created_by, created_at, closed_by, closed_at, dispatched_at`

func scanContainer(row interface{ Scan(...any) error }) (*Container, error) {
	var c Container
	var closedBy sql.NullString
	var createdAt, closedAt, dispatchedAt any
	if err := row.Scan(&c.ID, &c.Code, &c.ManifestID, &c.Destination, &c.Status, &c.Type, &c.CreatedBy,
		&createdAt, &closedBy, &closedAt, &dispatchedAt); err != nil {
		return nil, err
	}
	c.ClosedBy = closedBy.String
	c.CreatedAt = parseTime(createdAt)
	c.ClosedAt = parseTimePtr(closedAt)
	c.DispatchedAt = parseTimePtr(dispatchedAt)
	return &c, nil
}

func scanContainers(rows *sql.Rows) ([]*Container, error) {
	defer rows.Close()
	var out []*Container
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func getContainer(q querier, id int64) (*Container, error) {
	row := q.QueryRow(q.Q(`SELECT `+containerSelectCols+` FROM containers WHERE id=?`), id)
	return scanContainer(row)
}

func (db *DB) GetContainer(id int64) (*Container, error) { return getContainer(db, id) }
func (tx *Tx) GetContainer(id int64) (*Container, error) { return getContainer(tx, id) }

func getContainerByCode(q querier, code string) (*Container, error) {
	row := q.QueryRow(q.Q(`SELECT `+containerSelectCols+` FROM containers WHERE code=?`), code)
	return scanContainer(row)
}

func (db *DB) GetContainerByCode(code string) (*Container, error) {
	return getContainerByCode(db, code)
}
func (tx *Tx) GetContainerByCode(code string) (*Container, error) {
	return getContainerByCode(tx, code)
}

// FindOpenContainer returns the OPEN NORMAL container for (manifest, destination).
func (tx *Tx) FindOpenContainer(manifestID int64, destination string) (*Container, error) {
	row := tx.QueryRow(tx.Q(`SELECT `+containerSelectCols+` FROM containers
		WHERE manifest_id=? AND destination=? AND status=? AND type=? ORDER BY id LIMIT 1`),
		manifestID, destination, domain.ContainerOpen, domain.ContainerNormal)
	return scanContainer(row)
}

// LastContainerCode returns the highest well-formed code for prefix: the
// prefix followed by exactly digits decimal digits. Codes of any other shape
// are ignored. It returns "" when none exists.
func (tx *Tx) LastContainerCode(prefix string, digits int) (string, error) {
	rows, err := tx.Query(tx.Q(`SELECT code FROM containers WHERE code LIKE ? AND LENGTH(code)=?
		ORDER BY code DESC`), prefix+"%", len(prefix)+digits)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return "", err
		}
		if allDigits(strings.TrimPrefix(code, prefix)) {
			return code, nil
		}
	}
	return "", rows.Err()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// InsertContainer creates a container row. Surplus containers are inserted
// already CLOSED with closed_at and closed_by stamped.
func (tx *Tx) InsertContainer(c *Container) error {
	var id int64
	var err error
	if c.Status == domain.ContainerClosed {
		id, err = insertID(tx, `INSERT INTO containers (code, manifest_id, destination, status, type, created_by, closed_by, closed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now','localtime'))`,
			c.Code, c.ManifestID, c.Destination, c.Status, c.Type, c.CreatedBy, nullString(c.CreatedBy))
	} else {
		id, err = insertID(tx, `INSERT INTO containers (code, manifest_id, destination, status, type, created_by)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.Code, c.ManifestID, c.Destination, c.Status, c.Type, c.CreatedBy)
	}
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// CloseContainer moves an OPEN container to CLOSED. It reports false when the
// container was not OPEN.
func (tx *Tx) CloseContainer(id int64, actor string) (bool, error) {
	res, err := tx.Exec(tx.Q(`UPDATE containers SET status=?, closed_by=?, closed_at=datetime('now','localtime')
		WHERE id=? AND status=?`), domain.ContainerClosed, nullString(actor), id, domain.ContainerOpen)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkContainerDispatched moves a CLOSED container to DISPATCHED. It reports
// false when the container was not CLOSED.
func (tx *Tx) MarkContainerDispatched(id int64) (bool, error) {
	res, err := tx.Exec(tx.Q(`UPDATE containers SET status=?, dispatched_at=datetime('now','localtime') WHERE id=? AND status=?`),
		domain.ContainerDispatched, id, domain.ContainerClosed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (db *DB) ListContainers(manifestID int64, status string) ([]*Container, error) {
	query := `SELECT ` + containerSelectCols + ` FROM containers WHERE manifest_id=?`
	args := []any{manifestID}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	rows, err := db.Query(db.Q(query+` ORDER BY code`), args...)
	if err != nil {
		return nil, err
	}
	return scanContainers(rows)
}

// --- container lines ---

const containerLineSelectCols = `id, container_id, pallet_code, sku, qty, demand_line_id, created_by, created_at`

func scanContainerLine(row interface{ Scan(...any) error }) (*ContainerLine, error) {
	var l ContainerLine
	var demandID sql.NullInt64
	var createdAt any
	if err := row.Scan(&l.ID, &l.ContainerID, &l.PalletCode, &l.SKU, &l.Qty, &demandID, &l.CreatedBy, &createdAt); err != nil {
		return nil, err
	}
	if demandID.Valid {
		l.DemandLineID = &demandID.Int64
	}
	l.CreatedAt = parseTime(createdAt)
	return &l, nil
}

func (tx *Tx) InsertContainerLine(l *ContainerLine) error {
	var demandID any
	if l.DemandLineID != nil {
		demandID = *l.DemandLineID
	}
	id, err := insertID(tx, `INSERT INTO container_lines (container_id, pallet_code, sku, qty, demand_line_id, created_by)
		VALUES (?, ?, ?, ?, ?, ?)`, l.ContainerID, l.PalletCode, l.SKU, l.Qty, demandID, l.CreatedBy)
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func getContainerLine(q querier, id int64) (*ContainerLine, error) {
	row := q.QueryRow(q.Q(`SELECT `+containerLineSelectCols+` FROM container_lines WHERE id=?`), id)
	return scanContainerLine(row)
}

func (db *DB) GetContainerLine(id int64) (*ContainerLine, error) { return getContainerLine(db, id) }
func (tx *Tx) GetContainerLine(id int64) (*ContainerLine, error) { return getContainerLine(tx, id) }

func (tx *Tx) DeleteContainerLine(id int64) error {
	_, err := tx.Exec(tx.Q(`DELETE FROM container_lines WHERE id=?`), id)
	return err
}

func listContainerLines(q querier, containerID int64) ([]*ContainerLine, error) {
	rows, err := q.Query(q.Q(`SELECT `+containerLineSelectCols+` FROM container_lines WHERE container_id=? ORDER BY id`), containerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ContainerLine
	for rows.Next() {
		l, err := scanContainerLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (db *DB) ListContainerLines(containerID int64) ([]*ContainerLine, error) {
	return listContainerLines(db, containerID)
}
func (tx *Tx) ListContainerLines(containerID int64) ([]*ContainerLine, error) {
	return listContainerLines(tx, containerID)
}

func countContainerLines(q querier, containerID int64) (int, error) {
	var n int
	err := q.QueryRow(q.Q(`SELECT COUNT(*) FROM container_lines WHERE container_id=?`), containerID).Scan(&n)
	return n, err
}

func (db *DB) CountContainerLines(containerID int64) (int, error) {
	return countContainerLines(db, containerID)
}
func (tx *Tx) CountContainerLines(containerID int64) (int, error) {
	return countContainerLines(tx, containerID)
}
