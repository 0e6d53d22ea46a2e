package store

import (
	"time"
)

type Operator struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

func (db *DB) CreateOperator(username, passwordHash, role string) error {
	_, err := db.Exec(db.Q(`INSERT INTO operators (username, password_hash, role) VALUES (?, ?, ?)`), username, passwordHash, role)
	return err
}

func (db *DB) GetOperator(username string) (*Operator, error) {
	var u Operator
	var createdAt any
	err := db.QueryRow(db.Q(`SELECT id, username, password_hash, role, created_at FROM operators WHERE username=?`), username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

func (db *DB) UpdateOperatorPassword(username, passwordHash string) error {
	_, err := db.Exec(db.Q(`UPDATE operators SET password_hash=? WHERE username=?`), passwordHash, username)
	return err
}

func (db *DB) OperatorExists() (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM operators`).Scan(&count)
	return count > 0, err
}
