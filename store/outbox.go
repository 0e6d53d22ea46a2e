package store

import (
	"time"
)

type OutboxMessage struct {
	ID        int64
	Topic     string
	Payload   []byte
	MsgType   string
	Retries   int
	CreatedAt time.Time
	SentAt    *time.Time
}

func enqueueOutbox(q querier, topic string, payload []byte, msgType string) error {
	_, err := q.Exec(q.Q(`INSERT INTO outbox (topic, payload, msg_type) VALUES (?, ?, ?)`), topic, payload, msgType)
	return err
}

func (db *DB) EnqueueOutbox(topic string, payload []byte, msgType string) error {
	return enqueueOutbox(db, topic, payload, msgType)
}

// EnqueueOutbox records a message that becomes visible to the drainer only
// when the surrounding transaction commits.
func (tx *Tx) EnqueueOutbox(topic string, payload []byte, msgType string) error {
	return enqueueOutbox(tx, topic, payload, msgType)
}

// ListPendingOutbox returns unsent messages with fewer than maxRetries attempts.
func (db *DB) ListPendingOutbox(limit, maxRetries int) ([]*OutboxMessage, error) {
	rows, err := db.Query(db.Q(`SELECT id, topic, payload, msg_type, retries, created_at FROM outbox
		WHERE sent_at IS NULL AND retries < ? ORDER BY id LIMIT ?`), maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var createdAt any
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.Retries, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (db *DB) AckOutbox(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET sent_at=datetime('now','localtime') WHERE id=?`), id)
	return err
}

func (db *DB) IncrementOutboxRetries(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET retries=retries+1 WHERE id=?`), id)
	return err
}

// CountDeadOutbox counts unsent messages that exhausted their retries.
func (db *DB) CountDeadOutbox(maxRetries int) (int, error) {
	var n int
	err := db.QueryRow(db.Q(`SELECT COUNT(*) FROM outbox WHERE sent_at IS NULL AND retries >= ?`), maxRetries).Scan(&n)
	return n, err
}
