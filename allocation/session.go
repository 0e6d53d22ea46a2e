package allocation

import (
	"context"
	"sync"
	"time"
)

type Mode string

const (
	ModeAuto   Mode = "AUTO"
	ModeManual Mode = "MANUAL"
)

// Session is the scan state of one operator working one pallet.
type Session struct {
	PalletCode string    `json:"pallet_code"`
	Operator   string    `json:"operator"`
	SKU        string    `json:"sku,omitempty"`
	LineID     int64     `json:"line_id,omitempty"`
	Mode       Mode      `json:"mode"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionStore persists scan sessions. Get returns nil, nil when no session exists.
type SessionStore interface {
	Get(ctx context.Context, palletCode, operator string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, palletCode, operator string) error
}

// MemoryStore keeps sessions in process memory. Used when Redis is unavailable.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func memKey(palletCode, operator string) string { return palletCode + "\x00" + operator }

func (m *MemoryStore) Get(_ context.Context, palletCode, operator string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[memKey(palletCode, operator)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[memKey(s.PalletCode, s.Operator)] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, palletCode, operator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, memKey(palletCode, operator))
	return nil
}
