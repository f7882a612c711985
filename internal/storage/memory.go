package storage

import (
	"fmt"
	"sync"

	"ideaspark/internal/session"

	json "github.com/goccy/go-json"
)

// MemoryStore 内存实现，按与 SQLite 相同的编码保存，便于测试
// MemoryStore keeps the encoded snapshot in memory using the same codec as SQLiteStore
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(state session.State) error {
	data, err := json.Marshal(state.Normalize())
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	m.mu.Lock()
	m.data = data
	m.saves++
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load() session.State {
	m.mu.Lock()
	data := m.data
	m.mu.Unlock()
	if len(data) == 0 {
		return session.Empty()
	}
	state, err := decodeSnapshot(data)
	if err != nil {
		return session.Empty()
	}
	return state
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// SetRaw 直接写入原始字节（测试损坏数据用）
// SetRaw stores raw bytes verbatim, used to simulate corrupted snapshots
func (m *MemoryStore) SetRaw(data []byte) {
	m.mu.Lock()
	m.data = append([]byte(nil), data...)
	m.mu.Unlock()
}

// Saves 返回 Save 调用次数 / Saves returns how many times Save was called
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
