// README: Tariff stores. Every backend keeps the whole record as JSON under SettingsKey.
package tariff

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store is the key-value configuration store. Load reports ok=false when nothing is saved.
type Store interface {
	Load(ctx context.Context) (Tariff, bool, error)
	Save(ctx context.Context, t Tariff) error
}

// MemoryStore keeps the encoded record in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	raw []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (Tariff, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return Tariff{}, false, nil
	}
	t, err := decode(s.raw)
	if err != nil {
		return Tariff{}, false, err
	}
	return t, true, nil
}

func (s *MemoryStore) Save(_ context.Context, t Tariff) error {
	raw, err := encode(t)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

func encode(t Tariff) ([]byte, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", SettingsKey, err)
	}
	return raw, nil
}

func decode(raw []byte) (Tariff, error) {
	var t Tariff
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tariff{}, fmt.Errorf("decoding %s: %w", SettingsKey, err)
	}
	return t, nil
}
