// internal/storage/memory/memory.go
package memory

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/dohaibbur/CYBER-HERO/internal/model"
)

// Backend keeps saves in process memory. Used by tests and by runs with
// persistence disabled.
type Backend struct {
	mu     sync.RWMutex
	saves  map[string][]byte // nickname -> marshalled snapshot
	events []model.EventRecord
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{saves: make(map[string][]byte)}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

func (b *Backend) SaveProfile(snap model.ProfileSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves[snap.Nickname] = raw
	return nil
}

func (b *Backend) LoadProfile(nickname string) (model.ProfileSnapshot, error) {
	b.mu.RLock()
	raw, ok := b.saves[nickname]
	b.mu.RUnlock()
	if !ok {
		return model.ProfileSnapshot{}, model.ErrProfileNotFound
	}
	var snap model.ProfileSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.ProfileSnapshot{}, err
	}
	return snap, nil
}

func (b *Backend) ListProfiles() ([]model.ProfileSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	slots := make([]model.ProfileSummary, 0, len(b.saves))
	for _, raw := range b.saves {
		var snap model.ProfileSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, err
		}
		slots = append(slots, model.ProfileSummary{
			Nickname: snap.Nickname,
			Level:    snap.Level,
			XP:       snap.XP,
			SavedAt:  snap.SavedAt,
		})
	}
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].SavedAt.Equal(slots[j].SavedAt) {
			return slots[i].SavedAt.After(slots[j].SavedAt)
		}
		return slots[i].Nickname < slots[j].Nickname
	})
	return slots, nil
}

func (b *Backend) DeleteProfile(nickname string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.saves, nickname)
	return nil
}

func (b *Backend) RecordEvent(rec model.EventRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, rec)
	return nil
}

// Events returns the recorded audit stream in arrival order.
func (b *Backend) Events() []model.EventRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.EventRecord, len(b.events))
	copy(out, b.events)
	return out
}
