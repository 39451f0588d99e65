// internal/storage/storage.go
package storage

import (
	"github.com/dohaibbur/CYBER-HERO/internal/model"
)

// Backend is the interface all save storage implementations satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveProfile writes the full snapshot, replacing any prior save
	// for the same nickname.
	SaveProfile(snap model.ProfileSnapshot) error

	// LoadProfile returns the snapshot for a nickname, or
	// model.ErrProfileNotFound.
	LoadProfile(nickname string) (model.ProfileSnapshot, error)

	// ListProfiles returns every stored save, newest first.
	ListProfiles() ([]model.ProfileSummary, error)

	// DeleteProfile removes a save. Deleting an unknown nickname is
	// not an error.
	DeleteProfile(nickname string) error

	// RecordEvent appends one row to the session audit stream. Events
	// for a nickname with no saved profile are still recorded.
	RecordEvent(rec model.EventRecord) error
}
