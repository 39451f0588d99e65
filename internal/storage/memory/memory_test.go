// internal/storage/memory/memory_test.go
package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohaibbur/CYBER-HERO/internal/model"
)

func snap(nickname string, xp int, savedAt time.Time) model.ProfileSnapshot {
	return model.ProfileSnapshot{
		Nickname: nickname,
		XP:       xp,
		Level:    2,
		Badges:   []string{"first_responder"},
		Missions: []model.MissionSnapshot{
			{MissionID: "mission_recon", Objectives: map[string]int{"sweep": 1}},
		},
		SavedAt: savedAt,
	}
}

func TestRoundTrip(t *testing.T) {
	b := New()
	require.NoError(t, b.Init())

	saved := snap("hero", 120, time.Now().UTC())
	require.NoError(t, b.SaveProfile(saved))

	got, err := b.LoadProfile("hero")
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestLoadIsACopy(t *testing.T) {
	b := New()
	require.NoError(t, b.SaveProfile(snap("hero", 120, time.Now().UTC())))

	first, err := b.LoadProfile("hero")
	require.NoError(t, err)
	first.Missions[0].Objectives["sweep"] = 99

	second, err := b.LoadProfile("hero")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Missions[0].Objectives["sweep"], "mutating a loaded snapshot must not touch the store")
}

func TestLoadUnknown(t *testing.T) {
	b := New()
	_, err := b.LoadProfile("nobody")
	assert.ErrorIs(t, err, model.ErrProfileNotFound)
}

func TestListNewestFirst(t *testing.T) {
	b := New()
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.SaveProfile(snap("alice", 50, older)))
	require.NoError(t, b.SaveProfile(snap("bob", 80, newer)))

	slots, err := b.ListProfiles()
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "bob", slots[0].Nickname)
	assert.Equal(t, "alice", slots[1].Nickname)
}

func TestDelete(t *testing.T) {
	b := New()
	require.NoError(t, b.SaveProfile(snap("hero", 120, time.Now().UTC())))
	require.NoError(t, b.DeleteProfile("hero"))

	_, err := b.LoadProfile("hero")
	assert.ErrorIs(t, err, model.ErrProfileNotFound)
	assert.NoError(t, b.DeleteProfile("hero"))
}

func TestRecordEvent(t *testing.T) {
	b := New()
	require.NoError(t, b.RecordEvent(model.EventRecord{
		Nickname:  "hero",
		SessionID: "sess-1",
		Time:      time.Now().UTC(),
		Kind:      "mission.completed",
		Payload:   "mission_recon",
	}))
	require.NoError(t, b.RecordEvent(model.EventRecord{
		SessionID: "sess-1",
		Time:      time.Now().UTC(),
		Kind:      "stage.changed",
		Payload:   "desktop",
	}))

	events := b.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "mission.completed", events[0].Kind)
	assert.Equal(t, "hero", events[0].Nickname)
	assert.Equal(t, "stage.changed", events[1].Kind)
}
