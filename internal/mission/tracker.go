package mission

import (
	"log/slog"
)

// Tracker grades one mission's objectives. Completion is monotone: once an
// objective completes it never reverts, whatever the state does afterwards.
type Tracker struct {
	mission       Mission
	completed     map[string]bool
	rewardGranted bool
	logger        *slog.Logger
}

// NewTracker creates a tracker for a mission with no progress.
func NewTracker(m Mission, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		mission:   m,
		completed: make(map[string]bool),
		logger:    logger,
	}
}

// Mission returns the tracked mission definition.
func (t *Tracker) Mission() Mission {
	return t.mission
}

// Evaluate checks every still-pending objective against the state and
// returns the newly completed ones. Idempotent: with unchanged state a
// second call returns nothing.
func (t *Tracker) Evaluate(s State) []Objective {
	var newly []Objective
	for _, o := range t.mission.Objectives {
		if t.completed[o.ID] {
			continue
		}
		if eval(o.Predicate, s) {
			t.completed[o.ID] = true
			newly = append(newly, o)
			t.logger.Info("objective complete", "mission", t.mission.ID, "objective", o.ID)
		}
	}
	return newly
}

// IsComplete reports a single objective's status.
func (t *Tracker) IsComplete(objectiveID string) bool {
	return t.completed[objectiveID]
}

// Complete reports whether every objective is done.
func (t *Tracker) Complete() bool {
	for _, o := range t.mission.Objectives {
		if !t.completed[o.ID] {
			return false
		}
	}
	return true
}

// Percent returns completion as a 0-100 figure.
func (t *Tracker) Percent() float64 {
	if len(t.mission.Objectives) == 0 {
		return 0
	}
	done := 0
	for _, o := range t.mission.Objectives {
		if t.completed[o.ID] {
			done++
		}
	}
	return float64(done) / float64(len(t.mission.Objectives)) * 100
}

// ConsumeCompletion returns true exactly once, when the mission has just
// fully completed. The caller applies the reward on that single true.
func (t *Tracker) ConsumeCompletion() bool {
	if t.rewardGranted || !t.Complete() {
		return false
	}
	t.rewardGranted = true
	return true
}

// FirstIncomplete returns the first pending objective, for the hint
// command. ok is false when the mission is complete.
func (t *Tracker) FirstIncomplete() (Objective, bool) {
	for _, o := range t.mission.Objectives {
		if !t.completed[o.ID] {
			return o, true
		}
	}
	return Objective{}, false
}

// Snapshot exports progress for saving. Completed objectives map to 1.
func (t *Tracker) Snapshot() map[string]int {
	out := make(map[string]int, len(t.completed))
	for id, done := range t.completed {
		if done {
			out[id] = 1
		}
	}
	return out
}

// Restore reloads saved progress. Unknown objective ids are dropped; a
// fully complete snapshot also restores the granted-reward latch so loading
// a finished mission cannot re-award it.
func (t *Tracker) Restore(snapshot map[string]int) {
	for _, o := range t.mission.Objectives {
		if snapshot[o.ID] > 0 {
			t.completed[o.ID] = true
		}
	}
	if t.Complete() {
		t.rewardGranted = true
	}
}
