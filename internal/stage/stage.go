// internal/stage/stage.go

// Package stage owns the game state machine: which screen the player is
// on, how intents move them between screens, and the logical clock that
// drives timers. The UI layer submits intents and polls snapshots; it
// never touches engine state directly.
package stage

import (
	"github.com/dohaibbur/CYBER-HERO/pkg/core"
)

// Transition is the outcome of an intent: stay on the current stage, or
// switch to another one.
type Transition struct {
	To     core.StageKind
	Switch bool
}

// Stay keeps the current stage.
func Stay() Transition { return Transition{} }

// Goto switches to the given stage.
func Goto(k core.StageKind) Transition { return Transition{To: k, Switch: true} }

// StageSnapshot is the stage-specific part of a render snapshot.
type StageSnapshot struct {
	StatusLine string
	View       map[string]string
}

// Stage is one screen of the state machine.
type Stage interface {
	Kind() core.StageKind
	OnEnter(e *Engine)
	OnIntent(e *Engine, intent core.Intent) (Transition, error)
	OnExit(e *Engine)
	Snapshot(e *Engine) StageSnapshot
}

// escapeTargets is the total escape map. Every defined stage has an entry;
// Menu maps to itself (escape is a no-op there) and Settings returns to
// the stage it was opened from.
var escapeTargets = map[core.StageKind]core.StageKind{
	core.StageMenu:      core.StageMenu,
	core.StageAnimation: core.StageWelcome,
	core.StageWelcome:   core.StageDesktop,
	core.StageDesktop:   core.StageInbox,
	core.StageInbox:     core.StageDesktop,
	core.StageForum:     core.StageDesktop,
	core.StageMission:   core.StageDesktop,
	core.StageSettings:  core.StageDesktop, // overridden by the opener
	core.StageCredits:   core.StageMenu,
}
