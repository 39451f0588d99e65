// pkg/core/stage.go
package core

// StageKind identifies a top-level mode of the game state machine.
type StageKind uint8

const (
	StageMenu StageKind = iota
	StageAnimation
	StageWelcome
	StageDesktop
	StageForum
	StageInbox
	StageMission
	StageSettings
	StageCredits
)

var stageNames = map[StageKind]string{
	StageMenu:      "menu",
	StageAnimation: "animation",
	StageWelcome:   "welcome",
	StageDesktop:   "desktop",
	StageForum:     "forum",
	StageInbox:     "inbox",
	StageMission:   "mission",
	StageSettings:  "settings",
	StageCredits:   "credits",
}

func (k StageKind) String() string {
	if name, ok := stageNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is one of the defined stages.
func (k StageKind) Valid() bool {
	_, ok := stageNames[k]
	return ok
}
