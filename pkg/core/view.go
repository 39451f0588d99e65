// pkg/core/view.go
package core

// Read-only views handed to the UI layer. Views are value copies; mutating
// them has no effect on engine state.

// ProfileView is the player profile as seen by the UI.
type ProfileView struct {
	Nickname          string
	Level             int
	LevelName         string
	XP                int
	Reputation        int
	Credits           int
	Badges            []string
	UnlockedTools     []string
	UnlockedMissions  []string
	CompletedMissions []string
}

// ObjectiveView is a single gradeable mission condition.
type ObjectiveView struct {
	ID       string
	Title    string
	Hint     string
	Complete bool
	Progress int
	Target   int
}

// MissionView is the active mission and its objective states.
type MissionView struct {
	ID         string
	Title      string
	Objectives []ObjectiveView
	Complete   bool
	Percent    float64
}

// NotificationView is a delivered in-game email or alert.
type NotificationView struct {
	ID          string
	Sender      string
	Subject     string
	Body        string
	MissionID   string
	DeliveredAt int64 // logical clock, milliseconds
	Read        bool
}

// TerminalView is the visible state of an in-game terminal session.
type TerminalView struct {
	Prompt  string
	Lines   []string
	History []string
}

// Snapshot is the full render state polled by the UI each frame.
type Snapshot struct {
	Stage         StageKind
	Clock         int64 // logical clock, milliseconds
	Profile       ProfileView
	Mission       *MissionView
	Terminal      *TerminalView
	Inbox         []NotificationView
	UnreadCount   int
	StatusLine    string
	SaveSlots     []string
	SettingsView  map[string]string
	AnimationDone bool
}
