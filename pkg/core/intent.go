// pkg/core/intent.go
package core

// Intent is a player or UI input routed into the engine. The UI layer
// produces intents and reads snapshots; it never mutates engine state
// directly.
type Intent interface {
	isIntent()
}

// ClickIntent is a pointer click on a named target (desktop icon, button).
type ClickIntent struct {
	Target string
}

// KeyIntent is a single key press outside of terminal line editing.
type KeyIntent struct {
	Key string
}

// CommandIntent is a raw terminal line submitted by the player.
type CommandIntent struct {
	Line string
}

// EscapeIntent is an escape/back request.
type EscapeIntent struct{}

func (ClickIntent) isIntent()   {}
func (KeyIntent) isIntent()     {}
func (CommandIntent) isIntent() {}
func (EscapeIntent) isIntent()  {}
