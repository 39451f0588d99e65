// internal/terminal/session.go
package terminal

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dohaibbur/CYBER-HERO/internal/mission"
	"github.com/dohaibbur/CYBER-HERO/internal/netsim"
	"github.com/dohaibbur/CYBER-HERO/internal/progression"
	"github.com/dohaibbur/CYBER-HERO/internal/util"
	"github.com/dohaibbur/CYBER-HERO/internal/vfs"
)

// Deps are the engine pieces a terminal session operates on. Net and
// Missions may be nil outside of a mission.
type Deps struct {
	FS       *vfs.FS
	Net      *netsim.Simulator
	Profile  *progression.Profile
	Missions *mission.Context
	Logger   *slog.Logger

	// EduNotes appends short explanations to security-relevant output.
	EduNotes bool
}

// Session is one player terminal. It holds the working directory, the
// scrollback, and everything the player has learned so far; mission
// objectives are graded against it.
type Session struct {
	deps Deps

	cwd        string
	history    []string
	scrollback []Output
	commandLog []string

	discovered map[string]bool
	identified map[string]bool // "addr:port"
	answers    map[string]string
	downloads  map[string]bool
	decoded    map[string]bool

	connected  *netsim.Session
	auditRan   bool
	auditClean bool
	exited     bool
}

// NewSession opens a terminal at the filesystem root.
func NewSession(deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Session{
		deps:       deps,
		cwd:        "/",
		discovered: make(map[string]bool),
		identified: make(map[string]bool),
		answers:    make(map[string]string),
		downloads:  make(map[string]bool),
		decoded:    make(map[string]bool),
	}
}

// Prompt renders the shell prompt for the current directory.
func (s *Session) Prompt() string {
	name := "hero"
	if s.deps.Profile != nil && s.deps.Profile.Nickname != "" {
		name = s.deps.Profile.Nickname
	}
	return fmt.Sprintf("%s@cyberhero:%s$ ", name, s.cwd)
}

// Cwd returns the current working directory.
func (s *Session) Cwd() string { return s.cwd }

// History returns submitted lines, oldest first.
func (s *Session) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Scrollback returns the rendered output lines, oldest first.
func (s *Session) Scrollback() []Output {
	out := make([]Output, len(s.scrollback))
	copy(out, s.scrollback)
	return out
}

// Exited reports whether the player ran exit.
func (s *Session) Exited() bool { return s.exited }

// Answers returns a copy of the submitted mission answers.
func (s *Session) Answers() map[string]string {
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// RestoreAnswers reloads answers from a saved game.
func (s *Session) RestoreAnswers(answers map[string]string) {
	for k, v := range answers {
		s.answers[k] = v
	}
}

func (s *Session) tracker() *mission.Tracker {
	if s.deps.Missions == nil {
		return nil
	}
	return s.deps.Missions.Active()
}

func (s *Session) markDiscovered(addr string) {
	if !s.discovered[addr] {
		s.discovered[addr] = true
		s.deps.Logger.Debug("host discovered", "addr", addr)
	}
}

func (s *Session) markIdentified(addr string, port int) {
	s.identified[addr+":"+strconv.Itoa(port)] = true
}

// The mission package grades objectives against the session.

func (s *Session) CommandRun(prefix string) bool {
	for _, c := range s.commandLog {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func (s *Session) DiscoveredHostCount() int { return len(s.discovered) }

func (s *Session) PortIdentified(addr string, port int) bool {
	return s.identified[addr+":"+strconv.Itoa(port)]
}

func (s *Session) DeviceIsolated(addr string) bool {
	return s.deps.Net != nil && s.deps.Net.IsIsolated(addr)
}

func (s *Session) PortBlocked(addr string, port int) bool {
	return s.deps.Net != nil && s.deps.Net.IsBlocked(addr, port)
}

func (s *Session) FileDownloaded(path string) bool { return s.downloads[path] }

func (s *Session) CaptureDecoded(path string) bool { return s.decoded[path] }

func (s *Session) FieldAnswer(field string) (string, bool) {
	v, ok := s.answers[field]
	return v, ok
}

func (s *Session) AuditClean() bool { return s.auditRan && s.auditClean }

func (s *Session) ToolUnlocked(tool string) bool {
	if s.deps.Profile == nil {
		return false
	}
	return util.Contains(s.deps.Profile.UnlockedTools, tool)
}

var _ mission.State = (*Session)(nil)
