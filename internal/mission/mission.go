// Package mission holds declarative mission definitions and the objective
// tracker that grades them. Missions carry no code: every objective is a
// predicate record evaluated by one uniform evaluator.
package mission

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dohaibbur/CYBER-HERO/internal/progression"
	"github.com/dohaibbur/CYBER-HERO/internal/util"
)

var ErrInvalidMission = errors.New("invalid mission definition")

// Predicate kinds understood by the evaluator.
const (
	PredCommandRun      = "command-run"
	PredHostsDiscovered = "hosts-discovered"
	PredPortIdentified  = "port-identified"
	PredDeviceIsolated  = "device-isolated"
	PredPortBlocked     = "port-blocked"
	PredFileDownloaded  = "file-downloaded"
	PredCaptureDecoded  = "capture-decoded"
	PredFieldAnswered   = "field-answered"
	PredAuditClean      = "audit-clean"
	PredToolUnlocked    = "tool-unlocked"
)

// Predicate is a declarative completion condition. Only the fields the
// kind needs are set.
type Predicate struct {
	Kind    string `yaml:"kind"`
	Command string `yaml:"command"`
	Count   int    `yaml:"count"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
	Field   string `yaml:"field"`
	Answer  string `yaml:"answer"`
	Tool    string `yaml:"tool"`
}

// Objective is a single gradeable condition.
type Objective struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Hint      string    `yaml:"hint"`
	Predicate Predicate `yaml:"predicate"`
}

// TriggerKind values.
const (
	TriggerImmediate       = "immediate"
	TriggerMissionComplete = "mission-complete"
	TriggerMailRead        = "mail-read"
)

// Trigger controls when a mission becomes available.
type Trigger struct {
	Kind      string `yaml:"kind"`
	MissionID string `yaml:"missionId"`
	MailID    string `yaml:"mailId"`
}

// Mail is a follow-up email sent on mission completion.
type Mail struct {
	ID      string `yaml:"id"`
	Sender  string `yaml:"sender"`
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
	DelayMs int64  `yaml:"delayMs"`
}

// Mission is one declarative mission document.
type Mission struct {
	ID         string             `yaml:"id"`
	Title      string             `yaml:"title"`
	Briefing   string             `yaml:"briefing"`
	Network    string             `yaml:"network"`
	Trigger    Trigger            `yaml:"trigger"`
	Objectives []Objective        `yaml:"objectives"`
	Reward     progression.Reward `yaml:"reward"`
	FollowUp   *Mail              `yaml:"followUp"`
}

// Load parses and validates a YAML mission document.
func Load(data []byte) (Mission, error) {
	var m Mission
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Mission{}, fmt.Errorf("parsing mission: %w", err)
	}
	if m.ID == "" {
		return Mission{}, fmt.Errorf("%w: missing id", ErrInvalidMission)
	}
	if len(m.Objectives) == 0 {
		return Mission{}, fmt.Errorf("%w: mission %s has no objectives", ErrInvalidMission, m.ID)
	}
	seen := make(map[string]bool)
	for _, o := range m.Objectives {
		if o.ID == "" {
			return Mission{}, fmt.Errorf("%w: mission %s has an objective without id", ErrInvalidMission, m.ID)
		}
		if seen[o.ID] {
			return Mission{}, fmt.Errorf("%w: mission %s duplicates objective %s", ErrInvalidMission, m.ID, o.ID)
		}
		seen[o.ID] = true
		if !knownPredicate(o.Predicate.Kind) {
			return Mission{}, fmt.Errorf("%w: objective %s has unknown predicate %q", ErrInvalidMission, o.ID, o.Predicate.Kind)
		}
	}
	if m.Trigger.Kind == "" {
		m.Trigger.Kind = TriggerImmediate
	}
	return m, nil
}

func knownPredicate(kind string) bool {
	switch kind {
	case PredCommandRun, PredHostsDiscovered, PredPortIdentified,
		PredDeviceIsolated, PredPortBlocked, PredFileDownloaded,
		PredCaptureDecoded, PredFieldAnswered, PredAuditClean,
		PredToolUnlocked:
		return true
	}
	return false
}

// State is the read-only game state predicates are evaluated against.
// The stage engine implements it.
type State interface {
	CommandRun(prefix string) bool
	DiscoveredHostCount() int
	PortIdentified(addr string, port int) bool
	DeviceIsolated(addr string) bool
	PortBlocked(addr string, port int) bool
	FileDownloaded(path string) bool
	CaptureDecoded(path string) bool
	FieldAnswer(field string) (string, bool)
	AuditClean() bool
	ToolUnlocked(tool string) bool
}

// eval decides one predicate. It has no side effects.
func eval(p Predicate, s State) bool {
	switch p.Kind {
	case PredCommandRun:
		return s.CommandRun(p.Command)
	case PredHostsDiscovered:
		return s.DiscoveredHostCount() >= p.Count
	case PredPortIdentified:
		return s.PortIdentified(p.Address, p.Port)
	case PredDeviceIsolated:
		return s.DeviceIsolated(p.Address)
	case PredPortBlocked:
		return s.PortBlocked(p.Address, p.Port)
	case PredFileDownloaded:
		return s.FileDownloaded(p.Path)
	case PredCaptureDecoded:
		return s.CaptureDecoded(p.Path)
	case PredFieldAnswered:
		got, ok := s.FieldAnswer(p.Field)
		return ok && answersMatch(p.Answer, got)
	case PredAuditClean:
		return s.AuditClean()
	case PredToolUnlocked:
		return s.ToolUnlocked(p.Tool)
	}
	return false
}

// answersMatch compares a submitted answer against the key. MAC addresses
// compare separator- and case-insensitively; everything else compares
// case- and whitespace-insensitively.
func answersMatch(key, got string) bool {
	if looksLikeMAC(key) {
		return util.NormalizeMAC(key) == util.NormalizeMAC(got)
	}
	return util.NormalizeAnswer(key) == util.NormalizeAnswer(got)
}

func looksLikeMAC(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Count(s, ":") == 5 || strings.Count(s, "-") == 5
}
