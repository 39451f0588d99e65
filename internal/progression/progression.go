// Package progression tracks the player profile: experience, level,
// reputation, credits, badges and unlocks.
package progression

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dohaibbur/CYBER-HERO/internal/util"
)

var ErrInsufficientFunds = errors.New("insufficient credits")

// Profile is the live player profile owned by the engine.
type Profile struct {
	Nickname          string
	XP                int
	Level             int
	Reputation        int
	Credits           int
	Badges            []string
	UnlockedTools     []string
	UnlockedMissions  []string
	CompletedMissions []string
}

// Reward is a bundle applied on objective or mission completion.
type Reward struct {
	XP             int      `yaml:"xp"`
	Credits        int      `yaml:"credits"`
	Reputation     int      `yaml:"reputation"`
	Badges         []string `yaml:"badges"`
	UnlockTools    []string `yaml:"unlockTools"`
	UnlockMissions []string `yaml:"unlockMissions"`
}

// IsZero reports whether applying the reward would change nothing.
func (r Reward) IsZero() bool {
	return r.XP == 0 && r.Credits == 0 && r.Reputation == 0 &&
		len(r.Badges) == 0 && len(r.UnlockTools) == 0 && len(r.UnlockMissions) == 0
}

// levelThresholds is cumulative XP required to hold each level. Level 1 is
// the floor; excess XP always carries toward the next threshold.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000, 4000}

// levelNames parallels levelThresholds.
var levelNames = []string{
	"Rookie",
	"Script Reader",
	"Packet Wrangler",
	"Network Defender",
	"Threat Hunter",
	"Incident Commander",
	"Cyber Hero",
}

// System applies rewards and spending against profiles.
type System struct {
	logger     *slog.Logger
	thresholds []int
	names      []string
}

// New creates a System with the default threshold table.
func New(logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{logger: logger, thresholds: levelThresholds, names: levelNames}
}

// LevelFor returns the level held at the given cumulative XP.
// Levels are 1-based and monotone in XP.
func (s *System) LevelFor(xp int) int {
	level := 1
	for i, threshold := range s.thresholds {
		if xp >= threshold {
			level = i + 1
		}
	}
	return level
}

// LevelName returns the display name for a level.
func (s *System) LevelName(level int) string {
	if level < 1 {
		level = 1
	}
	if level > len(s.names) {
		level = len(s.names)
	}
	return s.names[level-1]
}

// NextThreshold returns the cumulative XP needed for the next level, or -1
// at the table's top.
func (s *System) NextThreshold(level int) int {
	if level < 1 || level >= len(s.thresholds) {
		return -1
	}
	return s.thresholds[level]
}

// ApplyReward applies a reward bundle to the profile. XP and credits never
// drop below zero from a single application; reputation may go negative.
// Level is recomputed from cumulative XP and never decreases here because
// XP never decreases. The zero reward is the identity.
func (s *System) ApplyReward(p *Profile, r Reward) {
	if r.IsZero() {
		return
	}

	before := p.Level

	p.XP += r.XP
	if p.XP < 0 {
		p.XP = 0
	}
	p.Credits += r.Credits
	if p.Credits < 0 {
		p.Credits = 0
	}
	p.Reputation += r.Reputation

	for _, b := range r.Badges {
		p.Badges = util.AppendUnique(p.Badges, b)
	}
	for _, tool := range r.UnlockTools {
		p.UnlockedTools = util.AppendUnique(p.UnlockedTools, tool)
	}
	for _, m := range r.UnlockMissions {
		p.UnlockedMissions = util.AppendUnique(p.UnlockedMissions, m)
	}

	p.Level = s.LevelFor(p.XP)
	if p.Level > before {
		s.logger.Info("level up", "nickname", p.Nickname, "level", p.Level, "title", s.LevelName(p.Level))
	}
}

// Spend deducts credits, rejecting overdraws instead of clamping.
func (s *System) Spend(p *Profile, amount int) error {
	if amount < 0 {
		return fmt.Errorf("spend %d: negative amount", amount)
	}
	if amount > p.Credits {
		return fmt.Errorf("spend %d with balance %d: %w", amount, p.Credits, ErrInsufficientFunds)
	}
	p.Credits -= amount
	return nil
}

// MarkMissionComplete records a completed mission id exactly once.
func (s *System) MarkMissionComplete(p *Profile, missionID string) {
	p.CompletedMissions = util.AppendUnique(p.CompletedMissions, missionID)
}

// HasTool reports whether the profile has unlocked a tool.
func (p *Profile) HasTool(tool string) bool {
	return util.Contains(p.UnlockedTools, tool)
}

// HasCompleted reports whether the profile finished a mission.
func (p *Profile) HasCompleted(missionID string) bool {
	return util.Contains(p.CompletedMissions, missionID)
}
