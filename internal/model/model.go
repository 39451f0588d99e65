package model

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&GameInfo{},
	&Profile{},
	&MissionProgress{},
	&Notification{},
	&SessionEvent{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// GameInfo contains information about the installed content set
type GameInfo struct {
	gorm.Model
	ContentName    string `json:"contentName" gorm:"size:127"`
	ContentVersion string `json:"contentVersion" gorm:"size:64"`
	MissionCount   int    `json:"missionCount"`
}

func (*GameInfo) TableName() string {
	return "game_infos"
}

////////////////////////
// PROFILE MODELS
////////////////////////

// Profile is the persisted player profile
type Profile struct {
	gorm.Model
	Nickname          string         `json:"nickname" gorm:"size:64;uniqueIndex"`
	XP                int            `json:"xp"`
	Level             int            `json:"level"`
	Reputation        int            `json:"reputation"`
	Credits           int            `json:"credits"`
	Badges            datatypes.JSON `json:"badges"`            // JSON array of badge ids
	UnlockedTools     datatypes.JSON `json:"unlockedTools"`     // JSON array of tool names
	UnlockedMissions  datatypes.JSON `json:"unlockedMissions"`  // JSON array of mission ids
	CompletedMissions datatypes.JSON `json:"completedMissions"` // JSON array of mission ids
	LastPlayedAt      sql.NullTime   `json:"lastPlayedAt"`
	Progress          []MissionProgress
	Notifications     []Notification
}

func (*Profile) TableName() string {
	return "profiles"
}

// GetOrInsert finds a profile by nickname or creates it.
func (p *Profile) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing Profile
	err = db.Where("nickname = ?", p.Nickname).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// insert
			err = db.Create(p).Error
			return true, err
		}
		return false, err
	}
	// overwrite with db record if found
	*p = existing
	return false, nil
}

// MissionProgress tracks per-mission objective state for a profile
type MissionProgress struct {
	gorm.Model
	ProfileID   uint           `json:"profileId" gorm:"index:idx_missionprogress_profile_id"`
	Profile     Profile        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ProfileID;"`
	MissionID   string         `json:"missionId" gorm:"size:64;index"`
	Objectives  datatypes.JSON `json:"objectives"` // JSON object: objective id -> progress count
	Answers     datatypes.JSON `json:"answers"`    // JSON object: field id -> accepted answer
	Complete    bool           `json:"complete"`
	StartedAt   sql.NullTime   `json:"startedAt"`
	CompletedAt sql.NullTime   `json:"completedAt"`
}

func (*MissionProgress) TableName() string {
	return "mission_progresses"
}

// Notification is a delivered in-game mail row
type Notification struct {
	gorm.Model
	ProfileID     uint    `json:"profileId" gorm:"index:idx_notification_profile_id"`
	Profile       Profile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ProfileID;"`
	MailID        string  `json:"mailId" gorm:"size:64;index"`
	Sender        string  `json:"sender" gorm:"size:127"`
	Subject       string  `json:"subject" gorm:"size:255"`
	Body          string  `json:"body" gorm:"size:4000"`
	MissionID     string  `json:"missionId" gorm:"size:64"`
	DeliveredAtMs int64   `json:"deliveredAtMs"`
	Read          bool    `json:"read"`
}

func (*Notification) TableName() string {
	return "notifications"
}

// SessionEvent is an audit row for commands and engine events in a session.
// The profile link is nullable: events fire before the first save exists.
type SessionEvent struct {
	gorm.Model
	ProfileID *uint          `json:"profileId" gorm:"index:idx_sessionevent_profile_id"`
	Profile   *Profile       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ProfileID;"`
	SessionID string         `json:"sessionId" gorm:"size:64;index"`
	Time      time.Time      `json:"time" gorm:"index:idx_sessionevent_time"`
	Kind      string         `json:"kind" gorm:"size:64"`
	Payload   datatypes.JSON `json:"payload"`
}

func (*SessionEvent) TableName() string {
	return "session_events"
}

////////////////////////
// SAVE FILE SHAPES
////////////////////////

// ErrProfileNotFound is returned by storage backends for an unknown
// nickname. The caller decides whether that means "new game" or a broken
// save; backends never fabricate a profile.
var ErrProfileNotFound = errors.New("profile not found")

// EventRecord is one entry of the session audit stream handed to storage
// backends, which map it onto SessionEvent rows.
type EventRecord struct {
	Nickname  string
	SessionID string
	Time      time.Time
	Kind      string
	Payload   any
}

// ProfileSummary is one row of the save-selection screen.
type ProfileSummary struct {
	Nickname string
	Level    int
	XP       int
	SavedAt  time.Time
}

// ProfileSnapshot is the JSON shape written to save files and exchanged
// with the storage backends.
type ProfileSnapshot struct {
	Nickname          string            `json:"nickname"`
	XP                int               `json:"xp"`
	Level             int               `json:"level"`
	Reputation        int               `json:"reputation"`
	Credits           int               `json:"credits"`
	Badges            []string          `json:"badges"`
	UnlockedTools     []string          `json:"unlockedTools"`
	UnlockedMissions  []string          `json:"unlockedMissions"`
	CompletedMissions []string          `json:"completedMissions"`
	Missions          []MissionSnapshot `json:"missions"`
	Inbox             []MailSnapshot    `json:"inbox"`
	SavedAt           time.Time         `json:"savedAt"`
}

// MissionSnapshot is per-mission progress inside a save file.
type MissionSnapshot struct {
	MissionID  string            `json:"missionId"`
	Objectives map[string]int    `json:"objectives"`
	Answers    map[string]string `json:"answers"`
	Complete   bool              `json:"complete"`
}

// MailSnapshot is a delivered mail inside a save file.
type MailSnapshot struct {
	MailID        string `json:"mailId"`
	Sender        string `json:"sender"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	MissionID     string `json:"missionId"`
	DeliveredAtMs int64  `json:"deliveredAtMs"`
	Read          bool   `json:"read"`
}

// ToRow converts a snapshot into a Profile database row. Slice fields are
// marshalled into JSON columns.
func (s *ProfileSnapshot) ToRow() (Profile, error) {
	badges, err := json.Marshal(orEmpty(s.Badges))
	if err != nil {
		return Profile{}, err
	}
	tools, err := json.Marshal(orEmpty(s.UnlockedTools))
	if err != nil {
		return Profile{}, err
	}
	unlocked, err := json.Marshal(orEmpty(s.UnlockedMissions))
	if err != nil {
		return Profile{}, err
	}
	completed, err := json.Marshal(orEmpty(s.CompletedMissions))
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		Nickname:          s.Nickname,
		XP:                s.XP,
		Level:             s.Level,
		Reputation:        s.Reputation,
		Credits:           s.Credits,
		Badges:            datatypes.JSON(badges),
		UnlockedTools:     datatypes.JSON(tools),
		UnlockedMissions:  datatypes.JSON(unlocked),
		CompletedMissions: datatypes.JSON(completed),
		LastPlayedAt:      sql.NullTime{Time: s.SavedAt, Valid: !s.SavedAt.IsZero()},
	}, nil
}

// FromRow converts a Profile database row back into a snapshot.
func FromRow(p Profile) (ProfileSnapshot, error) {
	s := ProfileSnapshot{
		Nickname:   p.Nickname,
		XP:         p.XP,
		Level:      p.Level,
		Reputation: p.Reputation,
		Credits:    p.Credits,
	}
	for _, pair := range []struct {
		raw datatypes.JSON
		dst *[]string
	}{
		{p.Badges, &s.Badges},
		{p.UnlockedTools, &s.UnlockedTools},
		{p.UnlockedMissions, &s.UnlockedMissions},
		{p.CompletedMissions, &s.CompletedMissions},
	} {
		if len(pair.raw) == 0 {
			*pair.dst = []string{}
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return ProfileSnapshot{}, err
		}
	}
	if p.LastPlayedAt.Valid {
		s.SavedAt = p.LastPlayedAt.Time
	}
	return s, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
