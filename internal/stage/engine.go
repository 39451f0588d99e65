// internal/stage/engine.go
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dohaibbur/CYBER-HERO/internal/content"
	"github.com/dohaibbur/CYBER-HERO/internal/dispatcher"
	"github.com/dohaibbur/CYBER-HERO/internal/mission"
	"github.com/dohaibbur/CYBER-HERO/internal/model"
	"github.com/dohaibbur/CYBER-HERO/internal/netsim"
	"github.com/dohaibbur/CYBER-HERO/internal/notify"
	"github.com/dohaibbur/CYBER-HERO/internal/progression"
	"github.com/dohaibbur/CYBER-HERO/internal/queue"
	"github.com/dohaibbur/CYBER-HERO/internal/storage"
	"github.com/dohaibbur/CYBER-HERO/internal/terminal"
	"github.com/dohaibbur/CYBER-HERO/internal/vfs"
	"github.com/dohaibbur/CYBER-HERO/pkg/core"
)

// Engine event names published through the dispatcher.
const (
	EventStageChanged       = "stage.changed"
	EventMailDelivered      = "mail.delivered"
	EventMailRead           = "mail.read"
	EventMissionStarted     = "mission.started"
	EventMissionCompleted   = "mission.completed"
	EventObjectiveCompleted = "objective.completed"
	EventProfileSaved       = "profile.saved"
)

const defaultAnimationMs = 8000

// Config wires an Engine.
type Config struct {
	Library  *content.Library
	Backend  storage.Backend
	Events   *dispatcher.Dispatcher
	Levels   *progression.System
	Logger   *slog.Logger
	EduNotes bool
	Autosave bool
	// AnimationMs is the intro animation length on the logical clock.
	AnimationMs int64
}

// Engine is the game state machine. It owns the logical clock, the active
// profile and mission, and routes intents to the current stage. Not safe
// for concurrent use; the driver loop submits intents and calls Advance
// from one goroutine. Sample is the one exception: it reads a published
// copy of the stage and clock and may be called from any goroutine.
type Engine struct {
	logger  *slog.Logger
	events  *dispatcher.Dispatcher
	library *content.Library
	levels  *progression.System
	backend storage.Backend

	profile  *progression.Profile
	missions *mission.Context
	mail     *notify.Queue
	intents  *queue.Queue[core.Intent]

	clock   int64
	current core.StageKind
	stages  map[core.StageKind]Stage

	fs      *vfs.FS
	net     *netsim.Simulator
	session *terminal.Session

	activeMissionID string
	// missionStates carries persisted per-mission progress, including
	// missions not currently active.
	missionStates map[string]model.MissionSnapshot

	eduNotes        bool
	autosave        bool
	animationMs     int64
	animationEndsAt int64
	animationDone   bool
	returnTo        core.StageKind
	status          string

	observed atomic.Pointer[observedState]

	transitions metric.Int64Counter
	fallbacks   metric.Int64Counter
}

// observedState is the copy of engine state published for readers on
// other goroutines.
type observedState struct {
	stage core.StageKind
	clock int64
}

// New creates an Engine on the Menu stage with no profile loaded.
func New(cfg Config) (*Engine, error) {
	if cfg.Library == nil {
		return nil, fmt.Errorf("stage: content library is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Levels == nil {
		cfg.Levels = progression.New(cfg.Logger)
	}
	if cfg.AnimationMs <= 0 {
		cfg.AnimationMs = defaultAnimationMs
	}

	e := &Engine{
		logger:        cfg.Logger,
		events:        cfg.Events,
		library:       cfg.Library,
		levels:        cfg.Levels,
		backend:       cfg.Backend,
		intents:       queue.New[core.Intent](),
		current:       core.StageMenu,
		missionStates: make(map[string]model.MissionSnapshot),
		eduNotes:      cfg.EduNotes,
		autosave:      cfg.Autosave,
		animationMs:   cfg.AnimationMs,
		returnTo:      core.StageMenu,
	}

	e.stages = map[core.StageKind]Stage{
		core.StageMenu:      &menuStage{},
		core.StageAnimation: &animationStage{},
		core.StageWelcome:   &welcomeStage{},
		core.StageDesktop:   &desktopStage{},
		core.StageForum:     &forumStage{},
		core.StageInbox:     &inboxStage{},
		core.StageMission:   &missionStage{},
		core.StageSettings:  &settingsStage{},
		core.StageCredits:   &creditsStage{},
	}

	m := meter()
	var err error
	e.transitions, err = m.Int64Counter(
		"stage.transitions",
		metric.WithDescription("Total stage transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}
	e.fallbacks, err = m.Int64Counter(
		"stage.fallbacks",
		metric.WithDescription("Transitions redirected to Desktop because the target stage was unknown"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fallbacks counter: %w", err)
	}

	e.stages[e.current].OnEnter(e)
	e.publish()
	return e, nil
}

// Clock returns the logical clock in milliseconds.
func (e *Engine) Clock() int64 { return e.clock }

// Current returns the active stage kind.
func (e *Engine) Current() core.StageKind { return e.current }

// Sample returns the stage and clock as of the last publish. Safe to call
// from any goroutine.
func (e *Engine) Sample() (core.StageKind, int64) {
	s := e.observed.Load()
	if s == nil {
		return core.StageMenu, 0
	}
	return s.stage, s.clock
}

func (e *Engine) publish() {
	e.observed.Store(&observedState{stage: e.current, clock: e.clock})
}

// Profile returns the loaded profile, nil before NewGame or LoadGame.
func (e *Engine) Profile() *progression.Profile { return e.profile }

// NewGame starts a fresh profile and schedules the scripted opening mail.
func (e *Engine) NewGame(nickname string) {
	e.profile = &progression.Profile{Nickname: nickname, Level: 1}
	e.missions = mission.NewContext()
	e.mail = notify.New(e.logger)
	e.missionStates = make(map[string]model.MissionSnapshot)
	e.activeMissionID = ""
	e.session = nil
	e.clock = 0

	for _, mail := range e.library.Emails {
		e.mail.Schedule(notify.Notification{
			ID:        mail.ID,
			Sender:    mail.Sender,
			Subject:   mail.Subject,
			Body:      mail.Body,
			MissionID: mail.MissionID,
		}, e.clock+mail.DelayMs)
	}
	e.publish()
	e.logger.Info("new game", "nickname", nickname)
}

// LoadGame restores a saved profile. A missing or unreadable save is an
// error; no default profile is fabricated.
func (e *Engine) LoadGame(nickname string) error {
	if e.backend == nil {
		return fmt.Errorf("stage: no storage backend configured")
	}
	snap, err := e.backend.LoadProfile(nickname)
	if err != nil {
		return fmt.Errorf("loading profile %q: %w", nickname, err)
	}

	e.profile = &progression.Profile{
		Nickname:          snap.Nickname,
		XP:                snap.XP,
		Level:             snap.Level,
		Reputation:        snap.Reputation,
		Credits:           snap.Credits,
		Badges:            snap.Badges,
		UnlockedTools:     snap.UnlockedTools,
		UnlockedMissions:  snap.UnlockedMissions,
		CompletedMissions: snap.CompletedMissions,
	}
	if e.profile.Level == 0 {
		e.profile.Level = 1
	}

	e.missions = mission.NewContext()
	e.mail = notify.New(e.logger)
	e.missionStates = make(map[string]model.MissionSnapshot)
	e.activeMissionID = ""
	e.session = nil
	e.clock = 0

	for _, m := range snap.Missions {
		e.missionStates[m.MissionID] = m
	}

	var delivered []notify.Notification
	for _, mail := range snap.Inbox {
		delivered = append(delivered, notify.Notification{
			ID:        mail.MailID,
			Sender:    mail.Sender,
			Subject:   mail.Subject,
			Body:      mail.Body,
			MissionID: mail.MissionID,
			DeliverAt: mail.DeliveredAtMs,
			Delivered: true,
			Read:      mail.Read,
		})
	}
	e.mail.Restore(delivered, nil)
	e.rescheduleEntitledMail(snap)
	e.publish()

	e.logger.Info("game loaded", "nickname", nickname, "xp", snap.XP)
	return nil
}

// rescheduleEntitledMail re-queues scripted mail the profile has earned
// but never received, so a save taken before delivery loses nothing.
func (e *Engine) rescheduleEntitledMail(snap model.ProfileSnapshot) {
	has := make(map[string]bool)
	for _, mail := range snap.Inbox {
		has[mail.MailID] = true
	}
	schedule := func(mail content.Email) {
		if !has[mail.ID] {
			e.mail.Schedule(notify.Notification{
				ID:        mail.ID,
				Sender:    mail.Sender,
				Subject:   mail.Subject,
				Body:      mail.Body,
				MissionID: mail.MissionID,
			}, e.clock+mail.DelayMs)
		}
	}
	for _, mail := range e.library.Emails {
		schedule(mail)
	}
	for _, m := range e.library.Missions {
		if m.FollowUp != nil && e.profile.HasCompleted(m.ID) {
			if followUp, ok := e.library.Email(m.FollowUp.ID); ok {
				schedule(followUp)
			}
		}
	}
}

// Save writes the current game to the storage backend.
func (e *Engine) Save() error {
	if e.backend == nil {
		return fmt.Errorf("stage: no storage backend configured")
	}
	if e.profile == nil {
		return fmt.Errorf("stage: nothing to save")
	}
	e.persistActiveMission()

	snap := model.ProfileSnapshot{
		Nickname:          e.profile.Nickname,
		XP:                e.profile.XP,
		Level:             e.profile.Level,
		Reputation:        e.profile.Reputation,
		Credits:           e.profile.Credits,
		Badges:            e.profile.Badges,
		UnlockedTools:     e.profile.UnlockedTools,
		UnlockedMissions:  e.profile.UnlockedMissions,
		CompletedMissions: e.profile.CompletedMissions,
		SavedAt:           time.Now().UTC(),
	}
	for _, m := range e.library.Missions {
		if state, ok := e.missionStates[m.ID]; ok {
			snap.Missions = append(snap.Missions, state)
		}
	}
	if e.mail != nil {
		for _, n := range e.mail.Inbox() {
			snap.Inbox = append(snap.Inbox, model.MailSnapshot{
				MailID:        n.ID,
				Sender:        n.Sender,
				Subject:       n.Subject,
				Body:          n.Body,
				MissionID:     n.MissionID,
				DeliveredAtMs: n.DeliverAt,
				Read:          n.Read,
			})
		}
	}

	if err := e.backend.SaveProfile(snap); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	e.emit(EventProfileSaved, snap.Nickname)
	e.logger.Info("profile saved", "nickname", snap.Nickname)
	return nil
}

// Submit queues a player intent for the next Advance.
func (e *Engine) Submit(intent core.Intent) {
	e.intents.Push(intent)
}

// Advance drains queued intents, then moves the logical clock by dt
// milliseconds and runs everything the elapsed time owes: the animation
// timer and mail delivery.
func (e *Engine) Advance(dt int64) {
	for {
		intent, ok := e.intents.Pop()
		if !ok {
			break
		}
		e.handle(intent)
	}

	if dt < 0 {
		dt = 0
	}
	e.clock += dt

	if e.current == core.StageAnimation && e.clock >= e.animationEndsAt {
		e.animationDone = true
		e.transitionTo(core.StageWelcome)
	}

	if e.mail != nil {
		for _, n := range e.mail.Poll(e.clock) {
			e.emit(EventMailDelivered, n.ID)
			e.logger.Info("mail delivered", "id", n.ID, "subject", n.Subject)
		}
	}
	e.publish()
}

func (e *Engine) handle(intent core.Intent) {
	if _, ok := intent.(core.EscapeIntent); ok {
		e.escape()
		return
	}
	st := e.stages[e.current]
	tr, err := st.OnIntent(e, intent)
	if err != nil {
		e.logger.Warn("intent rejected", "stage", e.current.String(), "error", err)
		return
	}
	if tr.Switch {
		e.transitionTo(tr.To)
	}
}

// escape applies the total escape map for the current stage.
func (e *Engine) escape() {
	switch e.current {
	case core.StageMenu:
		return // escape on the menu does nothing
	case core.StageAnimation:
		// skipping is a clock jump to the animation's end
		e.clock = e.animationEndsAt
		e.animationDone = true
		e.transitionTo(core.StageWelcome)
		return
	case core.StageSettings:
		e.transitionTo(e.returnTo)
		return
	}
	target, ok := escapeTargets[e.current]
	if !ok {
		target = core.StageDesktop
	}
	e.transitionTo(target)
}

// transitionTo switches stages. An unknown target resolves to Desktop,
// logged and counted, so the machine can never leave the defined set.
func (e *Engine) transitionTo(next core.StageKind) {
	if _, ok := e.stages[next]; !ok || !next.Valid() {
		e.logger.Warn("unknown stage, falling back to desktop", "target", uint8(next))
		e.fallbacks.Add(context.Background(), 1)
		next = core.StageDesktop
	}

	prev := e.current
	e.stages[prev].OnExit(e)
	e.current = next
	e.stages[next].OnEnter(e)

	e.transitions.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("from", prev.String()),
			attribute.String("to", next.String()),
		))
	e.publish()
	e.emit(EventStageChanged, next.String())
	e.logger.Debug("stage changed", "from", prev.String(), "to", next.String())
}

// StartMission builds the mission sandbox (filesystem, network, terminal)
// and makes its tracker active. Restores prior progress when resuming.
func (e *Engine) StartMission(id string) error {
	m, ok := e.library.Mission(id)
	if !ok {
		return fmt.Errorf("unknown mission %s", id)
	}

	fs := vfs.New()
	if err := fs.MkdirAll("/downloads"); err != nil {
		return err
	}
	for _, seed := range e.library.MissionFiles(id) {
		dir := parentDir(seed.Path)
		if err := fs.MkdirAll(dir); err != nil {
			return err
		}
		err := fs.WriteFile(seed.Path, vfs.File{
			Name:         baseName(seed.Path),
			Content:      seed.Content,
			Hidden:       seed.Hidden,
			RequiredTool: seed.RequiredTool,
		})
		if err != nil {
			return err
		}
	}

	var sim *netsim.Simulator
	if m.Network != "" {
		topo, ok := e.library.Network(m.Network)
		if !ok {
			return fmt.Errorf("mission %s references unknown network %s", id, m.Network)
		}
		var err error
		sim, err = netsim.New(topo, e.logger)
		if err != nil {
			return fmt.Errorf("building network for %s: %w", id, err)
		}
	}

	if e.missions == nil {
		e.missions = mission.NewContext()
	}
	tracker := mission.NewTracker(m, e.logger)
	e.fs = fs
	e.net = sim
	e.session = terminal.NewSession(terminal.Deps{
		FS:       fs,
		Net:      sim,
		Profile:  e.profile,
		Missions: e.missions,
		Logger:   e.logger,
		EduNotes: e.eduNotes,
	})

	if prev, ok := e.missionStates[id]; ok {
		tracker.Restore(prev.Objectives)
		e.session.RestoreAnswers(prev.Answers)
	}
	e.missions.SetActive(tracker)
	e.activeMissionID = id

	e.emit(EventMissionStarted, id)
	e.logger.Info("mission started", "mission", id)
	return nil
}

// AvailableMissions lists missions whose trigger is satisfied and which
// are not yet complete, in campaign order.
func (e *Engine) AvailableMissions() []mission.Mission {
	if e.profile == nil {
		return nil
	}
	var out []mission.Mission
	for _, m := range e.library.Missions {
		if e.profile.HasCompleted(m.ID) {
			continue
		}
		if e.triggerSatisfied(m.Trigger) {
			out = append(out, m)
		}
	}
	return out
}

func (e *Engine) triggerSatisfied(t mission.Trigger) bool {
	switch t.Kind {
	case mission.TriggerImmediate:
		return true
	case mission.TriggerMailRead:
		return e.mail != nil && e.mail.IsRead(t.MailID)
	case mission.TriggerMissionComplete:
		return e.profile.HasCompleted(t.MissionID)
	}
	return false
}

// runCommand executes a terminal line and grades the active mission
// against the result.
func (e *Engine) runCommand(line string) {
	if e.session == nil {
		return
	}
	e.session.Execute(line)
	e.grade()
}

// grade evaluates objectives and applies completion effects. The reward
// is applied exactly once per mission however often grading runs.
func (e *Engine) grade() {
	tracker := e.missions.Active()
	if tracker == nil || e.session == nil {
		return
	}

	for _, o := range tracker.Evaluate(e.session) {
		e.emit(EventObjectiveCompleted, o.ID)
	}
	e.persistActiveMission()

	if !tracker.ConsumeCompletion() {
		return
	}

	m := tracker.Mission()
	e.levels.ApplyReward(e.profile, m.Reward)
	e.levels.MarkMissionComplete(e.profile, m.ID)

	state := e.missionStates[m.ID]
	state.Complete = true
	e.missionStates[m.ID] = state

	if m.FollowUp != nil && e.mail != nil {
		e.mail.Schedule(notify.Notification{
			ID:        m.FollowUp.ID,
			Sender:    m.FollowUp.Sender,
			Subject:   m.FollowUp.Subject,
			Body:      m.FollowUp.Body,
			MissionID: m.ID,
		}, e.clock+m.FollowUp.DelayMs)
	}

	e.emit(EventMissionCompleted, m.ID)
	e.logger.Info("mission complete", "mission", m.ID, "xp", m.Reward.XP)

	if e.autosave && e.backend != nil {
		if err := e.Save(); err != nil {
			e.logger.Error("autosave failed", "error", err)
		}
	}
}

// persistActiveMission folds the live tracker and session state into the
// saved mission map.
func (e *Engine) persistActiveMission() {
	if e.missions == nil || e.activeMissionID == "" {
		return
	}
	tracker := e.missions.Active()
	if tracker == nil {
		return
	}
	state := model.MissionSnapshot{
		MissionID:  e.activeMissionID,
		Objectives: tracker.Snapshot(),
		Complete:   tracker.Complete(),
	}
	if e.session != nil {
		state.Answers = e.session.Answers()
	}
	e.missionStates[e.activeMissionID] = state
}

// ReadMail marks a delivered mail as read. Reading is what satisfies
// mail-read mission triggers.
func (e *Engine) ReadMail(id string) error {
	if e.mail == nil {
		return fmt.Errorf("no mailbox")
	}
	if err := e.mail.MarkRead(id); err != nil {
		return err
	}
	e.emit(EventMailRead, id)
	return nil
}

func (e *Engine) emit(name string, payload any) {
	if e.events == nil {
		return
	}
	if !e.events.HasHandler(name) {
		return
	}
	if _, err := e.events.Dispatch(dispatcher.Event{
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
	}); err != nil {
		e.logger.Warn("event handler failed", "event", name, "error", err)
	}
}

func (e *Engine) setStatus(s string) { e.status = s }

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			if i == 0 {
				return "/"
			}
			return path[:i]
		}
	}
	return "/"
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
