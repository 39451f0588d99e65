// internal/stage/stages.go
package stage

import (
	"fmt"
	"strings"

	"github.com/dohaibbur/CYBER-HERO/internal/mission"
	"github.com/dohaibbur/CYBER-HERO/pkg/core"
)

// menuStage is the save-slot picker. Escape does nothing here.
type menuStage struct{}

func (menuStage) Kind() core.StageKind { return core.StageMenu }
func (menuStage) OnEnter(e *Engine)    { e.setStatus("main menu") }
func (menuStage) OnExit(e *Engine)     {}

func (menuStage) OnIntent(e *Engine, intent core.Intent) (Transition, error) {
	click, ok := intent.(core.ClickIntent)
	if !ok {
		return Stay(), nil
	}
	switch {
	case strings.HasPrefix(click.Target, "new:"):
		nickname := strings.TrimPrefix(click.Target, "new:")
		if nickname == "" {
			return Stay(), fmt.Errorf("nickname is required")
		}
		e.NewGame(nickname)
		return Goto(core.StageAnimation), nil
	case strings.HasPrefix(click.Target, "load:"):
		nickname := strings.TrimPrefix(click.Target, "load:")
		if err := e.LoadGame(nickname); err != nil {
			return Stay(), err
		}
		// a loaded game resumes on the desktop, the intro plays once
		return Goto(core.StageDesktop), nil
	case click.Target == "settings":
		e.returnTo = core.StageMenu
		return Goto(core.StageSettings), nil
	case click.Target == "credits":
		return Goto(core.StageCredits), nil
	}
	return Stay(), nil
}

func (menuStage) Snapshot(e *Engine) StageSnapshot {
	snap := StageSnapshot{StatusLine: e.status}
	if e.backend != nil {
		if profiles, err := e.backend.ListProfiles(); err == nil {
			view := make(map[string]string, len(profiles))
			for _, p := range profiles {
				view[p.Nickname] = fmt.Sprintf("level %d, %d xp", p.Level, p.XP)
			}
			snap.View = view
		}
	}
	return snap
}

// animationStage plays the intro on the logical clock. Escape skips by
// jumping the clock to the animation's end; the engine handles that.
type animationStage struct{}

func (animationStage) Kind() core.StageKind { return core.StageAnimation }

func (animationStage) OnEnter(e *Engine) {
	e.animationEndsAt = e.clock + e.animationMs
	e.animationDone = false
	e.setStatus("")
}

func (animationStage) OnExit(e *Engine) {}

func (animationStage) OnIntent(e *Engine, intent core.Intent) (Transition, error) {
	return Stay(), nil
}

func (animationStage) Snapshot(e *Engine) StageSnapshot {
	remaining := e.animationEndsAt - e.clock
	if remaining < 0 {
		remaining = 0
	}
	return StageSnapshot{
		StatusLine: "intro",
		View:       map[string]string{"remainingMs": fmt.Sprintf("%d", remaining)},
	}
}

// welcomeStage greets a new player. Any input moves on.
type welcomeStage struct{}

func (welcomeStage) Kind() core.StageKind { return core.StageWelcome }
func (welcomeStage) OnEnter(e *Engine)    { e.setStatus("welcome") }
func (welcomeStage) OnExit(e *Engine)     {}

func (welcomeStage) OnIntent(e *Engine, intent core.Intent) (Transition, error) {
	switch intent.(type) {
	case core.ClickIntent, core.KeyIntent:
		return Goto(core.StageDesktop), nil
	}
	return Stay(), nil
}

func (welcomeStage) Snapshot(e *Engine) StageSnapshot {
	nickname := ""
	if e.profile != nil {
		nickname = e.profile.Nickname
	}
	return StageSnapshot{
		StatusLine: "welcome",
		View:       map[string]string{"nickname": nickname},
	}
}

// desktopStage is the hub between missions, mail, and settings.
type desktopStage struct{}

func (desktopStage) Kind() core.StageKind { return core.StageDesktop }
func (desktopStage) OnEnter(e *Engine)    { e.setStatus("desktop") }
func (desktopStage) OnExit(e *Engine)     {}

func (desktopStage) OnIntent(e *Engine, intent core.Intent) (Transition, error) {
	click, ok := intent.(core.ClickIntent)
	if !ok {
		return Stay(), nil
	}
	switch click.Target {
	case "inbox":
		return Goto(core.StageInbox), nil
	case "forum":
		return Goto(core.StageForum), nil
	case "credits":
		return Goto(core.StageCredits), nil
	case "settings":
		e.returnTo = core.StageDesktop
		return Goto(core.StageSettings), nil
	case "save":
		if err := e.Save(); err != nil {
			return Stay(), err
		}
		e.setStatus("game saved")
		return Stay(), nil
	case "missions":
		available := e.AvailableMissions()
		if len(available) == 0 {
			e.setStatus("no missions available yet, check your inbox")
			return Stay(), nil
		}
		if err := e.StartMission(available[0].ID); err != nil {
			return Stay(), err
		}
		return Goto(core.StageMission), nil
	}
	return Stay(), nil
}

func (desktopStage) Snapshot(e *Engine) StageSnapshot {
	view := map[string]string{}
	for _, m := range e.AvailableMissions() {
		view[m.ID] = m.Title
	}
	return StageSnapshot{StatusLine: e.status, View: view}
}

// inboxStage lists delivered mail. Reading a mail can unlock a mission.
type inboxStage struct{}

func (inboxStage) Kind() core.StageKind { return core.StageInbox }
func (inboxStage) OnEnter(e *Engine)    { e.setStatus("inbox") }
func (inboxStage) OnExit(e *Engine)     {}

func (inboxStage) OnIntent(e *Engine, intent core.Intent) (Transition, error) {
	click, ok := intent.(core.ClickIntent)
	if !ok {
		return Stay(), nil
	}
	if id, found := strings.CutPrefix(click.Target, "read:"); found {
		if err := e.ReadMail(id); err != nil {
			return Stay(), err
		}
	}
	return Stay(), nil
}

func (inboxStage) Snapshot(e *Engine) StageSnapshot {
	line := "inbox"
	if e.mail != nil {
		if unread := e.mail.Unread(); unread > 0 {
			line = fmt.Sprintf("inbox (%d unread)", unread)
		}
	}
	return StageSnapshot{StatusLine: line}
}

// forumStage is a static read-only board of community posts.
type forumStage struct{}

func (forumStage) Kind() core.StageKind { return core.StageForum }
func (forumStage) OnEnter(e *Engine)    { e.setStatus("forum") }
func (forumStage) OnExit(e *Engine)     {}

func (forumStage) OnIntent(e *Engine, intent core.Intent) (Transition, error) {
	return Stay(), nil
}

func (forumStage) Snapshot(e *Engine) StageSnapshot {
	return StageSnapshot{
		StatusLine: "forum",
		View: map[string]string{
			"pinned": "Welcome to the CYBER HERO community board. Be kind, stay legal.",
		},
	}
}

// missionStage routes terminal lines into the active session and grades
// after each command.
type missionStage struct{}

func (missionStage) Kind() core.StageKind { return core.StageMission }
func (missionStage) OnEnter(e *Engine)    { e.setStatus("mission") }

func (missionStage) OnExit(e *Engine) {
	e.persistActiveMission()
}

func (missionStage) OnIntent(e *Engine, intent core.Intent) (Transition, error) {
	cmd, ok := intent.(core.CommandIntent)
	if !ok {
		return Stay(), nil
	}
	if e.session == nil {
		return Stay(), fmt.Errorf("no active mission")
	}
	e.runCommand(cmd.Line)
	if e.session.Exited() {
		return Goto(core.StageDesktop), nil
	}
	return Stay(), nil
}

func (missionStage) Snapshot(e *Engine) StageSnapshot {
	tracker := activeTracker(e)
	if tracker == nil {
		return StageSnapshot{StatusLine: "mission"}
	}
	m := tracker.Mission()
	return StageSnapshot{
		StatusLine: fmt.Sprintf("%s (%.0f%%)", m.Title, tracker.Percent()),
		View:       map[string]string{"briefing": m.Briefing},
	}
}

// settingsStage toggles player options. Escape returns to the stage that
// opened it.
type settingsStage struct{}

func (settingsStage) Kind() core.StageKind { return core.StageSettings }
func (settingsStage) OnEnter(e *Engine)    { e.setStatus("settings") }
func (settingsStage) OnExit(e *Engine)     {}

func (settingsStage) OnIntent(e *Engine, intent core.Intent) (Transition, error) {
	click, ok := intent.(core.ClickIntent)
	if !ok {
		return Stay(), nil
	}
	switch click.Target {
	case "edunotes":
		e.eduNotes = !e.eduNotes
		return Stay(), nil
	case "back":
		return Goto(e.returnTo), nil
	}
	return Stay(), nil
}

func (settingsStage) Snapshot(e *Engine) StageSnapshot {
	return StageSnapshot{
		StatusLine: "settings",
		View: map[string]string{
			"edunotes": fmt.Sprintf("%t", e.eduNotes),
		},
	}
}

// creditsStage rolls the credits. Any input returns to the menu.
type creditsStage struct{}

func (creditsStage) Kind() core.StageKind { return core.StageCredits }
func (creditsStage) OnEnter(e *Engine)    { e.setStatus("credits") }
func (creditsStage) OnExit(e *Engine)     {}

func (creditsStage) OnIntent(e *Engine, intent core.Intent) (Transition, error) {
	return Goto(core.StageMenu), nil
}

func (creditsStage) Snapshot(e *Engine) StageSnapshot {
	return StageSnapshot{StatusLine: "credits"}
}

func activeTracker(e *Engine) *mission.Tracker {
	if e.missions == nil {
		return nil
	}
	return e.missions.Active()
}

// Snapshot assembles the full render state for the UI.
func (e *Engine) Snapshot() core.Snapshot {
	stageSnap := e.stages[e.current].Snapshot(e)
	snap := core.Snapshot{
		Stage:         e.current,
		Clock:         e.clock,
		StatusLine:    stageSnap.StatusLine,
		AnimationDone: e.animationDone,
	}

	switch e.current {
	case core.StageMenu:
		for nickname := range stageSnap.View {
			snap.SaveSlots = append(snap.SaveSlots, nickname)
		}
	case core.StageSettings:
		snap.SettingsView = stageSnap.View
	}

	if e.profile != nil {
		snap.Profile = core.ProfileView{
			Nickname:          e.profile.Nickname,
			Level:             e.profile.Level,
			LevelName:         e.levels.LevelName(e.profile.Level),
			XP:                e.profile.XP,
			Reputation:        e.profile.Reputation,
			Credits:           e.profile.Credits,
			Badges:            e.profile.Badges,
			UnlockedTools:     e.profile.UnlockedTools,
			UnlockedMissions:  e.profile.UnlockedMissions,
			CompletedMissions: e.profile.CompletedMissions,
		}
	}

	if tracker := activeTracker(e); tracker != nil {
		snap.Mission = e.missionView(tracker)
	}

	if e.session != nil {
		var lines []string
		for _, out := range e.session.Scrollback() {
			lines = append(lines, out.Text)
		}
		snap.Terminal = &core.TerminalView{
			Prompt:  e.session.Prompt(),
			Lines:   lines,
			History: e.session.History(),
		}
	}

	if e.mail != nil {
		for _, n := range e.mail.Inbox() {
			snap.Inbox = append(snap.Inbox, core.NotificationView{
				ID:          n.ID,
				Sender:      n.Sender,
				Subject:     n.Subject,
				Body:        n.Body,
				MissionID:   n.MissionID,
				DeliveredAt: n.DeliverAt,
				Read:        n.Read,
			})
		}
		snap.UnreadCount = e.mail.Unread()
	}

	return snap
}

func (e *Engine) missionView(tracker *mission.Tracker) *core.MissionView {
	m := tracker.Mission()
	view := &core.MissionView{
		ID:       m.ID,
		Title:    m.Title,
		Complete: tracker.Complete(),
		Percent:  tracker.Percent(),
	}
	for _, o := range m.Objectives {
		done := tracker.IsComplete(o.ID)
		ov := core.ObjectiveView{
			ID:       o.ID,
			Title:    o.Title,
			Hint:     o.Hint,
			Complete: done,
			Target:   1,
		}
		if done {
			ov.Progress = 1
		}
		// counting predicates expose live progress toward the target
		if o.Predicate.Kind == mission.PredHostsDiscovered && o.Predicate.Count > 0 {
			ov.Target = o.Predicate.Count
			if e.session != nil {
				ov.Progress = min(e.session.DiscoveredHostCount(), ov.Target)
			}
		}
		view.Objectives = append(view.Objectives, ov)
	}
	return view
}
