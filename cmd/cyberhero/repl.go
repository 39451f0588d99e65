// cmd/cyberhero/repl.go
package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dohaibbur/CYBER-HERO/internal/stage"
	"github.com/dohaibbur/CYBER-HERO/pkg/core"
)

const replHelp = `commands:
  new <nickname>     start a new game
  load <nickname>    load a saved game
  save               save the current game
  click <target>     click a named target (inbox, missions, settings, ...)
  key <key>          press a key
  esc                escape / back
  read <id>          read a mail by id
  show               print the current screen
  tick <ms>          advance the game clock manually
  help               this text
  quit               exit

anything else is sent to the in-game terminal while on a mission.`

// runREPL drives the engine from a line-oriented console. The logical
// clock follows the wall clock between inputs; "tick" jumps it manually.
func runREPL(eng *stage.Engine, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "CYBER HERO", Version)
	fmt.Fprintln(out, replHelp)
	fmt.Fprintln(out)

	r := renderer{out: out}
	r.render(eng.Snapshot())

	scanner := bufio.NewScanner(in)
	last := time.Now()
	for {
		fmt.Fprint(out, prompt(eng))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		now := time.Now()
		elapsed := now.Sub(last).Milliseconds()
		last = now

		if line == "" {
			eng.Advance(elapsed)
			r.render(eng.Snapshot())
			continue
		}

		fields := strings.Fields(line)
		cmd, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		switch cmd {
		case "quit", "q":
			return nil
		case "help":
			fmt.Fprintln(out, replHelp)
			continue
		case "new":
			eng.Submit(core.ClickIntent{Target: "new:" + rest})
		case "load":
			eng.Submit(core.ClickIntent{Target: "load:" + rest})
		case "save":
			if err := eng.Save(); err != nil {
				fmt.Fprintln(out, "save failed:", err)
				continue
			}
			fmt.Fprintln(out, "saved")
			continue
		case "click":
			eng.Submit(core.ClickIntent{Target: rest})
		case "key":
			eng.Submit(core.KeyIntent{Key: rest})
		case "esc":
			eng.Submit(core.EscapeIntent{})
		case "read":
			if err := eng.ReadMail(rest); err != nil {
				fmt.Fprintln(out, "read failed:", err)
				continue
			}
		case "show":
			eng.Advance(elapsed)
			r.renderFull(eng.Snapshot())
			continue
		case "tick":
			ms, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				fmt.Fprintln(out, "tick: bad duration:", rest)
				continue
			}
			eng.Advance(ms)
			r.render(eng.Snapshot())
			continue
		default:
			if eng.Current() == core.StageMission {
				eng.Submit(core.CommandIntent{Line: line})
			} else {
				fmt.Fprintf(out, "unknown command %q, try \"help\"\n", cmd)
				continue
			}
		}

		eng.Advance(elapsed)
		r.render(eng.Snapshot())
	}
}

func prompt(eng *stage.Engine) string {
	return "[" + eng.Current().String() + "] "
}

// renderer prints snapshot changes, echoing only terminal lines that are
// new since the previous render.
type renderer struct {
	out          io.Writer
	lastStage    core.StageKind
	lastStatus   string
	lastLines    int
	lastUnread   int
	renderedOnce bool
}

func (r *renderer) render(snap core.Snapshot) {
	if !r.renderedOnce || snap.Stage != r.lastStage || snap.StatusLine != r.lastStatus {
		fmt.Fprintf(r.out, "-- %s --\n", snap.StatusLine)
	}
	if snap.Terminal != nil {
		// a fresh mission session starts a new scrollback
		if r.lastLines > len(snap.Terminal.Lines) {
			r.lastLines = 0
		}
		for _, line := range snap.Terminal.Lines[r.lastLines:] {
			fmt.Fprintln(r.out, line)
		}
		r.lastLines = len(snap.Terminal.Lines)
	}
	if snap.UnreadCount > r.lastUnread {
		fmt.Fprintf(r.out, "* you have %d unread mail\n", snap.UnreadCount)
	}
	r.lastStage = snap.Stage
	r.lastStatus = snap.StatusLine
	r.lastUnread = snap.UnreadCount
	r.renderedOnce = true
}

func (r *renderer) renderFull(snap core.Snapshot) {
	fmt.Fprintf(r.out, "stage: %s  clock: %dms\n", snap.Stage, snap.Clock)
	if snap.Profile.Nickname != "" {
		fmt.Fprintf(r.out, "player: %s  level %d (%s)  %d xp  %d credits\n",
			snap.Profile.Nickname, snap.Profile.Level, snap.Profile.LevelName,
			snap.Profile.XP, snap.Profile.Credits)
		if len(snap.Profile.UnlockedTools) > 0 {
			fmt.Fprintf(r.out, "tools: %s\n", strings.Join(snap.Profile.UnlockedTools, ", "))
		}
	}
	if len(snap.SaveSlots) > 0 {
		fmt.Fprintf(r.out, "saves: %s\n", strings.Join(snap.SaveSlots, ", "))
	}
	for _, n := range snap.Inbox {
		marker := " "
		if !n.Read {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s mail %s from %s: %s\n", marker, n.ID, n.Sender, n.Subject)
		if snap.Stage == core.StageInbox && n.Read {
			fmt.Fprintln(r.out, indent(n.Body))
		}
	}
	if snap.Mission != nil {
		fmt.Fprintf(r.out, "mission: %s (%.0f%%)\n", snap.Mission.Title, snap.Mission.Percent)
		for _, o := range snap.Mission.Objectives {
			mark := "[ ]"
			if o.Complete {
				mark = "[x]"
			}
			if o.Target > 1 {
				fmt.Fprintf(r.out, "  %s %s (%d/%d)\n", mark, o.Title, o.Progress, o.Target)
			} else {
				fmt.Fprintf(r.out, "  %s %s\n", mark, o.Title)
			}
		}
	}
	for k, v := range snap.SettingsView {
		fmt.Fprintf(r.out, "setting %s = %s\n", k, v)
	}
	fmt.Fprintf(r.out, "-- %s --\n", snap.StatusLine)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range lines {
		lines[i] = "    " + lines[i]
	}
	return strings.Join(lines, "\n")
}
