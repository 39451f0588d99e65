// internal/terminal/terminal.go

// Package terminal interprets player commands. Commands never mutate
// engine state directly; they go through the session's dependencies so
// every effect is observable by objective grading.
package terminal

import (
	"sort"
	"strings"
)

// OutputKind classifies a line for the UI layer.
type OutputKind uint8

const (
	KindText OutputKind = iota
	KindError
	KindSuccess
	KindWarning
)

// Output is one rendered terminal line.
type Output struct {
	Text string
	Kind OutputKind
}

func text(s string) Output    { return Output{Text: s} }
func errOut(s string) Output  { return Output{Text: s, Kind: KindError} }
func okOut(s string) Output   { return Output{Text: s, Kind: KindSuccess} }
func warnOut(s string) Output { return Output{Text: s, Kind: KindWarning} }

// Command is one registered builtin.
type Command struct {
	Name         string
	Summary      string
	Usage        string
	RequiredTool string // empty means always available
	Run          func(s *Session, args Args) []Output
}

// Execute tokenizes and runs one submitted line, records it in history,
// and appends everything to the scrollback. A blank line is a no-op.
func (s *Session) Execute(line string) []Output {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	s.history = append(s.history, trimmed)
	s.scrollback = append(s.scrollback, text(s.Prompt()+trimmed))

	out := s.run(trimmed)
	s.scrollback = append(s.scrollback, out...)
	return out
}

func (s *Session) run(line string) []Output {
	tokens, err := Tokenize(line)
	if err != nil {
		return []Output{errOut(err.Error())}
	}
	// command names match case-insensitively; arguments keep their case
	name := strings.ToLower(tokens[0])

	cmd, ok := builtins[name]
	if !ok {
		out := []Output{errOut(name + ": command not found")}
		if hint := suggest(name); hint != "" {
			out = append(out, text("did you mean '"+hint+"'?"))
		}
		return out
	}

	if cmd.RequiredTool != "" && !s.ToolUnlocked(cmd.RequiredTool) {
		return []Output{errOut(name + ": tool locked, complete missions to unlock it")}
	}

	s.commandLog = append(s.commandLog, line)
	s.deps.Logger.Debug("command", "name", name)
	return cmd.Run(s, ParseArgs(tokens[1:]))
}

// suggest returns the closest command name within edit distance 2.
func suggest(name string) string {
	best, bestDist := "", 3
	for _, c := range commandNames() {
		if d := editDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func commandNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
