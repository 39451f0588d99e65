// internal/terminal/token.go
package terminal

import (
	"fmt"
	"strings"
)

// Tokenize splits a command line into fields. Double and single quotes
// group spaces; a quote is closed by the same character that opened it.
func Tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		open    bool
		inTok   bool
	)
	for _, r := range line {
		switch {
		case open:
			if r == quote {
				open = false
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			open = true
			inTok = true
			quote = r
		case r == ' ' || r == '\t':
			if inTok {
				tokens = append(tokens, current.String())
				current.Reset()
				inTok = false
			}
		default:
			current.WriteRune(r)
			inTok = true
		}
	}
	if open {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inTok {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// Args separates tokens into options and positionals. Options are
// "-x value", "--long value" or "--long=value"; a flag followed by
// another option or nothing carries an empty value.
type Args struct {
	Options    map[string]string
	Positional []string
}

// ParseArgs interprets everything after the command word.
func ParseArgs(tokens []string) Args {
	a := Args{Options: make(map[string]string)}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !strings.HasPrefix(tok, "-") || tok == "-" || tok == "--" {
			a.Positional = append(a.Positional, tok)
			continue
		}
		name := strings.TrimLeft(tok, "-")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			a.Options[name[:eq]] = name[eq+1:]
			continue
		}
		if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
			a.Options[name] = tokens[i+1]
			i++
		} else {
			a.Options[name] = ""
		}
	}
	return a
}

// Opt returns a named option, checking each alias in order.
func (a Args) Opt(names ...string) (string, bool) {
	for _, n := range names {
		if v, ok := a.Options[n]; ok {
			return v, true
		}
	}
	return "", false
}
