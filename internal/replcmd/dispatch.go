package replcmd

import (
	"fmt"
	"sort"
	"strings"
)

// ColumnNameMode is the column-name setting `.set colnames` stores in a
// Session: Friendly for operand-shaped names (`a.href`), Raw for the
// underlying field kind. Only Dispatch writes it; neither .describe nor
// the REPL's row-table rendering reads it, so both label columns the
// same way in either mode.
type ColumnNameMode int

const (
	ColnamesFriendly ColumnNameMode = iota
	ColnamesRaw
)

// Session holds REPL state a meta-command line can read or mutate: the
// named document sources loaded this session, which one FROM DOCUMENT
// queries run against, and display settings.
type Session struct {
	Sources     map[string]string // alias -> path
	Active      string
	ColnameMode ColumnNameMode
	LastColumns []string
}

// NewSession returns an empty session with no sources loaded.
func NewSession() *Session {
	return &Session{Sources: map[string]string{}}
}

// Dispatch parses line as a meta-command and runs it against sess,
// returning the text the REPL should print.
func Dispatch(line string, sess *Session) (string, error) {
	g, err := Parse(line)
	if err != nil {
		return "", err
	}
	switch {
	case g.Load != nil:
		return execLoad(g.Load, sess)
	case g.Use != nil:
		return execUse(g.Use, sess)
	case g.Sources != nil:
		return execSources(sess)
	case g.Set != nil:
		return execSet(g.Set, sess)
	case g.Describe != nil:
		return execDescribe(g.Describe, sess)
	case g.Help != nil:
		return helpText, nil
	case g.Quit != nil:
		return "", ErrQuit
	default:
		return "", fmt.Errorf("internal error: unrecognized meta-command AST")
	}
}

// ErrQuit is returned by Dispatch for .quit/.exit so the REPL loop can
// distinguish "stop reading" from an ordinary command error.
var ErrQuit = fmt.Errorf("quit requested")

func execLoad(n *LoadAST, sess *Session) (string, error) {
	sess.Sources[n.Alias] = n.Path
	if sess.Active == "" {
		sess.Active = n.Alias
	}
	return fmt.Sprintf("loaded %s as %s", n.Path, n.Alias), nil
}

func execUse(n *UseAST, sess *Session) (string, error) {
	if _, ok := sess.Sources[n.Alias]; !ok {
		return "", fmt.Errorf("no source loaded as %q", n.Alias)
	}
	sess.Active = n.Alias
	return fmt.Sprintf("active source is now %s", n.Alias), nil
}

func execSources(sess *Session) (string, error) {
	if len(sess.Sources) == 0 {
		return "no sources loaded", nil
	}
	aliases := make([]string, 0, len(sess.Sources))
	for alias := range sess.Sources {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	var b strings.Builder
	for _, alias := range aliases {
		marker := "  "
		if alias == sess.Active {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%s -> %s\n", marker, alias, sess.Sources[alias])
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func execSet(n *SetAST, sess *Session) (string, error) {
	if !strings.EqualFold(n.Key, "colnames") {
		return "", fmt.Errorf("unknown setting %q", n.Key)
	}
	switch strings.ToLower(n.Value) {
	case "raw":
		sess.ColnameMode = ColnamesRaw
	case "friendly":
		sess.ColnameMode = ColnamesFriendly
	default:
		return "", fmt.Errorf("colnames must be \"raw\" or \"friendly\", got %q", n.Value)
	}
	return fmt.Sprintf("colnames set to %s", strings.ToLower(n.Value)), nil
}

func execDescribe(n *DescribeAST, sess *Session) (string, error) {
	if !strings.EqualFold(n.Target, "last") {
		return "", fmt.Errorf("describe only supports \"last\", got %q", n.Target)
	}
	if len(sess.LastColumns) == 0 {
		return "no query has run yet", nil
	}
	return strings.Join(sess.LastColumns, "\n"), nil
}

const helpText = `.load <alias> <path>   load a JSON document fixture under a source alias
.use <alias>           switch which loaded source FROM DOCUMENT queries run against
.sources               list loaded sources, marking the active one
.set colnames raw|friendly   record a column-name mode in the session
.describe last         list the previous result's column names
.help                  show this text
.quit / .exit          leave the REPL`
