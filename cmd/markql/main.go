// Command markql is an interactive REPL for parsing, linting, and
// running MarkQL queries against loaded HtmlDocument fixtures.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/google/shlex"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/markql/markql"
	"github.com/markql/markql/internal/replcmd"
)

const helpText = `markql interactive REPL

Meta-commands:
  .load <alias> <path>         load a JSON document fixture under a source alias
  .use <alias>                 switch which loaded source FROM DOCUMENT queries run against
  .sources                     list loaded sources, marking the active one
  .set colnames raw|friendly   choose column-name rendering
  .describe last               list the previous result's column names
  .shell <cmd>                 run a shell command and print its output
  .help                        show this text
  .quit / .exit                leave the REPL

Any other input is parsed and executed as a MarkQL statement against the
active source, e.g.:

  SELECT self.tag, self.text FROM DOCUMENT WHERE tag = 'a' ORDER BY node_id;
`

// prefs holds REPL preferences persisted between sessions.
type prefs struct {
	HistorySize int    `yaml:"history_size"`
	DefaultSink string `yaml:"default_sink"`
}

func defaultPrefs() prefs {
	return prefs{HistorySize: 500, DefaultSink: "DOCUMENT"}
}

func prefsPath() (string, error) {
	return xdg.ConfigFile(filepath.Join("markql", "prefs.yaml"))
}

func loadPrefs(logger *zap.Logger) prefs {
	path, err := prefsPath()
	if err != nil {
		logger.Warn("could not resolve prefs path, using defaults", zap.Error(err))
		return defaultPrefs()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		p := defaultPrefs()
		if b, merr := yaml.Marshal(p); merr == nil {
			_ = os.WriteFile(path, b, 0644)
		}
		return p
	} else if err != nil {
		logger.Warn("could not read prefs file, using defaults", zap.String("path", path), zap.Error(err))
		return defaultPrefs()
	}

	var p prefs
	if err := yaml.Unmarshal(data, &p); err != nil {
		logger.Warn("could not parse prefs file, using defaults", zap.String("path", path), zap.Error(err))
		return defaultPrefs()
	}
	if p.HistorySize == 0 {
		p.HistorySize = defaultPrefs().HistorySize
	}
	return p
}

func historyPath() (string, error) {
	return xdg.CacheFile(filepath.Join("markql", "history"))
}

func loadHistory(logger *zap.Logger) []string {
	path, err := historyPath()
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("could not read history file", zap.String("path", path), zap.Error(err))
		}
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}

func appendHistory(logger *zap.Logger, p prefs, history []string, line string) []string {
	history = append(history, line)
	if len(history) > p.HistorySize {
		history = history[len(history)-p.HistorySize:]
	}

	path, err := historyPath()
	if err != nil {
		return history
	}
	if err := os.WriteFile(path, []byte(strings.Join(history, "\n")+"\n"), 0644); err != nil {
		logger.Warn("could not write history file", zap.String("path", path), zap.Error(err))
	}
	return history
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	interactive := isatty.IsTerminal(os.Stdin.Fd())
	p := loadPrefs(logger)
	history := loadHistory(logger)

	sess := replcmd.NewSession()
	engines := map[string]*markql.Engine{}

	scanner := bufio.NewScanner(os.Stdin)
	if interactive {
		fmt.Println("markql — SQL-over-HTML query REPL")
		fmt.Println(`Type ".help" for available commands.`)
		fmt.Println()
	}

	for {
		if interactive {
			if sess.Active != "" {
				fmt.Printf("markql [%s]> ", sess.Active)
			} else {
				fmt.Print("markql> ")
			}
		}

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		history = appendHistory(logger, p, history, line)

		if shellCmd, ok := strings.CutPrefix(line, ".shell "); ok {
			runShell(logger, shellCmd)
			continue
		}

		if replcmd.IsMetaCommand(line) {
			if quit := runMeta(logger, line, sess, engines); quit {
				break
			}
			continue
		}

		runQuery(line, sess, engines)
	}

	if interactive {
		fmt.Println()
	}
}

// runShell tokenizes shellCmd and runs it as a subprocess, streaming its
// stdout/stderr straight to the REPL's own.
func runShell(logger *zap.Logger, shellCmd string) {
	args, err := shlex.Split(shellCmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", errors.Wrap(err, "shlex.Split"))
		return
	}
	if len(args) == 0 {
		return
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		logger.Debug("shell command failed", zap.String("cmd", shellCmd), zap.Error(err))
		fmt.Fprintf(os.Stderr, "shell command failed: %v\n", err)
	}
}

// runMeta handles one `.`-prefixed line and reports whether the REPL
// should stop reading input.
func runMeta(logger *zap.Logger, line string, sess *replcmd.Session, engines map[string]*markql.Engine) bool {
	g, err := replcmd.Parse(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}

	if g.Help != nil {
		fmt.Print(helpText)
		return false
	}

	if g.Load != nil {
		eng, lerr := markql.LoadEngineFile(g.Load.Path)
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "error loading %q: %v\n", g.Load.Path, lerr)
			return false
		}
		engines[g.Load.Alias] = eng
	}

	out, derr := replcmd.Dispatch(line, sess)
	if derr == replcmd.ErrQuit {
		return true
	}
	if derr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", derr)
		return false
	}
	if out != "" {
		fmt.Println(out)
	}
	logger.Debug("meta-command handled", zap.String("line", line))
	return false
}

func runQuery(line string, sess *replcmd.Session, engines map[string]*markql.Engine) {
	if sess.Active == "" {
		fmt.Fprintln(os.Stderr, "no active source — use \".load\" or \".use\" first")
		return
	}
	eng, ok := engines[sess.Active]
	if !ok {
		fmt.Fprintf(os.Stderr, "no document loaded for source %q\n", sess.Active)
		return
	}

	res, err := eng.Run(context.Background(), line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		return
	}

	if rs, ok := res.(markql.RowSet); ok {
		sess.LastColumns = rs.Columns
	}
	fmt.Println(res.String())
}
