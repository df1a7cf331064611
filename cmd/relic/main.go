// Command relic is an interactive SQL shell (and script runner) over the
// embedded storage/executor stack, grounded on the teacher's
// cmd/client/main.go REPL but talking to a local engine.Database
// instead of a TCP server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/atomic"
	"gopkg.in/yaml.v3"

	"github.com/tuannm99/relic/internal/config"
	"github.com/tuannm99/relic/internal/engine"
	"github.com/tuannm99/relic/internal/logging"
	"github.com/tuannm99/relic/internal/sql/executor"
	"github.com/tuannm99/relic/internal/sql/parser"
	"github.com/tuannm99/relic/internal/sql/planner"
)

// shell holds everything one relic process needs to run statements,
// whether fed interactively or from a script file.
type shell struct {
	db      *engine.Database
	ex      *executor.Executor
	history *History
	// stmtCount traces how many statements this process has executed,
	// attached to each statement error line so a multi-statement script's
	// failures can be correlated back to a position without re-parsing.
	stmtCount atomic.Uint64
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dataDir    = flag.String("db", "", "database data directory (overrides config storage.data_dir)")
		configPath = flag.String("config", "", "path to relic.yaml")
		histPath   = flag.String("history", "", "history file path (overrides config)")
		oneShotSQL = flag.String("c", "", "execute one SQL statement and exit")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "relic: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}

	logging.Setup(cfg, os.Stderr)

	db, err := engine.Open(cfg.Storage.DataDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relic: cannot open database: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	hp := cfg.Shell.HistoryFile
	if *histPath != "" {
		hp = *histPath
	}
	if hp == "" {
		hp = defaultHistoryPath()
	}
	h := NewHistory(hp)
	_ = h.Load(2000)

	sh := &shell{db: db, ex: executor.New(db.Catalog, db), history: h}

	if strings.TrimSpace(*oneShotSQL) != "" {
		ok := sh.runBatch(*oneShotSQL)
		if err := db.SyncPageCounts(); err != nil {
			fmt.Fprintf(os.Stderr, "relic: sync page counts: %v\n", err)
			return 2
		}
		if !ok {
			return 2
		}
		return 0
	}

	if flag.NArg() > 0 {
		return sh.runScriptFile(flag.Arg(0))
	}

	return sh.repl(cfg.Shell.Prompt)
}

// runScriptFile executes every statement in path in order, continuing
// past a failing statement the same way the interactive shell does,
// and returns the process exit code.
func (sh *shell) runScriptFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relic: %v\n", err)
		return 2
	}
	ok := sh.runBatch(string(data))
	if err := sh.db.SyncPageCounts(); err != nil {
		fmt.Fprintf(os.Stderr, "relic: sync page counts: %v\n", err)
		return 2
	}
	if !ok {
		return 2
	}
	return 0
}

// runBatch parses src as a sequence of statements and executes each in
// turn, reporting (but not stopping on) per-statement errors. It
// returns false if any statement failed.
func (sh *shell) runBatch(src string) bool {
	stmts, errs := parser.ParseAll(src)
	ok := true
	for _, perr := range errs {
		fmt.Fprintln(os.Stderr, perr)
		ok = false
	}
	for _, stmt := range stmts {
		if !sh.runStatement(stmt) {
			ok = false
		}
	}
	return ok
}

// runStatement executes one already-parsed statement, printing its
// result (or EXPLAIN plan) to stdout.
func (sh *shell) runStatement(stmt parser.Statement) bool {
	n := sh.stmtCount.Add(1)

	if ex, ok := stmt.(*parser.ExplainStmt); ok {
		sh.explain(ex.Inner)
		return true
	}

	res, err := sh.ex.Execute(stmt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error (statement %d): %v\n", n, err)
		return false
	}
	printResult(res)
	return true
}

// explain builds inner's plan and dumps it as YAML instead of
// executing it.
func (sh *shell) explain(inner parser.Statement) {
	plan, err := planner.Build(inner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	out, err := yaml.Marshal(describePlan(plan))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Print(string(out))
}

// repl runs the interactive readline loop until EOF or exit/quit.
func (sh *shell) repl(prompt string) int {
	if prompt == "" {
		prompt = "relic> "
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "relic: readline: %v\n", err)
		return 1
	}
	defer func() { _ = rl.Close() }()

	for _, line := range sh.history.lines {
		_ = rl.SaveHistory(line)
	}

	fmt.Println("relic - type \\help for help")

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt(prompt)
				continue
			}
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isMetaCommand(line) && buf.Len() == 0 {
			if done := sh.metaCommand(line, rl); done {
				break
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)

		if !statementComplete(buf.String()) {
			rl.SetPrompt("    -> ")
			continue
		}

		stmt := normalizeStmt(buf.String())
		buf.Reset()
		rl.SetPrompt(prompt)

		_ = sh.history.Append(stmt)
		_ = rl.SaveHistory(compactOneLine(stmt))

		sh.runBatch(stmt)
	}

	if err := sh.db.SyncPageCounts(); err != nil {
		fmt.Fprintf(os.Stderr, "relic: sync page counts: %v\n", err)
		return 2
	}
	return 0
}

// metaCommand handles a non-SQL line (backslash commands, "quit"/"exit",
// or ": read <path>"). It returns true when the shell should exit.
func (sh *shell) metaCommand(line string, rl *readline.Instance) bool {
	switch {
	case line == "\\q" || line == "quit" || line == "exit":
		return true
	case line == "\\help":
		fmt.Println(`meta commands:
  \q | quit | exit        quit the shell
  \history                print statement history
  : read <path>           run every statement in a script file
  \help                   show this help

sql:
  end a statement with ';'; multi-line input is supported`)
	case line == "\\history":
		sh.history.Print(50)
	case strings.HasPrefix(line, ": read "):
		path := strings.TrimSpace(strings.TrimPrefix(line, ": read "))
		sh.runScriptFile(path)
	default:
		fmt.Printf("unknown command: %s\n", line)
	}
	return false
}
