package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubExec records which commands the REPL dispatched.
type stubExec struct {
	loggedIn bool
	calls    []string
	args     []string
}

func (s *stubExec) isLoggedIn() bool { return s.loggedIn }

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubExec) Register(ctx context.Context) error    { return s.record("register") }
func (s *stubExec) Login(ctx context.Context) error       { return s.record("login") }
func (s *stubExec) AddRecord(ctx context.Context) error   { return s.record("add") }
func (s *stubExec) ListRecords(ctx context.Context) error { return s.record("list") }
func (s *stubExec) Sync(ctx context.Context) error        { return s.record("sync") }
func (s *stubExec) Stats(ctx context.Context) error       { return s.record("stats") }
func (s *stubExec) KPI(ctx context.Context) error         { return s.record("kpi") }
func (s *stubExec) Backup(ctx context.Context) error      { return s.record("backup") }
func (s *stubExec) ClearRemote(ctx context.Context) error { return s.record("clearremote") }
func (s *stubExec) Logout(ctx context.Context) error      { return s.record("logout") }

func (s *stubExec) Export(ctx context.Context, path string) error {
	s.args = append(s.args, path)
	return s.record("export")
}

func (s *stubExec) Import(ctx context.Context, path string) error {
	s.args = append(s.args, path)
	return s.record("import")
}

func runWithInput(t *testing.T, exec *stubExec, input string) []string {
	t.Helper()

	var output []string
	origPrintln := printlnFn
	printlnFn = func(a ...any) (int, error) {
		for _, v := range a {
			if s, ok := v.(string); ok {
				output = append(output, s)
			}
		}
		return 0, nil
	}
	defer func() { printlnFn = origPrintln }()

	reader := bufio.NewReader(strings.NewReader(input))
	runREPL(context.Background(), exec, func() string { return "status" }, reader)
	return output
}

func TestREPLDispatchesCommands(t *testing.T) {
	exec := &stubExec{loggedIn: true}

	runWithInput(t, exec, "add\nlist\nsync\nstats\nexit\n")
	assert.Equal(t, []string{"add", "list", "sync", "stats"}, exec.calls)
}

func TestREPLPassesFileArguments(t *testing.T) {
	exec := &stubExec{}

	runWithInput(t, exec, "export backup.json\nimport restore.json\nquit\n")
	assert.Equal(t, []string{"export", "import"}, exec.calls)
	assert.Equal(t, []string{"backup.json", "restore.json"}, exec.args)
}

func TestREPLUnknownCommand(t *testing.T) {
	exec := &stubExec{}

	output := runWithInput(t, exec, "frobnicate\nexit\n")
	assert.Empty(t, exec.calls)

	joined := strings.Join(output, "\n")
	assert.Contains(t, joined, "Unknown command: frobnicate")
}

func TestREPLSkipsBlankLinesAndStopsOnEOF(t *testing.T) {
	exec := &stubExec{}

	runWithInput(t, exec, "\n\nlist\n")
	assert.Equal(t, []string{"list"}, exec.calls)
}

// promptingExec reads a follow-up line from the same reader the REPL uses,
// like the real App's input prompts do.
type promptingExec struct {
	stubExec
	reader   *bufio.Reader
	prompted string
}

func (p *promptingExec) AddRecord(ctx context.Context) error {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		return err
	}
	p.prompted = strings.TrimSpace(line)
	return p.record("add")
}

func TestREPLSharesReaderWithPrompts(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("add\nBessie\nlist\nexit\n"))
	exec := &promptingExec{reader: reader}

	origPrintln := printlnFn
	printlnFn = func(a ...any) (int, error) { return 0, nil }
	defer func() { printlnFn = origPrintln }()

	runREPL(context.Background(), exec, func() string { return "status" }, reader)

	// the prompt saw the line typed after the command, and the loop
	// resumed with the one after that
	assert.Equal(t, "Bessie", exec.prompted)
	assert.Equal(t, []string{"add", "list"}, exec.calls)
}

func TestREPLHelpDependsOnSession(t *testing.T) {
	exec := &stubExec{}

	output := runWithInput(t, exec, "help\nexit\n")
	assert.Contains(t, strings.Join(output, "\n"), "register, login")

	exec.loggedIn = true
	output = runWithInput(t, exec, "help\nexit\n")
	assert.Contains(t, strings.Join(output, "\n"), "clearremote, logout")
}
