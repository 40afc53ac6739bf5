package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	AddRecord(ctx context.Context) error
	ListRecords(ctx context.Context) error
	Sync(ctx context.Context) error
	Stats(ctx context.Context) error
	KPI(ctx context.Context) error
	Export(ctx context.Context, path string) error
	Import(ctx context.Context, path string) error
	Backup(ctx context.Context) error
	ClearRemote(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop.
//
// It reads a line from the provided reader, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on EOF or when the user types "exit" or
// "quit". The reader is the same one the command prompts read from, so no
// buffered-ahead input is lost between the loop and a prompt.
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("fl> %s > ", statusFn()))
		line, readErr := r.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if readErr != nil {
				return
			}
			continue
		}
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: add, list, sync, stats, kpi, export <file>, import <file>, backup, clearremote, logout, exit")
			} else {
				printlnFn("Available commands: register, login, add, list, stats, export <file>, import <file>, exit")
			}
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "add":
			_ = a.AddRecord(ctx)
		case "list", "l":
			_ = a.ListRecords(ctx)
		case "sync":
			_ = a.Sync(ctx)
		case "stats":
			_ = a.Stats(ctx)
		case "kpi":
			_ = a.KPI(ctx)
		case "export":
			_ = a.Export(ctx, arg)
		case "import":
			_ = a.Import(ctx, arg)
		case "backup":
			_ = a.Backup(ctx)
		case "clearremote":
			_ = a.ClearRemote(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "exit", "quit":
			return
		default:
			printlnFn(fmt.Sprintf("Unknown command: %s (try 'help')", cmd))
		}

		if readErr != nil {
			return
		}
	}
}
