// Package cli implements the interactive farmledger client: wiring of the
// local store, remote client and services, plus a small REPL.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/farmledger/internal/client/config"
	"github.com/dmitrijs2005/farmledger/internal/client/connectivity"
	"github.com/dmitrijs2005/farmledger/internal/client/remote"
	"github.com/dmitrijs2005/farmledger/internal/client/services"
	"github.com/dmitrijs2005/farmledger/internal/client/store"
	"github.com/dmitrijs2005/farmledger/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config *config.Config
	log    logging.Logger

	store   *store.Store
	remote  remote.Client
	watcher *connectivity.Watcher

	session *services.SessionService
	sync    *services.SyncService
	records *services.RecordService
	reports *services.ReportService

	reader *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	st, err := store.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rc := remote.NewHTTPClient(c.ServerEndpointAddr)
	watcher := connectivity.NewWatcher(rc, c.OnlineCheckInterval, log)

	session := services.NewSessionService(rc, st, log)
	syncSvc := services.NewSyncService(st, rc, session, watcher, c.SyncInterval, log)
	records := services.NewRecordService(st, syncSvc, rc, log)
	reports := services.NewReportService(st)

	app := &App{
		config:  c,
		log:     log,
		store:   st,
		remote:  rc,
		watcher: watcher,
		session: session,
		sync:    syncSvc,
		records: records,
		reports: reports,
		reader:  bufio.NewReader(os.Stdin),
	}

	// Login starts the periodic schedule and applies remote settings;
	// logout cancels the schedule so no timer outlives the session.
	session.OnChange(func(active bool) {
		if active {
			syncSvc.StartPeriodic()
			if watcher.IsOnline() {
				if err := syncSvc.ApplyRemoteSettings(ctx); err != nil {
					log.Warn(ctx, "failed to apply remote settings", "error", err)
				}
			}
			return
		}
		syncSvc.StopPeriodic()
	})

	// Coming back online while logged in kicks off a pass.
	watcher.OnChange(func(online bool) {
		if online && session.Authenticated() {
			syncSvc.TriggerAsync()
		}
	})

	return app, nil
}

func (a *App) isLoggedIn() bool {
	return a.session.Authenticated()
}

func (a *App) status() string {
	mode := "offline"
	if a.watcher.IsOnline() {
		mode = "online"
	}
	if !a.isLoggedIn() {
		return mode
	}
	return a.session.Username() + " | " + mode
}

// Run starts the connectivity watcher and the REPL, and tears everything
// down when the loop exits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.watcher.Run(ctx)

	// The REPL shares a.reader with the input prompts so buffered
	// read-ahead input is never split between two buffers.
	runREPL(ctx, a, a.status, a.reader)

	a.sync.StopPeriodic()
	a.sync.Wait()
	_ = a.remote.Close()
	return a.store.Close()
}
