// Package server initializes and runs the farmledger server: it opens the
// database, applies migrations, wires the services and starts the HTTP API,
// shutting down gracefully on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/farmledger/internal/dbx"
	"github.com/dmitrijs2005/farmledger/internal/logging"
	"github.com/dmitrijs2005/farmledger/internal/server/config"
	"github.com/dmitrijs2005/farmledger/internal/server/httpapi"
	"github.com/dmitrijs2005/farmledger/internal/server/migrations"
	"github.com/dmitrijs2005/farmledger/internal/server/repositories/documents"
	"github.com/dmitrijs2005/farmledger/internal/server/repositories/users"
	"github.com/dmitrijs2005/farmledger/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	userService := services.NewUserService(users.NewPostgresRepository(db), cfg)
	documentService := services.NewDocumentService(db, func(tx dbx.DBTX) documents.Repository {
		return documents.NewPostgresRepository(tx)
	})
	backupService := services.NewBackupService(cfg)

	srv := httpapi.NewServer(cfg, userService, documentService, backupService, logger)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.Up(db, ".")
}

// Run serves until an OS signal arrives, then shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	app.logger.Info(ctx, "starting farmledger server")

	err := app.server.Run(ctx)
	if closeErr := app.db.Close(); err == nil {
		err = closeErr
	}
	return err
}
