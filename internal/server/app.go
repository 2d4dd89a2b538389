// Package server initializes and runs the docbox application server: it
// opens the database, runs migrations, constructs the shared object-store
// client and the lifecycle services, and serves the HTTP API until an OS
// signal stops it.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmoliveira/docbox/internal/logging"
	"github.com/dmoliveira/docbox/internal/server/blob"
	"github.com/dmoliveira/docbox/internal/server/cache"
	"github.com/dmoliveira/docbox/internal/server/config"
	"github.com/dmoliveira/docbox/internal/server/httpapi"
	"github.com/dmoliveira/docbox/internal/server/repositories/repomanager"
	"github.com/dmoliveira/docbox/internal/server/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := blob.New(context.Background(), c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	listings := cache.New(c.RedisAddr, c.ListingCacheTTL)

	fs := services.NewFileService(db, rm, blobs, listings, c, logger)
	cs := services.NewContainerService(db, rm, blobs, listings, c, logger)

	srv := httpapi.NewServer(c.EndpointAddrHTTP, logger, fs, cs, c.SecretKey)

	return &App{config: c, logger: logger, db: db, httpServer: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
