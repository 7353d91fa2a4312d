// Package server wires the configuration, the database, the event publisher
// and the services together and runs the HTTP API next to the gRPC health
// endpoint until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/daianaegermichels/financas/internal/logging"
	"github.com/daianaegermichels/financas/internal/server/config"
	"github.com/daianaegermichels/financas/internal/server/events"
	"github.com/daianaegermichels/financas/internal/server/httpapi"
	"github.com/daianaegermichels/financas/internal/server/repositories/repomanager"
	"github.com/daianaegermichels/financas/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/daianaegermichels/financas/internal/server/grpc"
)

// runner is implemented by the HTTP and gRPC servers.
type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	publisher events.Publisher
	servers   []runner
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	publisher, err := newPublisher(c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	us := services.NewUserService(db, rm, c, publisher, logger)
	es := services.NewEntryService(db, rm, publisher, logger)
	ss := services.NewStatementService(es, c, logger)

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		publisher: publisher,
		servers: []runner{
			httpapi.NewServer(c.HTTPAddr, logger, us, es, ss),
			gs.NewGRPCServer(c.HealthAddrGRPC, logger, db),
		},
	}, nil
}

// newPublisher connects to the broker when an AMQP URL is configured and
// falls back to a no-op publisher otherwise.
func newPublisher(c *config.Config, logger logging.Logger) (events.Publisher, error) {
	if c.AMQPURL == "" {
		return events.NopPublisher{}, nil
	}
	p, err := events.NewAMQPPublisher(c.AMQPURL, c.AMQPExchange, logger)
	if err != nil {
		return nil, fmt.Errorf("amqp init error: %w", err)
	}
	return p, nil
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

// Run blocks until a signal arrives or one of the servers fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	err := app.serve(ctx)

	app.close(context.Background())

	return err
}

func (app *App) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range app.servers {
		s := s
		g.Go(func() error {
			return s.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, "server error", "error", err)
		return err
	}

	return nil
}

func (app *App) close(ctx context.Context) {
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error(ctx, "publisher close", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
