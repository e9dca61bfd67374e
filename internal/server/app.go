// Package server wires the authkeeper components together: storage and
// migrations, the revocation ledger, the session service and the HTTP and
// gRPC transports, and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	mongo    *mongo.Client
	sessions *services.SessionService
	sweeper  *services.Sweeper
	metrics  *metrics.Metrics
}

// NewApp opens storage, applies migrations and builds the services.
// Log output goes to w.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	logger := logging.NewJSONLogger(w, c.LogLevel)
	app := &App{config: c, logger: logger, metrics: metrics.New()}

	rm, err := repomanager.New(c.StorageDriver)
	if err != nil {
		return nil, err
	}

	app.db, err = repomanager.Open(ctx, rm, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repomanager.SetMigrationLogger(logger)
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	ledger, err := app.openLedger(ctx, rm)
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("ledger init error: %w", err)
	}

	codec := auth.NewCodec([]byte(c.SecretKey), c.TokenTTL, c.TokenIssuer)
	hasher := auth.NewBcryptHasher(c.BcryptCost)

	app.sessions = services.NewSessionService(app.db, rm, ledger, codec, hasher, logger, app.metrics)
	app.sweeper = services.NewSweeper(ledger, c.SweepInterval, logger, app.metrics)

	return app, nil
}

func (app *App) openLedger(ctx context.Context, rm repomanager.RepositoryManager) (revocations.Repository, error) {
	if app.config.LedgerBackend != config.LedgerMongo {
		return rm.Revocations(app.db), nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(app.config.MongoURI))
	if err != nil {
		return nil, err
	}
	app.mongo = client

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	repo := revocations.NewMongoRepository(client.Database(app.config.MongoDatabase))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// Close releases the database and MongoDB connections.
func (app *App) Close(ctx context.Context) {
	if app.mongo != nil {
		if err := app.mongo.Disconnect(ctx); err != nil {
			app.logger.Warn(ctx, "mongo disconnect failed", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close failed", "error", err)
		}
	}
}

// Run serves HTTP, gRPC (when an address is configured) and the sweeper
// until ctx is done or one of them fails.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	httpServer := httpapi.NewServer(app.config.EndpointAddrHTTP, app.sessions, app.logger, app.metrics)
	g.Go(func() error { return httpServer.Run(ctx) })

	if app.config.EndpointAddrGRPC != "" {
		grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.sessions, app.logger, app.metrics)
		g.Go(func() error { return grpcServer.Run(ctx) })
	}

	g.Go(func() error { return app.sweeper.Run(ctx) })

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}

// Main loads configuration from args, runs the app until SIGINT, SIGTERM
// or SIGQUIT, and returns the process exit code.
func Main(args []string) int {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer app.Close(closeCtx)

	if err := app.Run(ctx); err != nil {
		app.logger.Error(ctx, "app failed", "error", err)
		return 1
	}
	return 0
}
