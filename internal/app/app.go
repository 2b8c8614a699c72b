// Package app initializes and runs the audit service: storage backends,
// background workers, retention maintenance, and the metrics endpoint.
// When Postgres is unreachable the app degrades to an in-memory read-only
// demo instead of refusing to start.
package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/fintrail/audita/internal/accesslog"
	"github.com/fintrail/audita/internal/archive"
	"github.com/fintrail/audita/internal/codec"
	"github.com/fintrail/audita/internal/config"
	"github.com/fintrail/audita/internal/identity"
	"github.com/fintrail/audita/internal/keystore"
	"github.com/fintrail/audita/internal/logging"
	"github.com/fintrail/audita/internal/metrics"
	"github.com/fintrail/audita/internal/migrations"
	"github.com/fintrail/audita/internal/notify"
	"github.com/fintrail/audita/internal/policy"
	"github.com/fintrail/audita/internal/protection"
	"github.com/fintrail/audita/internal/query"
	"github.com/fintrail/audita/internal/versionstore"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics

	db          *sql.DB
	eventStore  accesslog.Store
	eventInbox  *accesslog.AsyncPublisher
	noticeInbox *notify.Publisher
	noticeSink  notify.Sender
	policies    policy.Store

	Versions *versionstore.Service
	Queries  *query.Service
	Gateway  *protection.Gateway
	Identity *identity.JWTProvider
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout)
	m := metrics.New()

	app := &App{
		config:      cfg,
		logger:      logger,
		metrics:     m,
		eventInbox:  accesslog.NewAsyncPublisher(256, logger),
		noticeInbox: notify.NewPublisher(64, logger),
		noticeSink:  notify.NewLogSender(logger),
		Identity:    identity.NewJWTProvider([]byte(cfg.SecretKey), cfg.TokenValidityDuration),
	}

	db, err := openDatabase(ctx, cfg.DatabaseDSN)
	degraded := err != nil
	if degraded {
		logger.Warn(ctx, "database unreachable, starting in-memory read-only demo", "error", err.Error())
	}

	var (
		keys        keystore.Store
		versionRepo versionstore.Repository
	)
	if degraded {
		keys = keystore.NewInMemoryStore([]byte(cfg.MasterPassphrase))
		versionRepo = versionstore.NewInMemoryRepository()
		app.policies = policy.NewInMemoryStore()
		app.eventStore = accesslog.NewInMemoryStore(cfg.MaxAccessEvents)
	} else {
		app.db = db
		keys = keystore.NewPostgresStore(db, []byte(cfg.MasterPassphrase))
		versionRepo = versionstore.NewPostgresRepository(db)
		app.policies = policy.NewPostgresStore(db)
		app.eventStore = accesslog.NewPostgresStore(db, cfg.MaxAccessEvents)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		app.eventStore = accesslog.NewRedisStore(redis.NewClient(opts), cfg.MaxAccessEvents)
	}

	if err := keys.Bootstrap(ctx); err != nil {
		return nil, err
	}

	app.Gateway = protection.NewGateway(
		protection.NewEncryptor(keys), codec.New(), app.eventInbox, logger, m)

	versionOpts := []versionstore.Option{
		versionstore.WithTenant(cfg.TenantID),
		versionstore.WithNotifier(app.noticeInbox),
	}
	if degraded {
		if err := seedDemoData(ctx, versionRepo); err != nil {
			return nil, err
		}
		versionOpts = append(versionOpts, versionstore.ReadOnly())
	}
	app.Versions = versionstore.NewService(versionRepo, app.policies, logger, m, versionOpts...)

	queryOpts := []query.Option{
		query.WithTenant(cfg.TenantID),
		query.WithFieldSpecs(DefaultFieldSpecs()),
	}
	if !degraded && cfg.S3Bucket != "" {
		uploader, err := archive.NewS3Uploader(ctx, archive.Options{
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
		})
		if err != nil {
			return nil, err
		}
		queryOpts = append(queryOpts, query.WithArchiver(uploader))
	}
	app.Queries = query.NewService(
		app.Versions, app.Gateway, app.policies, app.eventInbox, logger, m, queryOpts...)

	return app, nil
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the background workers and the metrics endpoint and blocks
// until the context is cancelled or a worker fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting audit service", "metricsAddr", app.config.MetricsAddr)
	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	eventWorker := accesslog.NewWorker(app.eventStore, app.eventInbox.Inbox())
	g.Go(func() error { return ignoreCancel(eventWorker.Run(ctx)) })

	noticeWorker := notify.NewWorker(app.noticeSink, app.noticeInbox.Inbox(), app.logger)
	g.Go(func() error { return ignoreCancel(noticeWorker.Run(ctx)) })

	g.Go(func() error { return app.runMaintenance(ctx) })
	g.Go(func() error { return app.runMetricsServer(ctx) })

	err := g.Wait()
	if app.db != nil {
		_ = app.db.Close()
	}
	app.logger.Info(ctx, "audit service stopped")
	return err
}

// runMaintenance periodically purges version entries and access events that
// fell out of the tenant's retention window.
func (app *App) runMaintenance(ctx context.Context) error {
	ticker := time.NewTicker(app.config.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := time.Now()
			if _, err := app.Versions.PurgeExpired(ctx, now); err != nil {
				app.logger.Error(ctx, "version retention cleanup failed", "error", err.Error())
			}

			cfg, err := app.policies.Get(ctx, app.config.TenantID)
			if err != nil {
				app.logger.Error(ctx, "maintenance policy load failed", "error", err.Error())
				continue
			}
			cutoff := now.AddDate(0, 0, -cfg.RetentionDays)
			if _, err := app.eventStore.PurgeOlderThan(ctx, cutoff); err != nil {
				app.logger.Error(ctx, "access event cleanup failed", "error", err.Error())
			}
		}
	}
}

func (app *App) runMetricsServer(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
