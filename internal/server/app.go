// Package server builds the crawler's dependencies from configuration and
// owns their lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/dhc-order-crawler/internal/api"
	"github.com/JakeFAU/dhc-order-crawler/internal/archive"
	"github.com/JakeFAU/dhc-order-crawler/internal/clock/system"
	"github.com/JakeFAU/dhc-order-crawler/internal/config"
	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
	"github.com/JakeFAU/dhc-order-crawler/internal/hash/sha256"
	"github.com/JakeFAU/dhc-order-crawler/internal/id/uuid"
	"github.com/JakeFAU/dhc-order-crawler/internal/metrics"
	"github.com/JakeFAU/dhc-order-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/dhc-order-crawler/internal/portal"
	gcppublisher "github.com/JakeFAU/dhc-order-crawler/internal/publisher/pubsub"
	azurestorage "github.com/JakeFAU/dhc-order-crawler/internal/storage/azure"
	gcsstorage "github.com/JakeFAU/dhc-order-crawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/dhc-order-crawler/internal/storage/local"
	memorystorage "github.com/JakeFAU/dhc-order-crawler/internal/storage/memory"
	mongostore "github.com/JakeFAU/dhc-order-crawler/internal/storage/mongo"
	pgstore "github.com/JakeFAU/dhc-order-crawler/internal/storage/postgres"
)

// Scope says how much of the pipeline a command needs. Each scope includes
// the ones before it.
type Scope int

const (
	// ScopeSession builds only the portal session and token source.
	ScopeSession Scope = iota
	// ScopeLookup adds the resolver with document archiving.
	ScopeLookup
	// ScopeCrawl adds the case store, the publisher, the Driver and the
	// optional operations server.
	ScopeCrawl
)

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	Tokens   *portal.TokenSource
	Resolver *portal.Resolver
	Cases    crawler.CaseStore
	Driver   *crawler.Driver
	API      *api.Server

	closers []closer
}

type closer struct {
	name  string
	close func() error
}

// Build creates the dependencies scope needs. On error everything built so
// far is released.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, scope Scope) (app *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	built := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			built.Close()
		}
	}()
	app = built

	limiter := ratelimit.New(ratelimit.Config{
		RPS:   cfg.Portal.RequestsPerSecond,
		Burst: cfg.Portal.Burst,
	})
	client, err := portal.NewClient(portal.Config{
		BaseURL:   cfg.Portal.BaseURL,
		UserAgent: cfg.Portal.UserAgent,
		Timeout:   cfg.Portal.Timeout(),
		SCode:     cfg.Portal.SCode,
		FFlag:     cfg.Portal.FFlag,
	}, limiter, logger.Named("portal"))
	if err != nil {
		return nil, fmt.Errorf("portal client init failed: %w", err)
	}
	app.Tokens = portal.NewTokenSource(client, cfg.Portal.Token)
	logger.Debug("portal session ready",
		zap.String("base_url", cfg.Portal.BaseURL),
		zap.Float64("requests_per_second", cfg.Portal.RequestsPerSecond),
		zap.Bool("static_token", cfg.Portal.Token != ""),
	)
	if scope < ScopeLookup {
		return app, nil
	}

	objects, err := app.setupArchive(ctx)
	if err != nil {
		return nil, err
	}
	uploader, err := archive.New(objects, sha256.New(), archive.Config{
		Naming:      cfg.Archive.Naming,
		Prefix:      cfg.Archive.Prefix,
		ContentType: cfg.Archive.ContentType,
	}, logger.Named("archive"))
	if err != nil {
		return nil, fmt.Errorf("archive uploader init failed: %w", err)
	}
	fetcher := portal.NewDocumentFetcher(client, uuid.New(), cfg.Crawl.TempDir)
	extractor := portal.NewOrderExtractor(fetcher, uploader, cfg.Crawl.RowConcurrency, logger.Named("portal"))
	app.Resolver = portal.NewResolver(client, extractor, logger.Named("portal"))
	if scope < ScopeCrawl {
		return app, nil
	}

	app.Cases, err = app.setupStore(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}
	app.Driver = crawler.NewDriver(
		app.Resolver,
		app.Cases,
		publisher,
		system.New(),
		cfg.Crawl.Policy(),
		cfg.PubSub.Topic,
		logger.Named("driver"),
	)
	if cfg.Server.Enabled {
		app.API = api.NewServer(app.Driver, logger.Named("api"))
	}
	return app, nil
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

func (a *App) setupArchive(ctx context.Context) (crawler.ObjectStore, error) {
	cfg := a.cfg.Archive
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("archive config: %w", err)
	}
	switch cfg.Provider {
	case "azure":
		a.logger.Info("using Azure Blob archive", zap.String("container", cfg.Azure.Container))
		store, err := azurestorage.New(azurestorage.Config{
			ConnectionString: cfg.Azure.ConnectionString,
			Container:        cfg.Azure.Container,
		})
		if err != nil {
			return nil, fmt.Errorf("azure archive init failed: %w", err)
		}
		return store, nil
	case "gcs":
		a.logger.Info("using GCS archive", zap.String("bucket", cfg.GCS.Bucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.addCloser("gcs client", client.Close)
		store, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket:        cfg.GCS.Bucket,
			PublicBaseURL: cfg.GCS.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs archive init failed: %w", err)
		}
		return store, nil
	case "local":
		a.logger.Info("using local archive", zap.String("path", cfg.Local.BaseDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local archive init failed: %w", err)
		}
		return store, nil
	default:
		a.logger.Warn("using in-memory archive; documents are discarded on exit")
		return memorystorage.NewObjectStore(), nil
	}
}

func (a *App) setupStore(ctx context.Context) (crawler.CaseStore, error) {
	cfg := a.cfg.Store
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("store config: %w", err)
	}
	switch cfg.Provider {
	case "mongo":
		a.logger.Info("using MongoDB case store",
			zap.String("database", cfg.Mongo.Database),
			zap.String("collection", cfg.Mongo.Collection),
		)
		store, err := mongostore.NewCaseStore(ctx, mongostore.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			Collection:     cfg.Mongo.Collection,
			ConnectTimeout: time.Duration(cfg.Mongo.ConnectTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("mongo store init failed: %w", err)
		}
		a.addCloser("mongo store", store.Close)
		return store, nil
	case "postgres":
		a.logger.Info("using Postgres case store", zap.String("table", cfg.Postgres.Table))
		store, err := pgstore.NewCaseStore(ctx, pgstore.Config{
			DSN:          cfg.Postgres.DSN,
			Table:        cfg.Postgres.Table,
			MaxConns:     cfg.Postgres.MaxConns,
			EnsureSchema: cfg.Postgres.EnsureSchema,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store init failed: %w", err)
		}
		a.addCloser("postgres store", store.Close)
		return store, nil
	default:
		a.logger.Warn("using in-memory case store; records are discarded on exit")
		return memorystorage.NewCaseStore(), nil
	}
}

// setupPublisher returns nil when no topic is configured; the Driver then
// skips notifications.
func (a *App) setupPublisher(ctx context.Context) (crawler.Publisher, error) {
	cfg := a.cfg.PubSub
	if cfg.Topic == "" {
		a.logger.Debug("no Pub/Sub topic configured, notifications disabled")
		return nil, nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	publisher := gcppublisher.New(client)
	a.addCloser("pubsub publisher", publisher.Close)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", cfg.ProjectID),
		zap.String("topic", cfg.Topic),
	)
	return publisher, nil
}

// Serve runs the operations server until ctx is done. It returns
// immediately when the server is disabled.
func (a *App) Serve(ctx context.Context) error {
	if a.API == nil {
		return nil
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.API.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close releases clients in reverse build order. Failures are logged.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}
