// Package server assembles the account service from configuration and runs
// its HTTP API and gRPC health endpoint until a signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/avatars"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/credentials"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/lifecycle"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/tokens"
	"github.com/labstack/echo/v4/middleware"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const (
	jwtIssuer      = "gophauth"
	natsClientName = "gophauth"
	healthInterval = 15 * time.Second
)

var (
	openDB      = repomanager.OpenDB
	connectNATS = func(url, name string) (notify.Publisher, func() error, error) {
		nc, err := notify.ConnectNATS(url, name)
		if err != nil {
			return nil, nil, err
		}
		return nc, nc.Drain, nil
	}
	newRedisClient           = ratelimit.NewClient
	newAvatarStore           = avatars.NewS3Store
	mailOutput     io.Writer = os.Stdout
)

type App struct {
	config *config.Config
	logger logging.Logger

	db         *sql.DB
	accounts   *services.AccountService
	dispatcher *notify.Dispatcher
	limiter    middleware.RateLimiterStore

	// closers run in reverse order on Close.
	closers []func() error
}

// NewApp connects to the database, applies migrations and builds the
// account service with its notifier, avatar store and rate limiter.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	return newApp(ctx, cfg, logger)
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (app *App, err error) {
	app = &App{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	collab, err := app.collaborators(ctx)
	if err != nil {
		return nil, err
	}

	app.limiter, err = app.rateLimiter(ctx)
	if err != nil {
		return nil, err
	}

	app.accounts = services.NewAccountService(dbx.NewSQLTxRunner(db, nil), rm, cfg, collab)
	return app, nil
}

func (app *App) collaborators(ctx context.Context) (services.Collaborators, error) {
	cfg := app.config

	hasher, err := credentials.NewHasher(credentials.DefaultParams())
	if err != nil {
		return services.Collaborators{}, err
	}

	gen, err := tokens.NewGenerator([]byte(cfg.SecretKey), cfg.AccountTokenValidityDuration)
	if err != nil {
		return services.Collaborators{}, err
	}

	issuer, err := auth.NewIssuer(auth.StaticSecret(cfg.SecretKey), jwtIssuer,
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration, time.Now)
	if err != nil {
		return services.Collaborators{}, err
	}

	notifier, err := app.notifier()
	if err != nil {
		return services.Collaborators{}, err
	}

	c := services.Collaborators{
		Hasher:   hasher,
		Policy:   credentials.NewPolicy(cfg.MinPasswordLength),
		Tokens:   gen,
		Sessions: issuer,
		Machine:  lifecycle.New(app.logger),
		Notifier: notifier,
		Logger:   app.logger,
	}

	if cfg.AvatarsEnabled {
		store, err := newAvatarStore(ctx, avatars.Config{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			return services.Collaborators{}, fmt.Errorf("avatar store init error: %w", err)
		}
		c.Avatars = store
	}

	return c, nil
}

// notifier picks the mail backend and puts the retrying dispatcher in front
// of it.
func (app *App) notifier() (notify.Notifier, error) {
	cfg := app.config
	logger := app.logger.With("module", "notify")

	renderer, err := notify.NewRenderer(cfg.MailFromName)
	if err != nil {
		return nil, err
	}

	var mailer notify.Mailer
	switch cfg.Notifier {
	case config.NotifierSendGrid:
		mailer = notify.NewSendGridMailer(cfg.SendGridAPIKey)
	case config.NotifierNATS:
		pub, drain, err := connectNATS(cfg.NATSURL, natsClientName)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, drain)
		mailer = notify.NewNATSMailer(pub, cfg.NATSSubjectPrefix)
	default:
		mailer = notify.NewConsoleMailer(mailOutput, logger)
	}

	base := notify.NewMailNotifier(renderer, mailer, notify.Sender{Email: cfg.MailFrom, Name: cfg.MailFromName})
	app.dispatcher = notify.NewDispatcher(base, logger, app.dispatcherOptions())
	return app.dispatcher, nil
}

func (app *App) dispatcherOptions() notify.DispatcherOptions {
	cfg := app.config
	return notify.DispatcherOptions{
		Workers:    cfg.NotifyWorkers,
		QueueSize:  cfg.NotifyQueueSize,
		MaxRetries: uint64(max(cfg.NotifyMaxRetries, 0)),
		RetryBase:  cfg.NotifyRetryBase,
		RetryCap:   cfg.NotifyRetryCap,
	}
}

func (app *App) rateLimiter(ctx context.Context) (middleware.RateLimiterStore, error) {
	cfg := app.config
	if cfg.RateLimitPerMinute <= 0 {
		return nil, nil
	}

	if cfg.RateLimitStore == config.RateLimitRedis {
		client, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		return ratelimit.NewRedisStore(client, cfg.RateLimitPerMinute, time.Minute), nil
	}

	return httpapi.NewMemoryRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst), nil
}

// Accounts exposes the service for command-line tools sharing the wiring.
func (app *App) Accounts() *services.AccountService {
	return app.accounts
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a signal arrives or a server fails,
// then shuts everything down.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	api := httpapi.NewServer(app.accounts, app.logger, httpapi.Options{
		Address:               app.config.HTTPAddr,
		APIVersion:            app.config.APIVersion,
		ShutdownTimeout:       app.config.ShutdownTimeout,
		MaskUnknownResetEmail: app.config.MaskUnknownResetEmail,
		RateLimiter:           app.limiter,
	})
	health := gs.NewHealthServer(app.config.HealthAddrGRPC, app.logger)
	health.SetServing(true)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name+" stopped", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	run("http server", api.Run)
	run("grpc health server", health.Run)
	wg.Add(1)
	go func() {
		defer wg.Done()
		health.Monitor(ctx, healthInterval, app.db.PingContext)
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "Stopping app...")

	return errors.Join(append(errs, app.Close())...)
}

// Close drains queued notifications and releases connections.
func (app *App) Close() error {
	var errs []error
	if app.dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		if err := app.dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("notification dispatcher: %w", err))
		}
		cancel()
	}
	return errors.Join(append(errs, app.closeAll())...)
}

func (app *App) closeAll() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
