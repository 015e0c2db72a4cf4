package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"wt-go/internal/config"
	"wt-go/internal/encryption"
	"wt-go/internal/events"
	"wt-go/internal/httpapi"
	"wt-go/internal/metrics"
	"wt-go/internal/store"
	"wt-go/internal/wt"
)

// CLISession scopes messages and in-flight state for commands run from the CLI.
const CLISession = "cli"

const shutdownTimeout = 10 * time.Second

// Options tune how a WTApp is assembled.
type Options struct {
	// RunID tags every log line written by this process.
	RunID string

	// Passphrase unlocks the private key when entries are encrypted at rest.
	// A nil Passphrase leaves the store locked: writes still work, reads fail.
	Passphrase func() (string, error)

	// LogLevel is the minimum level written to the log.
	LogLevel slog.Level
}

// WTApp is the application layer between the CLI and the screens.
// It constructs all dependencies from config, exposes high-level operations
// for the CLI, and releases the store, publisher and log file on Close.
type WTApp struct {
	cfg       *config.Config
	logger    wt.Logger
	logFile   *os.File
	rawStore  wt.ObjectStore
	objects   wt.ObjectStore
	publisher wt.Publisher
	metrics   *metrics.Metrics
	entries   *wt.EntryStore
	input     *wt.InputScreen
	dashboard *wt.DashboardScreen
	manage    *wt.ManageScreen
	server    *httpapi.Server
}

// NewWTApp creates a fully wired WTApp from the given config.
// A store without a bucket is not an error here: the app starts and every
// storage operation reports wt.ErrConfiguration instead.
// The caller must call Close when done.
func NewWTApp(ctx context.Context, cfg *config.Config, opts Options) (*WTApp, error) {
	slogger, logFile, err := newLogger(cfg.LogDir, opts.RunID, opts.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a := &WTApp{cfg: cfg, logger: logger, logFile: logFile, metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	loc, err := cfg.Server.Location()
	if err != nil {
		return nil, err
	}

	idgen, err := wt.NewSnowflakeGenerator(cfg.IDNode)
	if err != nil {
		return nil, fmt.Errorf("creating id generator: %w", err)
	}

	objects, err := a.openStore(ctx, opts.Passphrase)
	if err != nil {
		return nil, err
	}
	a.objects = objects

	publisher, err := events.NewPublisherFromConfig(cfg.Events, logger)
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	a.publisher = publisher
	observed := events.Observed(publisher, a.metrics)

	clock := wt.RealClock{}
	a.entries = wt.NewEntryStore(objects, cfg.Store.Prefix, logger)
	a.input = wt.NewInputScreen(a.entries, observed, clock, idgen, logger, cfg.Server.InputMessageTTL.Duration)
	a.dashboard = wt.NewDashboardScreen(a.entries, loc, logger)
	a.manage = wt.NewManageScreen(a.entries, observed, clock, loc, logger, cfg.Server.DeleteMessageTTL.Duration)

	a.server, err = httpapi.New(httpapi.Options{
		Entries:   a.entries,
		Input:     a.input,
		Dashboard: a.dashboard,
		Manage:    a.manage,
		Metrics:   a.metrics,
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating http server: %w", err)
	}

	ok = true
	return a, nil
}

// openStore builds the configured object store and layers encryption and
// instrumentation on top. It returns a nil store when the store is not
// configured.
func (a *WTApp) openStore(ctx context.Context, passphrase func() (string, error)) (wt.ObjectStore, error) {
	raw, err := store.NewStoreFromConfig(ctx, a.cfg.Store)
	if errors.Is(err, wt.ErrConfiguration) {
		a.logger.Warn("object store not configured, storage operations will fail", "type", a.cfg.Store.Type, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating object store: %w", err)
	}
	a.rawStore = raw

	objects := raw
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil {
		var dc wt.DecryptionContext
		if passphrase != nil && enc.IsConfigured() {
			pass, err := passphrase()
			if err != nil {
				return nil, fmt.Errorf("reading passphrase: %w", err)
			}
			if dc, err = enc.Unlock(pass); err != nil {
				return nil, fmt.Errorf("unlocking private key: %w", err)
			}
		}
		objects = store.NewEncryptedStore(objects, enc, dc)
	}

	return store.NewInstrumentedStore(objects, a.metrics, wt.RealClock{}), nil
}

// Handler returns the HTTP handler serving the screens and the JSON API.
func (a *WTApp) Handler() http.Handler {
	return a.server
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// the server down gracefully.
func (a *WTApp) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		a.logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// CheckStore verifies the object store is configured and reachable, and that
// the encryption keys exist when encryption is on.
func (a *WTApp) CheckStore(ctx context.Context) error {
	if a.objects == nil {
		return wt.ErrConfiguration
	}
	err := a.objects.ValidateSetup(ctx)
	if err == nil || errors.Is(err, wt.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", wt.ErrStorageUnavailable, err)
}

// AddEntry saves a new measurement taken now.
func (a *WTApp) AddEntry(ctx context.Context, form wt.MeasurementForm) (*wt.MeasurementEntry, error) {
	_, entry, err := a.input.Submit(ctx, CLISession, form)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries returns every stored entry as display rows, newest first.
func (a *WTApp) ListEntries(ctx context.Context) ([]wt.Row, error) {
	if !a.entries.Configured() {
		return nil, wt.ErrConfiguration
	}
	view := a.manage.Load(ctx, CLISession)
	if view.State == wt.StateError {
		return nil, wt.ErrStorageUnavailable
	}
	return view.Rows, nil
}

// DeleteEntry removes the entry with id. The caller is responsible for
// having asked the user first.
func (a *WTApp) DeleteEntry(ctx context.Context, id int64) error {
	return a.manage.Delete(ctx, CLISession, id, true)
}

// Logger returns the application logger.
func (a *WTApp) Logger() wt.Logger {
	return a.logger
}

// Close releases the publisher, the store and the log file.
func (a *WTApp) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if c, ok := a.rawStore.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}
