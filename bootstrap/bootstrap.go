// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/memomeet/memomeet/adapters/auth"
	"github.com/memomeet/memomeet/adapters/clock"
	apihttp "github.com/memomeet/memomeet/adapters/http"
	"github.com/memomeet/memomeet/adapters/idgen"
	"github.com/memomeet/memomeet/adapters/metrics"
	"github.com/memomeet/memomeet/adapters/tls"
	"github.com/memomeet/memomeet/app"
	"github.com/memomeet/memomeet/config"
	"github.com/memomeet/memomeet/docs"
	"github.com/memomeet/memomeet/ports"
	"github.com/memomeet/memomeet/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful drain of in-flight requests.
const shutdownTimeout = 30 * time.Second

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Metrics    *metrics.Collector
	Stores     *Stores
	HTTPServer *http.Server

	Tokens    *auth.TokenService
	Accounts  *app.AccountService
	Billing   *app.BillingService
	Events    *app.BillingEventService
	Summaries *app.SummaryService

	// challenge answers ACME HTTP-01 challenges when automatic TLS is enabled.
	challenge *http.Server

	holder    *config.Holder
	closeOnce sync.Once
}

// Options configures application initialization.
type Options struct {
	// ConfigPath is watched for changes when the file exists. Without it the
	// configuration comes from MEMOMEET_* environment variables.
	ConfigPath string
	Version    string

	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// New loads the configuration and creates the application.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	a, err := NewWithConfig(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	if opts.ConfigPath != "" {
		if _, statErr := os.Stat(opts.ConfigPath); statErr == nil {
			holder, err := config.NewHolder(opts.ConfigPath, a.Logger)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.attachHolder(holder)
		}
	}
	return a, nil
}

// NewWithConfig creates the application from an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := setupLogger(cfg.Logging, out)
	logger.Info().Msg("initializing memomeet")

	a := &App{Logger: logger, Config: cfg}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.Metrics = metrics.NewWithRegistry(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	stores, err := OpenStores(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.Stores = stores

	if err := a.initServices(); err != nil {
		a.Close()
		return nil, err
	}

	var apiDocs http.Handler
	if !cfg.Server.DisableDocs {
		if opts.Version != "" {
			docs.SwaggerInfo.Version = opts.Version
		}
		apiDocs = docs.Handler("/swagger/")
	}

	router := apihttp.NewRouter(apihttp.RouterConfig{
		API: web.NewHandler(web.Deps{
			Tokens:         a.Tokens,
			Accounts:       a.Accounts,
			Billing:        a.Billing,
			Events:         a.Events,
			Summaries:      a.Summaries,
			Metrics:        a.Metrics,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Logger:         logger.With().Str("component", "web").Logger(),
		}).Router(),
		Health:         apihttp.NewHealthHandler(map[string]apihttp.HealthChecker{"database": stores.Health}),
		Metrics:        a.Metrics,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Metrics.Path,
		Version:        opts.Version,
		Docs:           apiDocs,
	}, logger)

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Server.TLS.Enabled {
		certs, err := tls.NewManager(tls.Config{
			Domains:  cfg.Server.TLS.Domains,
			Email:    cfg.Server.TLS.Email,
			CacheDir: cfg.Server.TLS.CacheDir,
			Staging:  cfg.Server.TLS.Staging,
			HTTPHost: cfg.Server.Host,
			HTTPPort: cfg.Server.TLS.HTTPPort,
		}, logger.With().Str("component", "tls").Logger())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init tls: %w", err)
		}
		a.HTTPServer.TLSConfig = certs.TLSConfig()
		a.challenge = certs.ChallengeServer()
		logger.Info().Strs("domains", cfg.Server.TLS.Domains).Msg("automatic tls enabled")
	}

	return a, nil
}

func (a *App) initServices() error {
	cfg := a.Config

	catalog, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("price catalog: %w", err)
	}

	caps, err := NewCapabilities(cfg, a.Metrics, a.Logger)
	if err != nil {
		return err
	}

	var billingMetrics ports.BillingMetrics = metrics.Nop{}
	if a.Metrics != nil {
		billingMetrics = a.Metrics
	}
	clk := clock.Real{}

	a.Tokens = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenExpiration)

	a.Events = app.NewBillingEventService(
		a.Stores.Accounts,
		a.Stores.Events,
		caps.WebhookProviders(),
		catalog,
		clk,
		billingMetrics,
		a.Logger.With().Str("component", "billing_events").Logger(),
	)

	a.Accounts = app.NewAccountService(
		a.Stores.Accounts,
		a.Stores.Events,
		idgen.UUID{},
		clk,
		billingMetrics,
		a.Logger.With().Str("component", "accounts").Logger(),
	)

	a.Billing = app.NewBillingService(
		a.Accounts,
		a.Stores.Accounts,
		caps.Payment,
		a.Events,
		app.BillingURLs{SuccessURL: cfg.Billing.SuccessURL, CancelURL: cfg.Billing.CancelURL},
		a.Logger.With().Str("component", "billing").Logger(),
	)

	gate := app.NewUsageGate(
		a.Stores.Accounts,
		clk,
		billingMetrics,
		a.Logger.With().Str("component", "usage_gate").Logger(),
		app.GateConfig{
			OperationTimeout: cfg.Usage.OperationTimeout,
			ReservationLease: cfg.Usage.ReservationLease,
		},
	)

	a.Summaries = app.NewSummaryService(
		a.Stores.Summaries,
		a.Accounts,
		gate,
		caps.Summarizer,
		caps.Exporter,
		idgen.Prefixed{Prefix: "sum_"},
		clk,
		a.Logger.With().Str("component", "summaries").Logger(),
	)

	return nil
}

// attachHolder pushes reloaded configuration into the running services.
func (a *App) attachHolder(h *config.Holder) {
	a.holder = h
	h.OnChange(a.applyConfig)
	h.OnError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})
}

// applyConfig applies the hot-reloadable fields of cfg.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		a.Logger.Error().Err(err).Msg("reloaded price catalog is invalid, keeping the current one")
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
		return
	}
	a.Events.UpdateCatalog(catalog)

	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	}
	a.Logger.Info().Int("prices", catalog.Len()).Msg("price catalog updated")
}

// Run starts the HTTP server and blocks until ctx is done, a termination
// signal arrives or the server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if a.holder != nil {
		g.Go(func() error {
			if err := a.holder.Watch(gctx); err != nil {
				a.Logger.Warn().Err(err).Msg("config hot reload disabled")
			}
			return nil
		})
	}

	g.Go(func() error {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Bool("tls", a.challenge != nil).Msg("starting http server")
		var err error
		if a.challenge != nil {
			err = a.HTTPServer.ListenAndServeTLS("", "")
		} else {
			err = a.HTTPServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.challenge != nil {
		g.Go(func() error {
			a.Logger.Info().Str("addr", a.challenge.Addr).Msg("starting acme challenge server")
			if err := a.challenge.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("challenge server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("shutting down")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops the server and releases resources.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for _, srv := range []*http.Server{a.challenge, a.HTTPServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Str("addr", srv.Addr).Msg("http server shutdown error")
			errs = append(errs, err)
		}
	}
	return errors.Join(append(errs, a.Close())...)
}

// Close releases the database. It is safe to call twice.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.Stores != nil {
			err = a.Stores.Close()
		}
	})
	return err
}

// setupLogger builds the root logger from the logging config.
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
