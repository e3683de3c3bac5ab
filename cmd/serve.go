package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giantswarm/mcp-oauth/storage/memory"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"

	"github.com/teemow/pillminder/internal/config"
	"github.com/teemow/pillminder/internal/digest"
	"github.com/teemow/pillminder/internal/feed"
	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/google"
	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/logging"
	"github.com/teemow/pillminder/internal/resources"
	"github.com/teemow/pillminder/internal/server"
	"github.com/teemow/pillminder/internal/session"
	"github.com/teemow/pillminder/internal/store"
	"github.com/teemow/pillminder/internal/tools/calendar_tools"
	"github.com/teemow/pillminder/internal/tools/prescription_tools"
	"github.com/teemow/pillminder/internal/tools/tasks_tools"
)

// Transport types accepted by --transport.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// stdioTokenEnv holds the Google access token used for every stdio tool call.
const stdioTokenEnv = "GOOGLE_ACCESS_TOKEN"

// startupTimeout bounds how long a listener may take to bind.
const startupTimeout = 5 * time.Second

type serveOptions struct {
	configFile string
	transport  string
	readOnly   bool
	debug      bool
	logFormat  string
}

// flagBindings maps config keys to the serve flags that override them.
var flagBindings = map[string]string{
	"http.addr":        "http-addr",
	"http.base_url":    "base-url",
	"metrics.enabled":  "metrics-enabled",
	"metrics.addr":     "metrics-addr",
	"store.path":       "store-path",
	"digest.enabled":   "digest",
	"digest.schedule":  "digest-schedule",
	"google.client_id": "google-client-id",
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and MCP server",
		Long: `Start the pillminder server.

Supports multiple transport types:
  - streamable-http: HTTP API under /api, MCP under /mcp, ICS feeds under /feeds
  - stdio: MCP over standard input/output

Sessions:
  HTTP requests carry the caller's Google access token as a bearer token.
  Over stdio every tool call uses the token in GOOGLE_ACCESS_TOKEN.

Configuration:
  Values are read from flags, then the environment, then the config file
  (--config or ./pillminder.yaml), then defaults. A .env file in the working
  directory is loaded into the environment first.

  Token refresh (optional):
    GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars
    Without these, cached tokens are used until they expire (~1 hour).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.Load(v, opts.configFile)
			if err != nil {
				return err
			}
			return runServe(opts, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.configFile, "config", "", "Config file (default: ./pillminder.yaml when present)")
	cmd.Flags().StringVar(&opts.transport, "transport", transportStreamableHTTP, "Transport type: streamable-http or stdio")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Only register tools that do not write to Google Calendar or Tasks")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", logging.FormatText, "Log format: text or json")

	addConfigFlags(cmd.Flags())
	bindFlags(v, cmd.Flags())

	return cmd
}

// addConfigFlags defines the flags listed in flagBindings. Defaults mirror
// the config defaults; unchanged flags never override the environment or
// the config file.
func addConfigFlags(flags *pflag.FlagSet) {
	flags.String("http-addr", ":8080", "HTTP server address. Can also use HTTP_ADDR env var.")
	flags.String("base-url", "", "Public base URL used in feed links. Can also use HTTP_BASE_URL env var. Example: https://pillminder.example.com")
	flags.Bool("metrics-enabled", false, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	flags.String("metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")
	flags.String("store-path", "pillminder.db", "SQLite database for saved prescriptions. Can also use STORE_PATH env var.")
	flags.Bool("digest", false, "Run the daily dose digest. Can also use DIGEST_ENABLED env var.")
	flags.String("digest-schedule", digest.DefaultSchedule, "Cron schedule of the digest. Can also use DIGEST_SCHEDULE env var.")
	flags.String("google-client-id", "", "Google OAuth Client ID for token refresh. Can also use GOOGLE_CLIENT_ID env var.")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for key, name := range flagBindings {
		// Every name in flagBindings is defined by addConfigFlags.
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

func runServe(opts serveOptions, cfg *config.Config) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout belongs to the MCP stream in stdio mode, so logs always go to stderr.
	logger := logging.NewLogger(os.Stderr, opts.logFormat, opts.debug)
	slog.SetDefault(logger)

	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", opts.transport, transportStreamableHTTP, transportStdio)
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	// Start metrics server if enabled and not in stdio mode
	if opts.transport != transportStdio && cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(provider, cfg.Metrics.Addr, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close store", logging.Err(err))
		}
	}()

	tokenStore := memory.New()
	defer tokenStore.Stop()
	tokenCache := session.NewTokenCache(tokenStore)

	gw := gateway.New(
		gateway.NewGoogleFactory(google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret)),
		gateway.Config{
			CalendarID: cfg.Reminders.CalendarID,
			TaskListID: cfg.Reminders.TaskListID,
			MaxResults: int64(cfg.Reminders.MaxResults),
			TimeZone:   cfg.Reminders.TimeZone,
		},
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
	)

	serverContext := server.NewServerContext(shutdownCtx, gw, st)
	serverContext.SetLogger(logger)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	if provider.Enabled() {
		serverContext.SetMetrics(metrics)
		serverContext.SetAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging))
	}

	baseURL := cfg.HTTP.BaseURL
	if baseURL == "" {
		baseURL = server.DefaultBaseURL(cfg.HTTP.Addr)
	}
	if cfg.FeedsEnabled() {
		signer, err := feed.NewSigner(cfg.Feed.Secret, cfg.Feed.TTL)
		if err != nil {
			return fmt.Errorf("failed to create feed signer: %w", err)
		}
		serverContext.SetFeedSigner(signer, baseURL)
	}

	if cfg.Digest.Enabled {
		scheduler, err := newDigestScheduler(cfg, st, gw, tokenCache, logger, metrics)
		if err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start digest: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			scheduler.Stop(ctx)
		}()
	}

	mcpSrv := mcpserver.NewMCPServer("pillminder", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	if opts.readOnly {
		logger.Info("starting server in read-only mode; write tools are not registered")
	}

	if err := registerAllTools(mcpSrv, serverContext, opts.readOnly); err != nil {
		return err
	}

	switch opts.transport {
	case transportStdio:
		return runStdioServer(mcpSrv, os.Getenv(stdioTokenEnv), logger)
	default:
		middleware := session.NewMiddleware(
			session.WithValidation(cfg.Google.ValidateTokens),
			session.WithTokenCache(tokenCache),
			session.WithLogger(logger),
			session.WithMetrics(metrics),
		)

		healthChecker := server.NewHealthChecker(serverContext)
		healthChecker.SetVersion(version)
		healthChecker.AddDependency("store", st)

		router := server.NewRouter(serverContext, server.RouterConfig{
			Session: middleware,
			Health:  healthChecker,
			MCP: mcpserver.NewStreamableHTTPServer(mcpSrv,
				mcpserver.WithEndpointPath("/mcp"),
			),
		})
		return runHTTPServer(shutdownCtx, router, cfg.HTTP.Addr, cfg.HTTP.BaseURL, healthChecker, logger)
	}
}

func startMetricsServer(provider *instrumentation.Provider, addr string, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(metricsReady); err != nil {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func newDigestScheduler(cfg *config.Config, st *store.Store, gw *gateway.Gateway, tokens google.TokenProvider, logger *slog.Logger, metrics *instrumentation.Metrics) (*digest.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Reminders.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone: %w", err)
	}
	scheduler, err := digest.New(cfg.Digest.Schedule, loc, st,
		digest.WithEvents(gw, tokens),
		digest.WithLogger(logger),
		digest.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create digest: %w", err)
	}
	return scheduler, nil
}

func runHTTPServer(ctx context.Context, handler http.Handler, addr, baseURL string, health *server.HealthChecker, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(handler, addr, baseURL, logger)
	if err != nil {
		return err
	}

	ready := make(chan struct{})
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start(ready)
	}()

	select {
	case <-ready:
		logger.Info("pillminder listening",
			"addr", httpServer.ListenAddr(),
			"mcp", "/mcp",
			"api", "/api",
			"health", "/healthz, /readyz")
	case err := <-serverErr:
		return fmt.Errorf("http server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return fmt.Errorf("http server startup timed out")
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down http server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		return nil
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

// stdioContextFunc attaches accessToken as the session of every stdio
// request. Without a token the tools report that no session is available.
func stdioContextFunc(accessToken string) mcpserver.StdioContextFunc {
	return func(ctx context.Context) context.Context {
		if accessToken == "" {
			return ctx
		}
		ctx = session.WithToken(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
		return session.WithLocalSession(ctx)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer, accessToken string, logger *slog.Logger) error {
	if accessToken == "" {
		logger.Warn("no Google access token for stdio; calendar and task tools will fail", "env", stdioTokenEnv)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv, mcpserver.WithStdioContextFunc(stdioContextFunc(accessToken))); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Calendar tools",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Tasks tools",
			register: func() error {
				return tasks_tools.RegisterTasksTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Prescription tools",
			register: func() error {
				return prescription_tools.RegisterPrescriptionTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Session resources",
			register: func() error {
				return resources.RegisterResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
