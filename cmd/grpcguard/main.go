// Package main is the entry point for the grpcguard server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/vyrodovalexey/grpcguard/internal/auth"
	"github.com/vyrodovalexey/grpcguard/internal/authz"
	"github.com/vyrodovalexey/grpcguard/internal/config"
	"github.com/vyrodovalexey/grpcguard/internal/middleware"
	"github.com/vyrodovalexey/grpcguard/internal/observability"
	"github.com/vyrodovalexey/grpcguard/internal/server"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	app := initApplication(cfg, logger)

	run(app, flags.configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GRPCGUARD_CONFIG_PATH", "configs/grpcguard.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("GRPCGUARD_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GRPCGUARD_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("grpcguard version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration. A malformed
// configuration, including an invalid rule set, is fatal at startup.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.GuardConfig {
	logger.Info("starting grpcguard",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	ruleCount := 0
	if cfg.Spec.Authorization != nil {
		ruleCount = len(cfg.Spec.Authorization.Rules)
	}

	logger.Info("configuration loaded",
		observability.String("name", cfg.Metadata.Name),
		observability.Bool("auth", cfg.Spec.Auth != nil && cfg.Spec.Auth.Enabled),
		observability.Bool("authorization", cfg.Spec.Authorization != nil && cfg.Spec.Authorization.Enabled),
		observability.Int("rules", ruleCount),
	)

	return cfg
}

// application holds all application components.
type application struct {
	server        *server.Server
	authenticator auth.GRPCAuthenticator
	authorizer    authz.Authorizer
	rateLimiter   *middleware.RateLimiter
	tracer        *observability.Tracer
	config        *config.GuardConfig
}

// initApplication initializes all application components.
func initApplication(cfg *config.GuardConfig, logger observability.Logger) *application {
	tracer := initTracer(cfg, logger)

	app := &application{
		tracer: tracer,
		config: cfg,
	}

	serverMetrics := middleware.NewMetrics("grpcguard")

	unary := []grpc.UnaryServerInterceptor{
		middleware.RecoveryUnaryInterceptor(
			middleware.WithRecoveryLogger(logger),
			middleware.WithRecoveryMetrics(serverMetrics),
		),
		middleware.RequestIDUnaryInterceptor(),
	}
	stream := []grpc.StreamServerInterceptor{
		middleware.RecoveryStreamInterceptor(
			middleware.WithRecoveryLogger(logger),
			middleware.WithRecoveryMetrics(serverMetrics),
		),
		middleware.RequestIDStreamInterceptor(),
	}

	if rl := cfg.Spec.RateLimit; rl != nil && rl.Enabled {
		limiter := middleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst,
			middleware.WithRateLimiterLogger(logger),
			middleware.WithRateLimiterMetrics(serverMetrics),
		)
		limiter.StartAutoCleanup()
		app.rateLimiter = limiter

		unary = append(unary, limiter.UnaryInterceptor())
		stream = append(stream, limiter.StreamInterceptor())
	}

	unary = append(unary, middleware.MetricsUnaryInterceptor(serverMetrics))
	stream = append(stream, middleware.MetricsStreamInterceptor(serverMetrics))

	app.authenticator = initAuthenticator(cfg, logger)
	if app.authenticator != nil {
		unary = append(unary, app.authenticator.UnaryInterceptor())
		stream = append(stream, app.authenticator.StreamInterceptor())
	}

	app.authorizer = initAuthorizer(cfg, logger)
	if app.authorizer != nil {
		guard := authz.NewGRPCAuthorizer(app.authorizer, authz.WithGRPCAuthorizerLogger(logger))
		unary = append(unary, guard.UnaryInterceptor())
		stream = append(stream, guard.StreamInterceptor())
	}

	srv, err := server.New(cfg.Spec.Server,
		server.WithLogger(logger),
		server.WithUnaryInterceptors(unary...),
		server.WithStreamInterceptors(stream...),
	)
	if err != nil {
		logger.Fatal("failed to create server", observability.Error(err))
	}
	app.server = srv

	return app
}

// initAuthenticator builds the authenticator, or returns nil when
// authentication is disabled.
func initAuthenticator(cfg *config.GuardConfig, logger observability.Logger) auth.GRPCAuthenticator {
	authCfg, err := auth.ConvertFromGuardConfig(cfg.Spec.Auth)
	if err != nil {
		logger.Fatal("invalid authentication configuration", observability.Error(err))
	}
	if authCfg == nil {
		logger.Info("authentication disabled")
		return nil
	}

	authMetrics := auth.NewMetrics("grpcguard")
	authMetrics.Init()

	authenticator, err := auth.NewGRPCAuthenticator(authCfg,
		auth.WithGRPCAuthenticatorLogger(logger),
		auth.WithGRPCAuthenticatorMetrics(authMetrics),
	)
	if err != nil {
		logger.Fatal("failed to create authenticator", observability.Error(err))
	}

	return authenticator
}

// initAuthorizer builds the authorizer. Rule compilation errors are fatal
// here so a broken rule set never serves traffic.
func initAuthorizer(cfg *config.GuardConfig, logger observability.Logger) authz.Authorizer {
	authzCfg, err := authz.ConvertFromGuardConfig(cfg.Spec.Authorization)
	if err != nil {
		logger.Fatal("invalid authorization configuration", observability.Error(err))
	}
	if authzCfg == nil {
		logger.Info("authorization disabled")
		return nil
	}

	authzMetrics := authz.NewMetrics("grpcguard")
	authzMetrics.Init()

	authorizer, err := authz.New(authzCfg,
		authz.WithAuthorizerLogger(logger),
		authz.WithAuthorizerMetrics(authzMetrics),
	)
	if err != nil {
		logger.Fatal("failed to create authorizer", observability.Error(err))
	}

	return authorizer
}

// initTracer initializes the tracer.
func initTracer(cfg *config.GuardConfig, logger observability.Logger) *observability.Tracer {
	tracerCfg := observability.TracerConfig{
		ServiceName:  "grpcguard",
		Enabled:      false,
		SamplingRate: 1.0,
	}

	if cfg.Spec.Observability != nil && cfg.Spec.Observability.Tracing != nil {
		tracerCfg.Enabled = cfg.Spec.Observability.Tracing.Enabled
		tracerCfg.SamplingRate = cfg.Spec.Observability.Tracing.SamplingRate
		tracerCfg.OTLPEndpoint = cfg.Spec.Observability.Tracing.OTLPEndpoint
		if cfg.Spec.Observability.Tracing.ServiceName != "" {
			tracerCfg.ServiceName = cfg.Spec.Observability.Tracing.ServiceName
		}
	}

	tracer, err := observability.NewTracer(tracerCfg)
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}

	return tracer
}

// run starts the server and blocks until shutdown.
func run(app *application, configPath string, logger observability.Logger) {
	ctx := context.Background()

	if err := app.server.Start(ctx); err != nil {
		logger.Fatal("failed to start server", observability.Error(err))
	}

	startMetricsServerIfEnabled(app, logger)
	watcher := startConfigWatcher(app, configPath, logger)

	waitForShutdown(app, watcher, logger)
}

// startMetricsServerIfEnabled starts the Prometheus scrape endpoint.
func startMetricsServerIfEnabled(app *application, logger observability.Logger) {
	obs := app.config.Spec.Observability
	if obs == nil || obs.Metrics == nil || !obs.Metrics.Enabled {
		return
	}

	metricsPath := obs.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	metricsPort := obs.Metrics.Port
	if metricsPort == 0 {
		metricsPort = 9100
	}

	go startMetricsServer(metricsPort, metricsPath, logger)
}

// startConfigWatcher starts the configuration watcher. Rule changes are
// applied by swapping the rule set; any other change requires a restart.
func startConfigWatcher(
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(newCfg *config.GuardConfig) {
		reloadRules(app, newCfg, logger)
	}, config.WithLogger(logger))

	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
	}

	return watcher
}

// reloadRules rebuilds the rule set from the new configuration and swaps it
// into the running authorizer. On any error the active rule set is kept.
func reloadRules(app *application, newCfg *config.GuardConfig, logger observability.Logger) {
	if app.authorizer == nil {
		return
	}

	authzCfg, err := authz.ConvertFromGuardConfig(newCfg.Spec.Authorization)
	if err != nil {
		logger.Error("reload rejected: invalid authorization configuration",
			observability.Error(err))
		return
	}
	if authzCfg == nil {
		logger.Warn("reload ignored: authorization cannot be disabled at runtime")
		return
	}

	rules, err := authz.BuildRuleSet(authzCfg.Rules)
	if err != nil {
		logger.Error("reload rejected: rule set failed to compile",
			observability.Error(err))
		return
	}

	app.authorizer.Swap(rules)
	logger.Info("authorization rules reloaded",
		observability.Int("rules", rules.Len()))
}

// waitForShutdown waits for a shutdown signal and stops everything.
func waitForShutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.server.GracefulStop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}

	if app.authorizer != nil {
		if err := app.authorizer.Close(); err != nil {
			logger.Error("failed to close authorizer", observability.Error(err))
		}
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("grpcguard stopped")
}

// startMetricsServer serves the Prometheus scrape endpoint.
func startMetricsServer(port int, path string, logger observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("starting metrics server",
		observability.String("address", addr),
		observability.String("metrics_path", path),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", observability.Error(err))
	}
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
