package serverapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TakashiAihara/preppin-sub000/internal/config"
	"github.com/TakashiAihara/preppin-sub000/internal/gqlschema"
	"github.com/TakashiAihara/preppin-sub000/internal/logging"
	"github.com/TakashiAihara/preppin-sub000/internal/middleware"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/observability"
	"github.com/TakashiAihara/preppin-sub000/internal/server"
	"github.com/TakashiAihara/preppin-sub000/internal/service"
	"github.com/TakashiAihara/preppin-sub000/internal/sqlfilter"
	"github.com/TakashiAihara/preppin-sub000/internal/store"
)

func otlpExporterConfig(c config.OTLPConfig) observability.OTLPExporterConfig {
	return observability.OTLPExporterConfig{
		Endpoint:          c.Endpoint,
		Protocol:          c.Protocol,
		Insecure:          c.Insecure,
		TLSCertFile:       c.TLSCertFile,
		TLSClientCertFile: c.TLSClientCertFile,
		TLSClientKeyFile:  c.TLSClientKeyFile,
		Headers:           c.Headers,
		Timeout:           c.Timeout,
		Compression:       c.Compression,
		RetryEnabled:      c.RetryEnabled,
		RetryMaxAttempts:  c.RetryMaxAttempts,
	}
}

func otelConfig(cfg *config.Config, otlp config.OTLPConfig) observability.Config {
	return observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Observability.Environment,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
		OTLP:             otlpExporterConfig(otlp),
	}
}

// InitLogger builds the process logger. With log exports on, records also
// flow to the OTLP logger provider, which the caller must shut down.
func InitLogger(ctx context.Context, cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	logsConfig := cfg.Observability.LogsConfig()
	logger.Info("initializing OpenTelemetry logging",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", logsConfig.Endpoint),
		slog.String("otlp_protocol", logsConfig.Protocol),
		slog.Bool("insecure", logsConfig.Insecure),
	)

	loggerProvider, err := observability.InitLoggerProvider(ctx, otelConfig(cfg, logsConfig))
	if err != nil {
		return nil, nil, err
	}

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)
	return logger, loggerProvider, nil
}

type appMetrics struct {
	validation *observability.ValidationMetrics
	queries    *observability.QueryMetrics
	auth       *observability.AuthMetrics
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, appMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, appMetrics{}, nil
	}

	meterProvider, err := observability.InitMeterProvider(otelConfig(cfg, config.OTLPConfig{}))
	if err != nil {
		return nil, appMetrics{}, err
	}

	var m appMetrics
	if m.validation, err = observability.InitValidationMetrics(); err != nil {
		return nil, appMetrics{}, err
	}
	if m.queries, err = observability.InitQueryMetrics(); err != nil {
		return nil, appMetrics{}, err
	}
	if m.auth, err = observability.InitAuthMetrics(); err != nil {
		return nil, appMetrics{}, err
	}
	logger.Info("OpenTelemetry metrics initialized",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("environment", cfg.Observability.Environment),
	)
	return meterProvider, m, nil
}

func initTracing(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	tracesConfig := cfg.Observability.TracesConfig()
	logger.Info("initializing OpenTelemetry tracing",
		slog.String("otlp_endpoint", tracesConfig.Endpoint),
		slog.String("otlp_protocol", tracesConfig.Protocol),
		slog.Bool("insecure", tracesConfig.Insecure),
		slog.Float64("sample_ratio", cfg.Observability.TraceSampleRatio),
	)
	return observability.InitTracerProvider(ctx, otelConfig(cfg, tracesConfig))
}

func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger, m *model.Schema, compiler *sqlfilter.Compiler) (*store.Store, error) {
	obs := cfg.Observability
	if obs.SQLCommenterEnabled && !obs.TracingEnabled {
		logger.Warn("SQLCommenter requires tracing to be enabled - skipping SQLCommenter")
	}
	st, err := store.Open(ctx, store.Config{
		DSN:            cfg.Database.ConnString(),
		MaxOpen:        cfg.Database.Pool.MaxOpen,
		MaxIdle:        cfg.Database.Pool.MaxIdle,
		MaxLifetime:    cfg.Database.Pool.MaxLifetime,
		ConnectTimeout: cfg.Database.ConnectionTimeout,
		RetryInterval:  cfg.Database.ConnectionRetryInterval,
		Tracing:        obs.TracingEnabled,
		Metrics:        obs.MetricsEnabled,
		SQLCommenter:   obs.SQLCommenterEnabled && obs.TracingEnabled,
	}, m, compiler, logger.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.Database.MigrateOnStart && st.Enabled() {
		if err := st.Migrate(); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}
	return st, nil
}

func oidcAuthConfig(cfg *config.Config) middleware.OIDCAuthConfig {
	auth := cfg.Server.Auth
	return middleware.OIDCAuthConfig{
		Enabled:       auth.OIDCEnabled,
		IssuerURL:     auth.OIDCIssuerURL,
		Audience:      auth.OIDCAudience,
		ClockSkew:     auth.OIDCClockSkew,
		SkipTLSVerify: auth.OIDCSkipTLSVerify,
	}
}

// buildRouter assembles the middleware chain and the API routes.
func buildRouter(ctx context.Context, cfg *config.Config, logger *logging.Logger, svc *service.Service, metrics appMetrics) (http.Handler, error) {
	chain := []func(http.Handler) http.Handler{
		middleware.Logging(logger),
		middleware.CORS(middleware.CORSConfig{
			Enabled:          cfg.Server.CORSEnabled,
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   cfg.Server.CORSAllowedMethods,
			AllowedHeaders:   cfg.Server.CORSAllowedHeaders,
			ExposeHeaders:    cfg.Server.CORSExposeHeaders,
			AllowCredentials: cfg.Server.CORSAllowCreds,
			MaxAge:           cfg.Server.CORSMaxAge,
		}),
	}
	if cfg.Server.RateLimitEnabled {
		chain = append(chain, middleware.RateLimit(middleware.RateLimitConfig{
			Enabled: true,
			RPS:     cfg.Server.RateLimitRPS,
			Burst:   cfg.Server.RateLimitBurst,
		}))
	}
	if cfg.Server.MaxBodyBytes > 0 {
		chain = append(chain, middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	}

	opts := server.Options{
		Service:             svc,
		Logger:              logger,
		Playground:          cfg.Server.PlaygroundEnabled,
		Middleware:          chain,
		HealthCheckTimeout:  cfg.Server.HealthCheckTimeout,
		MaterializeDefaults: cfg.Registry.MaterializeDefaults,
	}

	if cfg.Server.Auth.OIDCEnabled {
		auth, err := middleware.OIDCAuth(ctx, oidcAuthConfig(cfg), logger, metrics.auth)
		if err != nil {
			return nil, err
		}
		opts.Auth = auth
		logger.Info("OIDC authentication enabled", slog.String("issuer", cfg.Server.Auth.OIDCIssuerURL))
	}

	if cfg.Server.GraphQLEnabled {
		schema, err := gqlschema.Build(svc)
		if err != nil {
			return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
		}
		opts.GraphQL = &schema
	}

	if cfg.Observability.MetricsEnabled {
		opts.Metrics = promhttp.Handler()
	}
	return server.NewRouter(opts), nil
}

func wrapHTTPHandler(cfg *config.Config, logger *logging.Logger, handler http.Handler) http.Handler {
	if !cfg.Observability.MetricsEnabled && !cfg.Observability.TracingEnabled {
		return handler
	}
	logger.Info("HTTP instrumentation enabled")
	return otelhttp.NewHandler(handler, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return httpRootSpanName(r)
		}),
		otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
	)
}

func httpRootSpanName(r *http.Request) string {
	if r == nil {
		return "HTTP /*"
	}
	method := strings.TrimSpace(r.Method)
	if method == "" {
		method = "HTTP"
	}
	return method + " " + normalizeHTTPSpanRoute(r.URL.Path)
}

// normalizeHTTPSpanRoute maps a request path onto its route pattern so
// span names stay low-cardinality.
func normalizeHTTPSpanRoute(rawPath string) string {
	switch rawPath {
	case "/", "/graphql", "/health", "/metrics", "/v1/schemas":
		return rawPath
	}
	parts := strings.Split(strings.Trim(rawPath, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" {
		return "/*"
	}
	switch {
	case parts[1] == "schemas" && len(parts) == 3:
		return "/v1/schemas/{name}"
	case parts[1] == "schemas" && len(parts) == 4 && parts[3] == "validate":
		return "/v1/schemas/{name}/validate"
	case parts[1] == "entities" && len(parts) == 4 && (parts[3] == "sql" || parts[3] == "find"):
		return "/v1/entities/{entity}/" + parts[3]
	}
	return "/*"
}

func buildServer(cfg *config.Config, handler http.Handler, serverAddr string) *http.Server {
	return &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func startServer(cfg *config.Config, logger *logging.Logger, srv *http.Server, serverAddr string) chan error {
	serverErrors := make(chan error, 1)
	go func() {
		logAttrs := []any{
			slog.String("address", serverAddr),
			slog.String("api_prefix", "/v1"),
			slog.String("health_endpoint", "/health"),
			slog.String("log_level", cfg.Observability.Logging.Level),
			slog.Bool("database", cfg.Database.Enabled()),
		}
		if cfg.Server.GraphQLEnabled {
			logAttrs = append(logAttrs, slog.String("graphql_endpoint", "/graphql"))
		}
		if cfg.Observability.MetricsEnabled {
			logAttrs = append(logAttrs, slog.String("metrics_endpoint", "/metrics"))
		}
		if cfg.Server.RateLimitEnabled {
			logAttrs = append(logAttrs,
				slog.Float64("rate_limit_rps", cfg.Server.RateLimitRPS),
				slog.Int("rate_limit_burst", cfg.Server.RateLimitBurst),
			)
		}
		logger.Info("server starting", logAttrs...)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()
	return serverErrors
}
