package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluxorio/mtp/pkg/config"
	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/i18n"
	"github.com/fluxorio/mtp/pkg/natsbridge"
	tracing "github.com/fluxorio/mtp/pkg/observability/otel"
	metrics "github.com/fluxorio/mtp/pkg/observability/prometheus"
	"github.com/fluxorio/mtp/pkg/transactions/store"
	"github.com/fluxorio/mtp/pkg/views"
	"github.com/fluxorio/mtp/pkg/web"
	"github.com/fluxorio/mtp/pkg/web/api"
	"github.com/fluxorio/mtp/pkg/web/health"
	"github.com/fluxorio/mtp/pkg/web/middleware"
	"github.com/fluxorio/mtp/pkg/web/middleware/auth"
	"github.com/fluxorio/mtp/pkg/web/middleware/security"
	"github.com/fluxorio/mtp/pkg/web/push"
)

const version = "0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "hash-password":
			hashPassword(os.Args[2:])
			return
		case "version", "-v", "--version":
			fmt.Printf("mtp-frontend version %s\n", version)
			return
		}
	}

	configPath := flag.String("config", os.Getenv("MTP_CONFIG"), "path to a YAML or JSON config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func hashPassword(args []string) {
	cmd := flag.NewFlagSet("hash-password", flag.ExitOnError)
	cmd.Parse(args)
	if cmd.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: mtp-frontend hash-password <password>\n")
		os.Exit(1)
	}
	hash, err := auth.HashPassword(cmd.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := core.NewLogger(core.LoggerConfig{JSONOutput: cfg.Log.JSON, Level: cfg.Log.Level})
	logger.Info(fmt.Sprintf("starting mtp-frontend %s with profile %s", version, cfg.Profile))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tracing.Initialize(ctx, tracing.Config{
		ServiceName:    "mtp-frontend",
		ServiceVersion: version,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		Environment:    cfg.Profile,
		SampleRate:     cfg.Tracing.SampleRate,
	}); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracing shutdown:", err)
		}
	}()

	m := metrics.NewMetrics()

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()
	if cfg.Database.Migrate {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	checks := health.NewRegistry()
	checks.Register("database", health.PingCheck(st))

	// shut down after vertx.Close so the bridge can drain
	natsURL := cfg.NATS.URL
	if cfg.NATS.Enabled && cfg.NATS.Embedded {
		ns, err := natsbridge.RunEmbedded(natsbridge.EmbeddedOptions{})
		if err != nil {
			return err
		}
		defer ns.Shutdown()
		natsURL = ns.ClientURL()
		logger.Info("embedded nats server at", natsURL)
	}

	vertx := core.NewVertxWithOptions(ctx, core.VertxOptions{Logger: logger})
	defer vertx.Close()

	if cfg.NATS.Enabled {
		bridgeOpts := natsbridge.Options{URL: natsURL, Subject: cfg.NATS.Subject, Queue: cfg.NATS.Queue}
		if cfg.NATS.Record {
			bridgeOpts.Recorder = st
		}
		bridge := natsbridge.NewBridge(bridgeOpts)
		if _, err := vertx.DeployVerticle(bridge); err != nil {
			return err
		}
		checks.Register("nats", health.StatusCheck("nats", bridge.Connected))
	}

	accounts := auth.NewAccounts()
	for _, a := range cfg.Auth.Accounts {
		accounts.Put(auth.Account{Login: a.Login, PasswordHash: a.PasswordHash, Roles: a.Roles})
	}
	tokens := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenValidity)
	catalog := i18n.NewCatalog(os.DirFS(cfg.I18n.Root))
	if available, err := catalog.Languages(); err != nil {
		logger.Error(fmt.Sprintf("list translations in %s: %v", cfg.I18n.Root, err))
	} else {
		for _, missing := range missingLanguages(cfg.I18n.Languages, available) {
			logger.Error(fmt.Sprintf("language %s has no translations in %s", missing, cfg.I18n.Root))
		}
	}

	httpConfig := web.DefaultFastHTTPServerConfig(cfg.HTTP.Addr)
	httpConfig.MaxInFlight = cfg.HTTP.MaxInFlight
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout

	httpVerticle := web.NewFastHTTPVerticle(httpConfig, func(s *web.FastHTTPServer) error {
		router := s.Router()
		router.Use(
			middleware.RequestID(),
			middleware.Recovery(middleware.RecoveryConfig{Logger: logger}),
			middleware.Logging(middleware.LoggingConfig{Logger: logger, SkipPaths: []string{"/health", "/metrics"}}),
			m.Middleware(),
			tracing.HTTPMiddleware(),
			security.Headers(security.DefaultHeadersConfig()),
		)
		if len(cfg.HTTP.AllowedOrigins) > 0 {
			cors := security.DefaultCORSConfig()
			cors.AllowedOrigins = cfg.HTTP.AllowedOrigins
			router.Use(security.CORS(cors))
		}
		if cfg.IsProd() {
			caching := middleware.DefaultCachingConfig()
			caching.TTL = cfg.HTTP.CacheTTL
			router.Use(middleware.CachingHeaders(caching))
		}
		router.Use(middleware.Compression(middleware.DefaultCompressionConfig()))

		api.Mount(router, api.Options{
			States:   views.Catalog(),
			Store:    st,
			Accounts: accounts,
			Tokens:   tokens,
			Catalog:  catalog,
			Health:   health.NewAggregator(checks),
			Metrics:  m,
			Logger:   logger,
		})
		router.NotFound(web.StaticHandler(web.StaticConfig{
			Root:          cfg.HTTP.WebRoot,
			Dist:          cfg.IsProd(),
			CacheDuration: time.Minute,
		}))
		return nil
	})
	if _, err := vertx.DeployVerticle(httpVerticle); err != nil {
		return err
	}

	pushServer := push.NewServer(push.Options{
		Addr:           cfg.Push.Addr,
		Bus:            vertx.EventBus(),
		Store:          st,
		Tokens:         tokens,
		Catalog:        catalog,
		Languages:      cfg.I18n.Languages,
		Metrics:        m,
		Logger:         logger,
		WriteTimeout:   cfg.Push.WriteTimeout,
		PingInterval:   cfg.Push.PingInterval,
		AllowedOrigins: cfg.Push.AllowedOrigins,
	})
	if _, err := vertx.DeployVerticle(pushServer); err != nil {
		return err
	}

	logger.Info("mtp-frontend started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down...")
	return nil
}

// missingLanguages returns the configured languages absent from available
func missingLanguages(configured, available []string) []string {
	have := make(map[string]bool, len(available))
	for _, l := range available {
		have[l] = true
	}
	var missing []string
	for _, l := range configured {
		if !have[l] {
			missing = append(missing, l)
		}
	}
	return missing
}
