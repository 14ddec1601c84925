package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	lchttp "github.com/lana-info/llm-council/internal/adapter/http"
	"github.com/lana-info/llm-council/internal/adapter/mcp"
	lcnats "github.com/lana-info/llm-council/internal/adapter/nats"
	"github.com/lana-info/llm-council/internal/adapter/natskv"
	"github.com/lana-info/llm-council/internal/adapter/otel"
	"github.com/lana-info/llm-council/internal/adapter/postgres"
	"github.com/lana-info/llm-council/internal/adapter/ristretto"
	"github.com/lana-info/llm-council/internal/adapter/tiered"
	"github.com/lana-info/llm-council/internal/adapter/ws"
	"github.com/lana-info/llm-council/internal/config"
	"github.com/lana-info/llm-council/internal/domain/skill"
	"github.com/lana-info/llm-council/internal/domain/tier"
	"github.com/lana-info/llm-council/internal/logger"
	"github.com/lana-info/llm-council/internal/middleware"
	"github.com/lana-info/llm-council/internal/port/a2a"
	"github.com/lana-info/llm-council/internal/port/cache"
	"github.com/lana-info/llm-council/internal/resilience"
	"github.com/lana-info/llm-council/internal/secrets"
	"github.com/lana-info/llm-council/internal/service"
)

const version = "0.1.0"

func main() {
	// Missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && args[0][0] != '-' {
		cmd = args[0]
		args = args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "consult":
		err = runConsult(args, false)
	case "verify":
		err = runConsult(args, true)
	case "skills":
		err = runSkills(args)
	case "admin":
		err = runAdmin(args)
	case "version":
		fmt.Println("council " + version)
	case "help", "--help", "-h":
		printHelp()
	default:
		printHelp()
		err = fmt.Errorf("unknown command: %s", cmd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: council <command> [options]

Commands:
  serve     Start the HTTP API (and MCP server when enabled)
  consult   Run one deliberation from the command line
  verify    Run a verification deliberation and print the verdict
  skills    Inspect the skill library (list, show)
  admin     Administrative commands (apikey)
  version   Print the version
  help      Show this help message
`)
}

func runServe(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return err
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Server.Port,
		"provider", cfg.Router.Provider,
		"default_tier", cfg.Council.DefaultTier,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := otel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Routers ---
	vault, err := secrets.NewVault(secrets.ProviderLoader())
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	registry, err := buildRegistry(ctx, cfg, vault)
	if err != nil {
		return err
	}

	breakers := resilience.NewGroup(
		cfg.Breaker.FailureThreshold,
		cfg.Breaker.SuccessThreshold,
		cfg.Breaker.Timeout,
	)
	breakers.OnTransition(func(name string, from, to resilience.State) {
		metrics.BreakerTransitions.Add(context.Background(), 1,
			otel.TransitionAttrs(name, from.String(), to.String()))
	})

	// --- Optional infrastructure ---
	deps := service.CouncilDeps{
		Routers:  registry,
		Breakers: breakers,
		Metrics:  metrics,
		Secrets:  vault,
	}

	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		deps.History = postgres.NewHistoryStore(pool)
		slog.Info("deliberation history enabled")
	}

	var queue *lcnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = lcnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
		deps.Events = queue
		slog.Info("event publishing enabled", "url", cfg.NATS.URL)
	}

	if cfg.Cache.Enabled {
		deps.Cache, err = buildCache(ctx, cfg, queue)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}

	hub := ws.NewHub()
	deps.Hub = hub

	// --- Services ---
	council := service.NewCouncilService(cfg.Council, cfg.Cache.TTL, deps)
	skills := skill.NewLoader(cfg.Skills.Dir)

	// --- MCP ---
	if cfg.MCP.Enabled {
		var mcpKeyHashes []string
		if cfg.Auth.Enabled {
			mcpKeyHashes = cfg.Auth.KeyHashes
		}
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Addr:        cfg.MCP.Addr,
			Name:        "llm-council",
			Version:     version,
			KeyHashes:   mcpKeyHashes,
			DefaultTier: cfg.Council.DefaultTier,
		}, mcp.ServerDeps{
			Deliberator:   council,
			Verifier:      council,
			HealthChecker: council,
			Skills:        skills,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mcpSrv.Stop(stopCtx)
		}()
	}

	// --- HTTP ---
	handlers := &lchttp.Handlers{
		Council:     council,
		Verifier:    council,
		Health:      council,
		History:     deps.History,
		Skills:      skills,
		Breakers:    breakers,
		Hub:         hub,
		DefaultTier: cfg.Council.DefaultTier,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(lchttp.SecurityHeaders)
	r.Use(lchttp.CORS(cfg.Server.CORSOrigin))
	r.Use(lchttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware("council-api"))
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	apiMW := []func(http.Handler) http.Handler{limiter.Handler}
	if cfg.Auth.Enabled {
		apiMW = append(apiMW, middleware.APIKeyAuth(cfg.Auth.KeyHashes))
	}
	lchttp.MountRoutes(r, handlers, apiMW...)

	a2a.NewHandler("http://localhost:" + cfg.Server.Port).MountRoutes(r)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Deliberations run synchronously; the write timeout must
		// outlast the longest tier deadline.
		WriteTimeout: tier.MaxDeadline() + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// buildCache assembles the cache stack: ristretto L1 always, NATS KV L2
// when a queue is connected.
func buildCache(ctx context.Context, cfg *config.Config, queue *lcnats.Queue) (cache.Cache, error) {
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		return l1, nil
	}
	kv, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}
	return tiered.New(l1, natskv.New(kv), cfg.Cache.TTL), nil
}
