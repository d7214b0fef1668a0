package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"

	"github.com/manaskarra/pdash/api/config"
	"github.com/manaskarra/pdash/api/dataset"
	"github.com/manaskarra/pdash/api/handlers"
	"github.com/manaskarra/pdash/api/insights"
	"github.com/manaskarra/pdash/api/metrics"
	"github.com/manaskarra/pdash/api/server"
	"github.com/manaskarra/pdash/api/store"
	"github.com/manaskarra/pdash/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	bindFlag := flag.String("bind", "0.0.0.0", "Address to bind the HTTP server to (or set BIND_HOST env var)")
	portFlag := flag.Int("port", 8000, "Port to listen on (or set PORT env var)")
	refreshIntervalFlag := flag.Duration("refresh-interval", 5*time.Minute, "Interval between monthly metrics snapshot refreshes")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 30*time.Second, "Maximum time to wait for in-flight requests during graceful shutdown")
	envFileFlag := flag.String("env-file", "", "Optional .env file to load before reading the environment")

	flag.Parse()

	if *envFileFlag != "" {
		if err := godotenv.Load(*envFileFlag); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", *envFileFlag, err)
		}
	} else {
		// Best effort: a .env in the working directory is optional.
		_ = godotenv.Load()
	}

	log := logger.New(*verboseFlag)

	if env := os.Getenv("BIND_HOST"); env != "" {
		*bindFlag = env
	}
	if env := os.Getenv("PORT"); env != "" {
		var port int
		if _, err := fmt.Sscanf(env, "%d", &port); err != nil || port <= 0 {
			return fmt.Errorf("invalid PORT value %q", env)
		}
		*portFlag = port
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Release:          version,
			EnableTracing:    true,
			TracesSampleRate: 0.1,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(5 * time.Second)
		log.Info("sentry initialized")
	}

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := config.LoadPostgres(ctx, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	db := store.New(pool, log)
	clock := clockwork.NewRealClock()

	manager := dataset.NewManager(db, *refreshIntervalFlag, clock, log)
	if err := manager.Start(ctx); err != nil {
		// The API can come up without data; the refresh loop keeps retrying
		// and the snapshot endpoints report "No data available" until then.
		log.Warn("initial snapshot load failed", "error", err)
	}
	defer manager.Stop()

	var ins handlers.InsightsGenerator
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		ins = insights.New(log)
		log.Info("AI insights enabled")
	} else {
		log.Info("ANTHROPIC_API_KEY not set, AI insights disabled")
	}

	srv := server.New(*bindFlag, *portFlag, handlers.New(manager, db, ins, clock, log), allowedOrigins(), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *shutdownTimeoutFlag)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// allowedOrigins returns the CORS origins for the dashboard UI. Defaults to
// local dev servers; override with a comma-separated CORS_ORIGINS env var.
func allowedOrigins() []string {
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		parts := strings.Split(env, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		return origins
	}
	return []string{"http://localhost:3000", "http://localhost:5173", "http://127.0.0.1:3000", "http://127.0.0.1:5173"}
}
