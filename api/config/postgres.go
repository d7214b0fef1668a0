package config

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver with database/sql
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var EmbedMigrations embed.FS

// PgConfig holds the PostgreSQL configuration
type PgConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
}

// LoadPostgres reads POSTGRES_* environment variables, connects a pgx pool
// and optionally runs migrations when POSTGRES_RUN_MIGRATIONS=true.
func LoadPostgres(ctx context.Context, log *slog.Logger) (*pgxpool.Pool, error) {
	var cfg PgConfig

	cfg.Host = os.Getenv("POSTGRES_HOST")
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	cfg.Port = os.Getenv("POSTGRES_PORT")
	if cfg.Port == "" {
		cfg.Port = "5432"
	}

	cfg.Database = os.Getenv("POSTGRES_DB")
	if cfg.Database == "" {
		return nil, fmt.Errorf("POSTGRES_DB is required")
	}

	cfg.Username = os.Getenv("POSTGRES_USER")
	if cfg.Username == "" {
		return nil, fmt.Errorf("POSTGRES_USER is required")
	}

	cfg.Password = os.Getenv("POSTGRES_PASSWORD")
	if cfg.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD is required")
	}

	sslMode := os.Getenv("POSTGRES_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode,
	)

	log.Info("connecting to PostgreSQL",
		"host", cfg.Host, "port", cfg.Port, "database", cfg.Database, "username", cfg.Username)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = 8
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	// The funnel aggregations can scan a lot of rows; cap each statement
	// so a runaway query releases its connection back to the pool.
	poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = "60000"
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pdash-api"

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("connected to PostgreSQL")

	// Run migrations only if explicitly enabled
	if os.Getenv("POSTGRES_RUN_MIGRATIONS") == "true" {
		if err := runMigrations(connStr, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return pool, nil
}

// runMigrations runs database migrations using goose
func runMigrations(connStr string, log *slog.Logger) error {
	log.Info("running PostgreSQL migrations")

	goose.SetBaseFS(EmbedMigrations)

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("PostgreSQL migrations completed")
	return nil
}
