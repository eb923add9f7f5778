package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the Postgres connection settings
type DatabaseConfiguration struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	Database string `env:"DATABASE" envDefault:"database"`
	Username string `env:"USERNAME" envDefault:"user"`
	Password string `env:"PASSWORD"`
	Schema   string `env:"SCHEMA" envDefault:"public"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	// Pool
	MaxOpenConns int `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int `env:"MAX_IDLE_CONNS" envDefault:"5"`
}

// DatabaseEnvPrefix prefixes all Postgres environment variables
const DatabaseEnvPrefix = "GRAPHRAG_DB_"

// NewDatabaseConfiguration reads the Postgres configuration from GRAPHRAG_DB_* variables
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	config := &DatabaseConfiguration{}
	if err := env.Parse(config, env.Options{Prefix: DatabaseEnvPrefix}); err != nil {
		return nil, NewError("parse database environment", err)
	}
	return config, nil
}

// DSN returns the lib/pq connection string
func (c *DatabaseConfiguration) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode, c.Schema,
	)
}

// Database is a named Postgres connection pool with its logger
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings a Postgres connection pool.
// Pinging is retried with exponential backoff for up to 30 seconds.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, NewError("database configuration validation", fmt.Errorf("database configuration is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	instance, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, NewError("open database", err)
	}
	if config.MaxOpenConns > 0 {
		instance.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		instance.SetMaxIdleConns(config.MaxIdleConns)
	}
	instance.SetConnMaxIdleTime(5 * time.Minute)

	ping := backoff.NewExponentialBackOff()
	ping.MaxElapsedTime = 30 * time.Second
	err = backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return instance.PingContext(ctx)
	}, ping)
	if err != nil {
		instance.Close()
		return nil, NewError("ping database", err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host), slog.String("port", config.Port))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger.With(slog.String("database", name)),
	}, nil
}

// Close closes the connection pool
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
