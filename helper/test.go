package helper

import (
	"context"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabase      = "database"
	testUsername      = "user"
	testPassword      = "password"
	testNeo4jPassword = "password1234"
)

// MustStartPostgresContainer starts a pgvector enabled Postgres container
// and returns its terminate function and mapped port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUsername),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", NewError("run postgres container", err)
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container.Terminate, "", NewError("mapped port", err)
	}

	return container.Terminate, port.Port(), nil
}

// MustStartNeo4jContainer starts a Neo4j 5 container and returns its
// terminate function and bolt url.
func MustStartNeo4jContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	container, err := tcneo4j.Run(
		ctx,
		"neo4j:5.26",
		tcneo4j.WithAdminPassword(testNeo4jPassword),
	)
	if err != nil {
		return nil, "", NewError("run neo4j container", err)
	}

	boltURL, err := container.BoltUrl(ctx)
	if err != nil {
		return container.Terminate, "", NewError("bolt url", err)
	}

	return container.Terminate, boltURL, nil
}

// SetTestDatabaseConfigEnvs points the GRAPHRAG_DB_* variables at a test container
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Setenv(DatabaseEnvPrefix+"HOST", "localhost")
	t.Setenv(DatabaseEnvPrefix+"PORT", dbPort)
	t.Setenv(DatabaseEnvPrefix+"DATABASE", testDatabase)
	t.Setenv(DatabaseEnvPrefix+"USERNAME", testUsername)
	t.Setenv(DatabaseEnvPrefix+"PASSWORD", testPassword)
	t.Setenv(DatabaseEnvPrefix+"SCHEMA", "public")
	t.Setenv(DatabaseEnvPrefix+"SSLMODE", "disable")
}

// SetTestNeo4jConfigEnvs points the GRAPHRAG_NEO4J_* variables at a test container
func SetTestNeo4jConfigEnvs(t *testing.T, boltURL string) {
	t.Setenv(Neo4jEnvPrefix+"URI", boltURL)
	t.Setenv(Neo4jEnvPrefix+"USERNAME", "neo4j")
	t.Setenv(Neo4jEnvPrefix+"PASSWORD", testNeo4jPassword)
	t.Setenv(Neo4jEnvPrefix+"DATABASE", "neo4j")
}

// NewTestDatabase connects to a test database and fails hard on error
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := slog.New(NewPrettyHandler(os.Stdout, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
	}))
	db, err := NewDatabase("test", config, logger)
	if err != nil {
		log.Fatalf("error connecting to test database: %v", err)
	}
	return db
}
