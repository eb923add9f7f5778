package sql

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/siherrmann/graphrag/helper"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	flag.Parse()

	// Everything in this package needs Postgres
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	if !testing.Short() {
		teardown, dbPort, err = helper.MustStartPostgresContainer()
		if err != nil {
			log.Fatalf("error starting postgres container: %v", err)
		}
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("error tearing down postgres container: %v", err)
		}
	}
	os.Exit(code)
}

func initDB(t *testing.T) *helper.Database {
	if dbPort == "" {
		t.Skip("postgres container not running")
	}
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	database := helper.NewTestDatabase(dbConfig)

	err = Init(database.Instance)
	require.NoError(t, err)

	return database
}
