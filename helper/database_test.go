package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabaseConfiguration(t *testing.T) {
	t.Run("Reads values from environment", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "54321")

		config, err := NewDatabaseConfiguration()

		require.NoError(t, err, "Expected NewDatabaseConfiguration to not return an error")
		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, "54321", config.Port)
		assert.Equal(t, "user", config.Username)
		assert.Equal(t, 25, config.MaxOpenConns, "Expected pool default to apply")
	})

	t.Run("Builds connection string", func(t *testing.T) {
		config := &DatabaseConfiguration{
			Host:     "db",
			Port:     "5432",
			Database: "graph",
			Username: "reader",
			Password: "secret",
			Schema:   "public",
			SSLMode:  "disable",
		}

		assert.Equal(t, "host=db port=5432 user=reader password=secret dbname=graph sslmode=disable search_path=public", config.DSN())
	})

	t.Run("Nil configuration is rejected", func(t *testing.T) {
		_, err := NewDatabase("test", nil, nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database configuration is nil")
	})
}

func TestNewNeo4jConfiguration(t *testing.T) {
	t.Run("Reads values from environment", func(t *testing.T) {
		SetTestNeo4jConfigEnvs(t, "bolt://localhost:7687")

		config, err := NewNeo4jConfiguration()

		require.NoError(t, err)
		assert.Equal(t, "bolt://localhost:7687", config.URI)
		assert.Equal(t, "neo4j", config.Username)
		assert.Equal(t, "entity_embeddings", config.VectorIndex)
	})
}
