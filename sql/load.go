package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relations.sql
var relationsSQL string

// Function lists for verification
var EntitiesFunctions = []string{
	"init_entities",
	"select_entity_degree",
	"insert_entity",
	"select_entity",
	"select_entities_by_similarity",
	"select_entities_by_name",
	"delete_entity",
}

var RelationsFunctions = []string{
	"init_relations",
	"relation_text",
	"relation_keyword_hits",
	"relation_matches",
	"insert_relation",
	"select_relation",
	"select_relations_by_entity",
	"delete_relation",
}

// Init intializes db extensions (pgvector, pg_trgm)
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSql(db, "entities", entitiesSQL, EntitiesFunctions, force)
}

// LoadRelationsSql loads relation-related SQL functions
func LoadRelationsSql(db *sql.DB, force bool) error {
	return loadSql(db, "relations", relationsSQL, RelationsFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadRelationsSql(db, force); err != nil {
		return err
	}

	return nil
}

func loadSql(db *sql.DB, name, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
