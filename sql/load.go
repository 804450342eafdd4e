package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed sources.sql
var sourcesSQL string

// Function list for verification
var SourcesFunctions = []string{
	"init_sources",
	"insert_source",
	"select_source",
	"select_sources_by_status",
	"update_source_status",
	"delete_source",
}

// Init initializes db extensions. The AGE extension must be available
// on the server; graphs themselves are created by the graph handler.
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadSourcesSql loads source-related SQL functions
func LoadSourcesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, SourcesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing sources functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(sourcesSQL)
	if err != nil {
		return fmt.Errorf("error executing sources SQL: %w", err)
	}

	exist, err := checkFunctions(db, SourcesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL sources functions loaded successfully")
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
