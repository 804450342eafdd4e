package helper

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DefaultGraphName is used when GRAPH_NAME is not configured.
const DefaultGraphName = "knowledge_graph"

// DatabaseConfiguration holds the connection settings for PostgreSQL
// with the AGE extension. It is constructed explicitly and passed to
// NewKGraph; there is no process-wide configuration state.
type DatabaseConfiguration struct {
	Host      string
	Port      string
	Database  string
	Username  string
	Password  string
	Schema    string
	SSLMode   string
	GraphName string
}

// NewDatabaseConfiguration loads the database configuration from
// environment variables (DB_HOST, DB_PORT, DB_DATABASE, DB_USERNAME,
// DB_PASSWORD, DB_SCHEMA, DB_SSLMODE, GRAPH_NAME). A .env file in the
// working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	// Missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:      os.Getenv("DB_HOST"),
		Port:      os.Getenv("DB_PORT"),
		Database:  os.Getenv("DB_DATABASE"),
		Username:  os.Getenv("DB_USERNAME"),
		Password:  os.Getenv("DB_PASSWORD"),
		Schema:    os.Getenv("DB_SCHEMA"),
		SSLMode:   os.Getenv("DB_SSLMODE"),
		GraphName: os.Getenv("GRAPH_NAME"),
	}

	if config.Host == "" || config.Port == "" || config.Database == "" || config.Username == "" {
		return nil, NewError("database configuration validation", fmt.Errorf("DB_HOST, DB_PORT, DB_DATABASE and DB_USERNAME must be set"))
	}

	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.GraphName == "" {
		config.GraphName = DefaultGraphName
	}

	return config, nil
}

// ConnectionString builds a lib/pq connection string from the configuration.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%v port=%v user=%v password=%v dbname=%v sslmode=%v search_path=%v,ag_catalog",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode, c.Schema,
	)
}
