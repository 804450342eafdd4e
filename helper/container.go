package helper

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabase = "database"
	testUsername = "user"
	testPassword = "password"

	// PostgreSQL image with the AGE extension preinstalled.
	ageImage = "apache/age:release_PG16_1.5.0"
)

// MustStartPostgresContainer starts a PostgreSQL container with the AGE
// extension and returns its terminate function and mapped port.
func MustStartPostgresContainer() (func(context.Context, ...testcontainers.TerminateOption) error, string, error) {
	dbContainer, err := postgres.Run(
		context.Background(),
		ageImage,
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUsername),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, "", err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, "", err
	}

	return dbContainer.Terminate, dbPort.Port(), nil
}

// SetTestDatabaseConfigEnvs points the configuration envs at the test
// container started by MustStartPostgresContainer.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", dbPort)
	t.Setenv("DB_DATABASE", testDatabase)
	t.Setenv("DB_USERNAME", testUsername)
	t.Setenv("DB_PASSWORD", testPassword)
	t.Setenv("DB_SCHEMA", "public")
	t.Setenv("DB_SSLMODE", "disable")
	t.Setenv("GRAPH_NAME", "knowledge_graph_test")
}
