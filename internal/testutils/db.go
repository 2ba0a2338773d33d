// Package testutils provides shared helpers for integration tests.
package testutils

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testDBName = "herald_test"

// TestDB wraps a GORM database connection for testing.
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB connects to the database named by the TEST_DB_* environment
// variables, or starts a throwaway postgres container when TEST_DB_HOST
// is unset. Migrations run and tables are truncated on cleanup.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := envDSN()
	if dsn == "" {
		dsn = containerDSN(t)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	testDB := &TestDB{DB: db}

	if err := testDB.runMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		testDB.cleanup()
	})

	return testDB
}

// envDSN builds a DSN from TEST_DB_* variables, or returns "" when no
// host is configured.
func envDSN() string {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		getEnv("TEST_DB_PORT", "5432"),
		getEnv("TEST_DB_USER", testDBName),
		getEnv("TEST_DB_PASSWORD", testDBName),
		getEnv("TEST_DB_NAME", testDBName),
		getEnv("TEST_DB_SSLMODE", "disable"),
	)
}

// One container serves the whole test binary. Ryuk reaps it when the
// test process exits.
var (
	containerOnce sync.Once
	containerAddr string
	containerErr  error
)

// containerDSN starts a disposable postgres container shared by every
// test in the binary. Tests are skipped when no container runtime is
// available.
func containerDSN(t *testing.T) string {
	t.Helper()

	containerOnce.Do(func() {
		ctx := context.Background()
		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase(testDBName),
			tcpostgres.WithUsername(testDBName),
			tcpostgres.WithPassword(testDBName),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		if err != nil {
			containerErr = err
			return
		}
		containerAddr, containerErr = container.ConnectionString(ctx, "sslmode=disable")
	})

	if containerErr != nil {
		t.Skipf("Skipping: could not start postgres container: %v", containerErr)
	}
	return containerAddr
}

func (tdb *TestDB) runMigrations() error {
	sqlDB, err := tdb.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	driver, err := pgmigrate.WithInstance(sqlDB, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../internal/storage/migrations",
		"postgres", driver)
	if err != nil {
		// Packages one level down use a shorter relative path.
		m, err = migrate.NewWithDatabaseInstance(
			"file://../storage/migrations",
			"postgres", driver)
		if err != nil {
			return fmt.Errorf("failed to create migration instance: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// cleanup truncates all tables.
func (tdb *TestDB) cleanup() {
	tables := []string{"notes", "cache_entries"}
	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
	}
}

// getEnv gets an environment variable or returns a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
