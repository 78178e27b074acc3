// Package dbtest connects repository tests to a disposable Postgres database.
//
// Tests are skipped unless DB_HOST_TEST is set. The remaining settings come
// from DB_PORT_TEST, DB_USER_TEST, DB_PASSWORD_TEST and DB_NAME_TEST.
package dbtest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/petite-maison/internal/config"
	"github.com/vasiliy-maslov/petite-maison/internal/db"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config returns the test database settings and whether they are present.
func Config() (config.PostgresConfig, bool) {
	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		return config.PostgresConfig{}, false
	}
	return config.PostgresConfig{
		Host:            host,
		Port:            getenv("DB_PORT_TEST", "5432"),
		User:            getenv("DB_USER_TEST", "postgres"),
		Password:        getenv("DB_PASSWORD_TEST", "postgres"),
		DBName:          getenv("DB_NAME_TEST", "petite_maison_test"),
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		AcquireTimeout:  5 * time.Second,
	}, true
}

// Open migrates the test database and returns a pool, or nil when no test
// database is configured.
func Open(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, ok := Config()
	if !ok {
		return nil, nil
	}
	if err := db.MigrateUp(cfg); err != nil {
		return nil, err
	}
	pg, err := db.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pg.Pool, nil
}

// Require skips t when pool is nil.
func Require(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if pool == nil {
		t.Skip("DB_HOST_TEST is not set, skipping integration test")
	}
}

// Truncate empties tables before the test and again on cleanup.
func Truncate(t *testing.T, pool *pgxpool.Pool, tables ...string) {
	t.Helper()
	query := "TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"

	if _, err := pool.Exec(context.Background(), query); err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
	t.Cleanup(func() {
		if _, err := pool.Exec(context.Background(), query); err != nil {
			t.Errorf("Failed to truncate tables after test: %v", err)
		}
	})
}
