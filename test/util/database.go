// Package util provides PostgreSQL helpers for integration tests.
package util

import (
	"context"
	"crypto/rand"
	stdsql "database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/codeready-toolchain/secretmask/pkg/database"
)

// sharedContainer is started at most once per test binary.
var sharedContainer struct {
	once    sync.Once
	connStr string
	err     error
}

// SetupTestDatabase returns a pool whose search_path points at a fresh,
// migrated schema that is dropped when the test ends.
//
// The server comes from CI_DATABASE_URL when set. Otherwise a postgres
// testcontainer is shared by all tests of the package; the test is skipped
// when no container runtime is reachable.
func SetupTestDatabase(t *testing.T) *stdsql.DB {
	t.Helper()
	ctx := context.Background()

	connStr := serverConnString(t)
	schema := GenerateSchemaName(t)

	admin, err := stdsql.Open("pgx", connStr)
	require.NoError(t, err)
	defer func() { _ = admin.Close() }()
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	db, err := stdsql.Open("pgx", AddSearchPathToConnString(connStr, schema))
	require.NoError(t, err)
	db.SetMaxOpenConns(5)

	t.Cleanup(func() {
		_ = db.Close()
		cleanup, err := stdsql.Open("pgx", connStr)
		if err != nil {
			t.Logf("Warning: failed to drop schema %s: %v", schema, err)
			return
		}
		defer func() { _ = cleanup.Close() }()
		if _, err := cleanup.ExecContext(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("Warning: failed to drop schema %s: %v", schema, err)
		}
	})

	require.NoError(t, database.RunMigrations(ctx, db, "test"))
	return db
}

func serverConnString(t *testing.T) string {
	t.Helper()
	if ciURL := os.Getenv("CI_DATABASE_URL"); ciURL != "" {
		return ciURL
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	sharedContainer.once.Do(func() {
		sharedContainer.connStr, sharedContainer.err = startContainer(context.Background())
	})
	require.NoError(t, sharedContainer.err, "failed to start shared postgres container")
	return sharedContainer.connStr
}

func startContainer(ctx context.Context) (string, error) {
	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", fmt.Errorf("failed to get connection string: %w", err)
	}
	return connStr, nil
}

// GenerateSchemaName derives a PostgreSQL-safe schema name from the test
// name: test_<sanitized name, at most 40 chars>_<8 hex chars>.
func GenerateSchemaName(t *testing.T) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, strings.ToLower(t.Name()))
	if len(name) > 40 {
		name = name[:40]
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		t.Fatalf("failed to generate schema suffix: %v", err)
	}
	return "test_" + name + "_" + hex.EncodeToString(suffix)
}

// AddSearchPathToConnString sets search_path on every connection opened
// with the returned connection string.
func AddSearchPathToConnString(connStr, schema string) string {
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return connStr + sep + "search_path=" + url.QueryEscape(schema)
}
