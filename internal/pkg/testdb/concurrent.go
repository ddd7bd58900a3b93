// internal/pkg/testdb/concurrent.go
package testdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresDSNEnv names the variable holding a PostgreSQL DSN for the tests
// that need real row locks. Those tests are skipped when it is empty.
const PostgresDSNEnv = "STOREFRONT_TEST_POSTGRES_DSN"

// ConcurrentConns is the pool size of the databases returned here
const ConcurrentConns = 8

// NewConcurrent opens a file-backed SQLite database in WAL mode with several
// open connections, so goroutines really run side by side. Statements outside
// a transaction interleave freely; transactions start with BEGIN IMMEDIATE and
// wait on the busy timeout for the single writer slot.
func NewConcurrent(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "store.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate&_foreign_keys=on", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(ConcurrentConns)
	sqlDB.SetMaxIdleConns(ConcurrentConns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}
	return db
}

// Postgres connects to the database named by PostgresDSNEnv and migrates
// models into a private schema that is dropped when the test ends.
func Postgres(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}

	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	admin, err := gorm.Open(postgres.Open(dsn), cfg)
	require.NoError(t, err)
	adminDB, err := admin.DB()
	require.NoError(t, err)

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	require.NoError(t, admin.Exec("CREATE SCHEMA "+schema).Error)

	db, err := gorm.Open(postgres.Open(withSearchPath(dsn, schema)), cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(ConcurrentConns)

	t.Cleanup(func() {
		_ = sqlDB.Close()
		_ = admin.Exec("DROP SCHEMA " + schema + " CASCADE").Error
		_ = adminDB.Close()
	})

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}
	return db
}

// Concurrent returns the databases a concurrency test should run against:
// always SQLite, plus PostgreSQL when PostgresDSNEnv is set.
func Concurrent(t *testing.T, models ...any) map[string]func(*testing.T) *gorm.DB {
	t.Helper()
	dbs := map[string]func(*testing.T) *gorm.DB{
		"sqlite": func(t *testing.T) *gorm.DB { return NewConcurrent(t, models...) },
	}
	if os.Getenv(PostgresDSNEnv) != "" {
		dbs["postgres"] = func(t *testing.T) *gorm.DB { return Postgres(t, models...) }
	}
	return dbs
}

func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}
