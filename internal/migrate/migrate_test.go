package migrate

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB opens an in-memory SQLite database through the modernc driver
// registered by the migrate sqlite backend. The pool is pinned to a single
// connection so every statement sees the same in-memory database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrations(t *testing.T) {
	t.Run("applies the sqlite migration set", func(t *testing.T) {
		db := openTestDB(t)
		require.NoError(t, RunMigrations(db, "sqlite"))

		var n int
		err := db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'registered_entities'`,
		).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("creates the registry indexes", func(t *testing.T) {
		db := openTestDB(t)
		require.NoError(t, RunMigrations(db, "sqlite"))

		rows, err := db.Query(
			`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'registered_entities' AND name LIKE 'idx_%' ORDER BY name`,
		)
		require.NoError(t, err)
		defer rows.Close()

		var names []string
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			names = append(names, name)
		}
		require.NoError(t, rows.Err())

		assert.Equal(t, []string{
			"idx_registered_entities_deleted_at",
			"idx_registered_entities_entity_name",
			"idx_registered_entities_type_name",
		}, names)
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := openTestDB(t)
		require.NoError(t, RunMigrations(db, "sqlite"))
		require.NoError(t, RunMigrations(db, "sqlite"))
	})

	t.Run("rejects unknown drivers", func(t *testing.T) {
		db := openTestDB(t)
		err := RunMigrations(db, "oracle")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})
}

func TestGetMigrationVersion(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, RunMigrations(db, "sqlite"))

	version, dirty, err := GetMigrationVersion(db, "sqlite")
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}
