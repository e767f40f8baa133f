package nodeview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/waypost/waypost/pkg/models"
)

// setupNodeviewTestDB creates an in-memory SQLite database with the
// registry schema migrated.
func setupNodeviewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(models.ModelsToAutoMigrate()...)
	require.NoError(t, err)

	return db
}

func sptr(s string) *string {
	return &s
}

// createUserFixture creates a user data table and registry row. The data
// table stands in for the per-entity read view; the synthesizer only
// needs a relation with the contract columns.
func createUserFixture(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE v_user (
		pk_user text PRIMARY KEY,
		data text,
		created_at datetime,
		updated_at datetime,
		deleted_at datetime
	)`).Error)

	e := &models.RegisteredEntity{
		EntityName:  "user",
		TypeName:    "User",
		PKColumn:    "pk_user",
		ViewTable:   sptr("v_user"),
		SourceTable: "tb_user",
	}
	require.NoError(t, e.Create(db))
}

// createOrderFixture registers an order entity whose data table is the
// typed view and whose soft-delete column is configured explicitly.
func createOrderFixture(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE tv_order (
		pk_order text PRIMARY KEY,
		data text,
		created_at datetime,
		updated_at datetime,
		archived_at datetime
	)`).Error)

	e := &models.RegisteredEntity{
		EntityName:       "order",
		TypeName:         "Order",
		PKColumn:         "pk_order",
		ViewTable:        sptr("v_order"),
		TVTable:          sptr("tv_order"),
		SourceTable:      "tb_order",
		SoftDeleteColumn: sptr("archived_at"),
	}
	require.NoError(t, e.Create(db))
}

func insertUser(t *testing.T, db *gorm.DB, id, name string, deleted bool) {
	t.Helper()
	var deletedAt interface{}
	if deleted {
		deletedAt = "2024-03-16 00:00:00"
	}
	require.NoError(t, db.Exec(
		`INSERT INTO v_user (pk_user, data, created_at, updated_at, deleted_at) VALUES (?, ?, ?, ?, ?)`,
		id, `{"name":"`+name+`"}`, "2024-03-15 10:30:00", "2024-03-15 10:30:00", deletedAt,
	).Error)
}

func insertOrder(t *testing.T, db *gorm.DB, id, number string, archived bool) {
	t.Helper()
	var archivedAt interface{}
	if archived {
		archivedAt = "2024-03-16 00:00:00"
	}
	require.NoError(t, db.Exec(
		`INSERT INTO tv_order (pk_order, data, created_at, updated_at, archived_at) VALUES (?, ?, ?, ?, ?)`,
		id, `{"number":"`+number+`"}`, "2024-03-15 10:30:00", "2024-03-15 10:30:00", archivedAt,
	).Error)
}

func viewRowCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Raw(`SELECT count(*) FROM v_nodes`).Scan(&n).Error)
	return n
}

func TestManager_Rebuild(t *testing.T) {
	t.Run("empty registry produces a valid empty view", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		m := NewManager(db, NewRegistryReader(db, nil), nil)

		result, err := m.Rebuild(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, result.EntityCount)
		assert.Equal(t, uint64(1), result.Generation)
		assert.Equal(t, int64(0), viewRowCount(t, db))
	})

	t.Run("projects live rows and filters soft-deleted ones", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		createUserFixture(t, db)
		insertUser(t, db, "550e8400-e29b-41d4-a716-446655440000", "ada", false)
		insertUser(t, db, "550e8400-e29b-41d4-a716-446655440001", "grace", false)
		insertUser(t, db, "550e8400-e29b-41d4-a716-446655440002", "gone", true)

		m := NewManager(db, NewRegistryReader(db, nil), nil)
		result, err := m.Rebuild(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.EntityCount)
		assert.Equal(t, int64(2), viewRowCount(t, db))
	})

	t.Run("projects the typed view with explicit soft delete", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		createOrderFixture(t, db)
		insertOrder(t, db, "7c9e6679-7425-40de-944b-e07fc1f90ae7", "A-100", false)
		insertOrder(t, db, "7c9e6679-7425-40de-944b-e07fc1f90ae8", "A-101", true)

		m := NewManager(db, NewRegistryReader(db, nil), nil)
		_, err := m.Rebuild(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), viewRowCount(t, db))

		var typeName string
		require.NoError(t, db.Raw(`SELECT type_name FROM v_nodes LIMIT 1`).Scan(&typeName).Error)
		assert.Equal(t, "Order", typeName)
	})

	t.Run("picks up registry changes on each rebuild", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		createUserFixture(t, db)
		insertUser(t, db, "550e8400-e29b-41d4-a716-446655440000", "ada", false)

		m := NewManager(db, NewRegistryReader(db, nil), nil)
		result, err := m.Rebuild(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.EntityCount)

		createOrderFixture(t, db)
		insertOrder(t, db, "7c9e6679-7425-40de-944b-e07fc1f90ae7", "A-100", false)

		result, err = m.Rebuild(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, result.EntityCount)
		assert.Equal(t, uint64(2), result.Generation)
		assert.Equal(t, int64(2), viewRowCount(t, db))
	})

	t.Run("missing default soft-delete column disables filtering", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		require.NoError(t, db.Exec(`CREATE TABLE v_tag (
			id text PRIMARY KEY,
			data text,
			created_at datetime,
			updated_at datetime
		)`).Error)
		e := &models.RegisteredEntity{
			EntityName:  "tag",
			TypeName:    "Tag",
			PKColumn:    "id",
			ViewTable:   sptr("v_tag"),
			SourceTable: "tb_tag",
		}
		require.NoError(t, e.Create(db))
		require.NoError(t, db.Exec(
			`INSERT INTO v_tag (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			"550e8400-e29b-41d4-a716-446655440000", `{"label":"infra"}`,
			"2024-03-15 10:30:00", "2024-03-15 10:30:00",
		).Error)

		m := NewManager(db, NewRegistryReader(db, nil), nil)
		_, err := m.Rebuild(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), viewRowCount(t, db))
	})

	t.Run("missing explicit soft-delete column is a schema mismatch", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		createUserFixture(t, db)

		e := &models.RegisteredEntity{}
		require.NoError(t, e.GetByEntityName(db, "user"))
		e.SoftDeleteColumn = sptr("purged_at")
		require.NoError(t, e.Update(db))

		m := NewManager(db, NewRegistryReader(db, nil), nil)
		_, err := m.Rebuild(context.Background())
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("failed rebuild leaves the previous view intact", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		createUserFixture(t, db)
		insertUser(t, db, "550e8400-e29b-41d4-a716-446655440000", "ada", false)

		m := NewManager(db, NewRegistryReader(db, nil), nil)
		_, err := m.Rebuild(context.Background())
		require.NoError(t, err)

		// Break the registry, then fail the next rebuild.
		e := &models.RegisteredEntity{}
		require.NoError(t, e.GetByEntityName(db, "user"))
		e.SoftDeleteColumn = sptr("purged_at")
		require.NoError(t, e.Update(db))

		_, err = m.Rebuild(context.Background())
		require.Error(t, err)

		assert.Equal(t, int64(1), viewRowCount(t, db), "previous view should still answer")
		assert.Equal(t, uint64(1), m.Generation(), "failed rebuild must not bump the generation")
	})

	t.Run("propagates context cancellation", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		createUserFixture(t, db)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		m := NewManager(db, NewRegistryReader(db, nil), nil)
		_, err := m.Rebuild(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestManager_Health(t *testing.T) {
	t.Run("degraded before the first rebuild", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		m := NewManager(db, NewRegistryReader(db, nil), nil)

		health, err := m.Health(context.Background())
		require.NoError(t, err)
		assert.Equal(t, HealthDegraded, health.Status)
		assert.False(t, health.ViewExists)
		assert.Equal(t, int64(0), health.EntitiesRegistered)
	})

	t.Run("ok with an empty registry once the view exists", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		m := NewManager(db, NewRegistryReader(db, nil), nil)
		_, err := m.Rebuild(context.Background())
		require.NoError(t, err)

		health, err := m.Health(context.Background())
		require.NoError(t, err)
		assert.Equal(t, HealthOK, health.Status)
		assert.True(t, health.ViewExists)
		assert.Equal(t, int64(0), health.EntitiesRegistered)
		assert.Equal(t, uint64(1), health.Generation)
	})

	t.Run("counts entities including unresolvable ones", func(t *testing.T) {
		db := setupNodeviewTestDB(t)
		createUserFixture(t, db)
		e := &models.RegisteredEntity{
			EntityName:  "draft",
			TypeName:    "Draft",
			PKColumn:    "id",
			SourceTable: "tb_draft",
		}
		require.NoError(t, e.Create(db))

		m := NewManager(db, NewRegistryReader(db, nil), nil)
		_, err := m.Rebuild(context.Background())
		require.NoError(t, err)

		health, err := m.Health(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), health.EntitiesRegistered)
	})
}
