package nodeview

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertGolden(t *testing.T, name, sql string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(sql+"\n"))
}

func twoEntityDescriptors() []EntityDescriptor {
	return []EntityDescriptor{
		{
			EntityName:       "order",
			TypeName:         "Order",
			PKColumn:         "pk_order",
			DataTable:        "tv_order",
			SourceTable:      "tb_order",
			SoftDeleteColumn: "archived_at",
		},
		{
			EntityName:       "user",
			TypeName:         "User",
			PKColumn:         "pk_user",
			DataTable:        "v_user",
			SourceTable:      "tb_user",
			SoftDeleteColumn: "deleted_at",
		},
	}
}

func TestBuildViewSelect(t *testing.T) {
	t.Run("postgres two entities", func(t *testing.T) {
		sql, err := BuildViewSelect(DialectPostgres, twoEntityDescriptors())
		require.NoError(t, err)
		assertGolden(t, "postgres_two_entities", sql)
	})

	t.Run("postgres empty registry", func(t *testing.T) {
		sql, err := BuildViewSelect(DialectPostgres, nil)
		require.NoError(t, err)
		assertGolden(t, "postgres_empty", sql)
	})

	t.Run("sqlite empty registry", func(t *testing.T) {
		sql, err := BuildViewSelect(DialectSQLite, nil)
		require.NoError(t, err)
		assertGolden(t, "sqlite_empty", sql)
	})

	t.Run("hostile registry text is quoted", func(t *testing.T) {
		sql, err := BuildViewSelect(DialectPostgres, []EntityDescriptor{
			{
				EntityName:  "weird",
				TypeName:    "O'Type",
				PKColumn:    `pk"col`,
				DataTable:   "core.v_weird",
				SourceTable: "tb'weird",
			},
		})
		require.NoError(t, err)
		assertGolden(t, "postgres_quoting", sql)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		a, err := BuildViewSelect(DialectPostgres, twoEntityDescriptors())
		require.NoError(t, err)
		b, err := BuildViewSelect(DialectPostgres, twoEntityDescriptors())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("branch order follows descriptor order", func(t *testing.T) {
		sql, err := BuildViewSelect(DialectPostgres, twoEntityDescriptors())
		require.NoError(t, err)
		assert.Less(t, strings.Index(sql, "'order'"), strings.Index(sql, "'user'"))
	})

	t.Run("empty soft-delete column drops the filter", func(t *testing.T) {
		descs := twoEntityDescriptors()[:1]
		descs[0].SoftDeleteColumn = ""
		sql, err := BuildViewSelect(DialectPostgres, descs)
		require.NoError(t, err)
		assert.NotContains(t, sql, "WHERE")
	})

	t.Run("rejects descriptor with missing fields", func(t *testing.T) {
		_, err := BuildViewSelect(DialectPostgres, []EntityDescriptor{
			{EntityName: "user"},
		})
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("never interpolates raw registry text", func(t *testing.T) {
		sql, err := BuildViewSelect(DialectPostgres, []EntityDescriptor{
			{
				EntityName:       "user; DROP TABLE users; --",
				TypeName:         "User'; DROP TABLE users; --",
				PKColumn:         "id",
				DataTable:        "v_user",
				SourceTable:      "tb_user",
				SoftDeleteColumn: "deleted_at",
			},
		})
		require.NoError(t, err)
		// The hostile quote must arrive doubled inside a literal.
		assert.Contains(t, sql, "'User''; DROP TABLE users; --'")
		assert.NotContains(t, sql, "'User';")
	})
}

func TestBuildViewDDL(t *testing.T) {
	t.Run("postgres replaces in one statement", func(t *testing.T) {
		stmts, err := BuildViewDDL(DialectPostgres, DefaultViewName, twoEntityDescriptors())
		require.NoError(t, err)
		require.Len(t, stmts, 1)
		assertGolden(t, "postgres_ddl", strings.Join(stmts, ";\n"))
	})

	t.Run("sqlite drops then creates", func(t *testing.T) {
		stmts, err := BuildViewDDL(DialectSQLite, DefaultViewName, twoEntityDescriptors())
		require.NoError(t, err)
		require.Len(t, stmts, 2)
		assert.Equal(t, `DROP VIEW IF EXISTS "v_nodes"`, stmts[0])
		assertGolden(t, "sqlite_ddl", strings.Join(stmts, ";\n"))
	})

	t.Run("propagates descriptor errors", func(t *testing.T) {
		_, err := BuildViewDDL(DialectPostgres, DefaultViewName, []EntityDescriptor{{}})
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})
}

func TestBuildIndexDDL(t *testing.T) {
	stmts := BuildIndexDDL(DialectPostgres, DefaultViewName)
	require.Len(t, stmts, 6)

	assert.Equal(t, `DROP INDEX IF EXISTS "idx_v_nodes_id"`, stmts[0])
	assert.Equal(t, `CREATE INDEX "idx_v_nodes_id" ON "v_nodes" ("id")`, stmts[1])
	assert.Equal(t, `DROP INDEX IF EXISTS "idx_v_nodes_type_name"`, stmts[2])
	assert.Equal(t, `CREATE INDEX "idx_v_nodes_type_name" ON "v_nodes" ("type_name")`, stmts[3])
	assert.Equal(t, `DROP INDEX IF EXISTS "idx_v_nodes_entity_name"`, stmts[4])
	assert.Equal(t, `CREATE INDEX "idx_v_nodes_entity_name" ON "v_nodes" ("entity_name")`, stmts[5])
}

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple",
			input: "v_user",
			want:  `"v_user"`,
		},
		{
			name:  "qualified",
			input: "core.v_user",
			want:  `"core"."v_user"`,
		},
		{
			name:  "embedded quote doubled",
			input: `na"me`,
			want:  `"na""me"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteIdent(tt.input))
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", quoteLiteral("plain"))
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
}

func TestDialectFromGorm(t *testing.T) {
	db := setupNodeviewTestDB(t)
	assert.Equal(t, DialectSQLite, DialectFromGorm(db))
}
