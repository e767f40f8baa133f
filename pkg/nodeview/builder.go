package nodeview

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect selects the SQL flavor emitted by the builders.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFromGorm maps a GORM connection to a builder dialect.
func DialectFromGorm(db *gorm.DB) Dialect {
	if db.Dialector.Name() == "sqlite" {
		return DialectSQLite
	}
	return DialectPostgres
}

// DefaultViewName is the name of the unified node view.
const DefaultViewName = "v_nodes"

// quoteIdent renders an identifier for safe inclusion in DDL. Qualified
// names are quoted per segment, so "core.v_user" becomes "core"."v_user".
// Registry text is never interpolated without passing through here.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// quoteLiteral renders a string literal with embedded quotes doubled.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// BuildViewSelect returns the SELECT body of the unified node view: one
// UNION ALL branch per descriptor, in the order given. The function is
// pure and deterministic; identical inputs produce identical SQL.
//
// Zero descriptors produce a well-typed empty relation so the view stays
// queryable before any entity is registered.
func BuildViewSelect(dialect Dialect, descs []EntityDescriptor) (string, error) {
	if len(descs) == 0 {
		return emptySelect(dialect), nil
	}

	branches := make([]string, 0, len(descs))
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return "", &Error{
				Op:  "BuildViewSelect",
				Err: ErrSchemaMismatch,
				Msg: fmt.Sprintf("entity %q: %v", d.EntityName, err),
			}
		}

		var b strings.Builder
		fmt.Fprintf(&b, "SELECT %s AS id,\n", quoteIdent(d.PKColumn))
		fmt.Fprintf(&b, "       %s AS type_name,\n", quoteLiteral(d.TypeName))
		fmt.Fprintf(&b, "       %s AS entity_name,\n", quoteLiteral(d.EntityName))
		fmt.Fprintf(&b, "       %s AS source_table,\n", quoteLiteral(d.SourceTable))
		b.WriteString("       data,\n")
		b.WriteString("       created_at,\n")
		b.WriteString("       updated_at\n")
		fmt.Fprintf(&b, "  FROM %s", quoteIdent(d.DataTable))
		if d.SoftDeleteColumn != "" {
			fmt.Fprintf(&b, "\n WHERE %s IS NULL", quoteIdent(d.SoftDeleteColumn))
		}
		branches = append(branches, b.String())
	}

	return strings.Join(branches, "\nUNION ALL\n"), nil
}

func emptySelect(dialect Dialect) string {
	if dialect == DialectSQLite {
		return strings.Join([]string{
			"SELECT NULL AS id,",
			"       NULL AS type_name,",
			"       NULL AS entity_name,",
			"       NULL AS source_table,",
			"       NULL AS data,",
			"       NULL AS created_at,",
			"       NULL AS updated_at",
			" WHERE 0",
		}, "\n")
	}
	return strings.Join([]string{
		"SELECT NULL::uuid AS id,",
		"       NULL::text AS type_name,",
		"       NULL::text AS entity_name,",
		"       NULL::text AS source_table,",
		"       NULL::jsonb AS data,",
		"       NULL::timestamptz AS created_at,",
		"       NULL::timestamptz AS updated_at",
		" WHERE false",
	}, "\n")
}

// BuildViewDDL returns the statements that replace the node view, in
// execution order. On PostgreSQL a single CREATE OR REPLACE suffices;
// SQLite has no OR REPLACE for views, so the view is dropped and
// recreated and the caller must run both statements in one transaction.
func BuildViewDDL(dialect Dialect, viewName string, descs []EntityDescriptor) ([]string, error) {
	sel, err := BuildViewSelect(dialect, descs)
	if err != nil {
		return nil, err
	}

	if dialect == DialectSQLite {
		return []string{
			fmt.Sprintf("DROP VIEW IF EXISTS %s", quoteIdent(viewName)),
			fmt.Sprintf("CREATE VIEW %s AS\n%s", quoteIdent(viewName), sel),
		}, nil
	}
	return []string{
		fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", quoteIdent(viewName), sel),
	}, nil
}

// indexedColumns are the view columns that get supporting indexes.
var indexedColumns = []string{"id", "type_name", "entity_name"}

// BuildIndexDDL returns drop/create statement pairs for the view's
// supporting indexes. Plain views cannot carry indexes on either backend,
// so executing these is best-effort; they exist for deployments that swap
// the view for a materialized variant.
func BuildIndexDDL(dialect Dialect, viewName string) []string {
	base := strings.ReplaceAll(viewName, ".", "_")
	stmts := make([]string, 0, len(indexedColumns)*2)
	for _, col := range indexedColumns {
		idx := fmt.Sprintf("idx_%s_%s", base, col)
		stmts = append(stmts,
			fmt.Sprintf("DROP INDEX IF EXISTS %s", quoteIdent(idx)),
			fmt.Sprintf("CREATE INDEX %s ON %s (%s)", quoteIdent(idx), quoteIdent(viewName), quoteIdent(col)),
		)
	}
	return stmts
}
