package nodeview

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"
	"gorm.io/gorm"
)

// Candidate is a registry entry proposal produced by discovery. Discovery
// never writes the registry; operators review candidates and apply the
// ones they want.
type Candidate struct {
	EntityName  string `json:"entity_name" yaml:"entity_name"`
	TypeName    string `json:"type_name" yaml:"type_name"`
	PKColumn    string `json:"pk_column" yaml:"pk_column"`
	ViewTable   string `json:"view_table,omitempty" yaml:"view_table,omitempty"`
	TVTable     string `json:"tv_table,omitempty" yaml:"tv_table,omitempty"`
	MVTable     string `json:"mv_table,omitempty" yaml:"mv_table,omitempty"`
	SourceTable string `json:"source_table,omitempty" yaml:"source_table,omitempty"`
}

// Discoverer scans a live database for relations matching the naming
// conventions (tb_ tables, v_/tv_/mv_ views, pk_ columns) and proposes
// registry candidates from them.
type Discoverer struct {
	db      *gorm.DB
	log     hclog.Logger
	dialect Dialect
}

// NewDiscoverer creates a discoverer over the given database handle.
func NewDiscoverer(db *gorm.DB, log hclog.Logger) *Discoverer {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Discoverer{
		db:      db,
		log:     log,
		dialect: DialectFromGorm(db),
	}
}

// Discover proposes one candidate per entity naming-convention group found
// in the database. Anything matching one of the prefixes starts a group;
// names already present in exclude are skipped. Candidates are returned in
// entity name order.
func (d *Discoverer) Discover(ctx context.Context, exclude map[string]bool) ([]Candidate, error) {
	tables, err := d.listRelations(ctx, "table")
	if err != nil {
		return nil, wrapStorageErr("Discover", "listing tables", err)
	}
	views, err := d.listRelations(ctx, "view")
	if err != nil {
		return nil, wrapStorageErr("Discover", "listing views", err)
	}

	byEntity := make(map[string]*Candidate)
	candidate := func(entity string) *Candidate {
		c, ok := byEntity[entity]
		if !ok {
			c = &Candidate{
				EntityName: entity,
				TypeName:   strcase.ToCamel(entity),
			}
			byEntity[entity] = c
		}
		return c
	}

	for _, name := range tables {
		if entity, ok := strings.CutPrefix(name, "tb_"); ok && entity != "" {
			candidate(entity).SourceTable = name
		}
	}
	for _, name := range views {
		switch {
		case strings.HasPrefix(name, "tv_"):
			candidate(name[3:]).TVTable = name
		case strings.HasPrefix(name, "mv_"):
			candidate(name[3:]).MVTable = name
		case strings.HasPrefix(name, "v_"):
			candidate(name[2:]).ViewTable = name
		}
	}
	// Entity name "" can sneak in through bare prefixes like "tv_".
	delete(byEntity, "")

	var probeErrs *multierror.Error
	out := make([]Candidate, 0, len(byEntity))
	for _, entity := range sortedKeys(byEntity) {
		if exclude[entity] {
			continue
		}
		c := byEntity[entity]

		pk, err := d.probePKColumn(ctx, entity, c)
		if err != nil {
			probeErrs = multierror.Append(probeErrs, fmt.Errorf("entity %q: %w", entity, err))
			continue
		}
		c.PKColumn = pk
		out = append(out, *c)
	}

	if err := probeErrs.ErrorOrNil(); err != nil {
		d.log.Warn("some discovery probes failed", "error", err)
	}
	d.log.Info("discovery scan complete", "candidates", len(out))
	return out, nil
}

// probePKColumn looks for a "pk_<entity>" column on the candidate's best
// relation, falling back to "id".
func (d *Discoverer) probePKColumn(ctx context.Context, entity string, c *Candidate) (string, error) {
	relation := c.SourceTable
	for _, alt := range []string{c.ViewTable, c.TVTable, c.MVTable} {
		if relation != "" {
			break
		}
		relation = alt
	}
	if relation == "" {
		return "id", nil
	}

	want := "pk_" + entity
	var n int64
	var err error
	if d.dialect == DialectSQLite {
		err = d.db.WithContext(ctx).
			Raw("SELECT count(*) FROM pragma_table_info(?) WHERE name = ?", relation, want).
			Scan(&n).Error
	} else {
		err = d.db.WithContext(ctx).
			Raw("SELECT count(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?", relation, want).
			Scan(&n).Error
	}
	if err != nil {
		return "", err
	}
	if n > 0 {
		return want, nil
	}
	return "id", nil
}

func (d *Discoverer) listRelations(ctx context.Context, kind string) ([]string, error) {
	var names []string
	var err error
	if d.dialect == DialectSQLite {
		err = d.db.WithContext(ctx).
			Raw("SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name", kind).
			Scan(&names).Error
	} else if kind == "view" {
		err = d.db.WithContext(ctx).
			Raw("SELECT viewname FROM pg_views WHERE schemaname = current_schema() ORDER BY viewname").
			Scan(&names).Error
	} else {
		err = d.db.WithContext(ctx).
			Raw("SELECT tablename FROM pg_tables WHERE schemaname = current_schema() ORDER BY tablename").
			Scan(&names).Error
	}
	return names, err
}

func sortedKeys(m map[string]*Candidate) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
