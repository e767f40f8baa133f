package nodeview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/waypost/waypost/pkg/models"
)

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// RebuildResult describes a completed view rebuild.
type RebuildResult struct {
	// EntityCount is the number of entities projected into the view.
	EntityCount int `json:"entity_count"`

	// Generation is the view generation after the rebuild. It increases
	// monotonically and keys the resolution cache.
	Generation uint64 `json:"generation"`
}

// HealthStatus reports the state of the node resolution subsystem.
type HealthStatus struct {
	Status             string `json:"status"`
	EntitiesRegistered int64  `json:"entities_registered"`
	ViewExists         bool   `json:"view_exists"`
	Generation         uint64 `json:"generation"`
}

// Manager owns the unified node view: it rebuilds the view from the
// current registry snapshot, maintains best-effort indexes, and tracks the
// view generation. Rebuilds are serialized in process; deployments with
// multiple writers must serialize externally.
type Manager struct {
	db       *gorm.DB
	registry EntityLister
	log      hclog.Logger
	dialect  Dialect
	viewName string

	mu         sync.Mutex
	generation atomic.Uint64
}

// NewManager creates a manager for the default node view. The dialect is
// inferred from the connection.
func NewManager(db *gorm.DB, registry EntityLister, log hclog.Logger) *Manager {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Manager{
		db:       db,
		registry: registry,
		log:      log,
		dialect:  DialectFromGorm(db),
		viewName: DefaultViewName,
	}
}

// ViewName returns the name of the managed view.
func (m *Manager) ViewName() string {
	return m.viewName
}

// Generation returns the current view generation. It starts at zero and
// increases by one per successful rebuild.
func (m *Manager) Generation() uint64 {
	return m.generation.Load()
}

// Rebuild replaces the node view from the current registry snapshot.
//
// The replacement is transactional: either the new view commits or the
// previous one stays in place and the error is reported. Index maintenance
// afterwards is best-effort; failures there are logged and swallowed.
// Concurrent calls are serialized, each against a fresh registry read.
func (m *Manager) Rebuild(ctx context.Context) (*RebuildResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	descs, err := m.registry.ListNodeEntities(ctx)
	if err != nil {
		return nil, err
	}

	descs, err = m.normalize(ctx, descs)
	if err != nil {
		return nil, err
	}

	ddl, err := BuildViewDDL(m.dialect, m.viewName, descs)
	if err != nil {
		return nil, err
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range ddl {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorageErr("Rebuild", fmt.Sprintf("replacing view %s", m.viewName), err)
	}

	m.maintainIndexes(ctx)

	gen := m.generation.Add(1)
	m.log.Info("node view rebuilt",
		"view", m.viewName,
		"entities", len(descs),
		"generation", gen,
	)

	return &RebuildResult{EntityCount: len(descs), Generation: gen}, nil
}

// normalize resolves each descriptor's soft-delete column against the live
// schema. An explicitly configured column that is missing is a schema
// mismatch; a defaulted one that is missing disables filtering for that
// entity.
func (m *Manager) normalize(ctx context.Context, descs []EntityDescriptor) ([]EntityDescriptor, error) {
	out := make([]EntityDescriptor, 0, len(descs))
	for _, d := range descs {
		if d.SoftDeleteColumn == "" {
			out = append(out, d)
			continue
		}

		ok, err := m.hasColumn(ctx, d.DataTable, d.SoftDeleteColumn)
		if err != nil {
			return nil, wrapStorageErr("Rebuild",
				fmt.Sprintf("probing %s.%s", d.DataTable, d.SoftDeleteColumn), err)
		}
		if !ok {
			if d.SoftDeleteExplicit {
				return nil, &Error{
					Op:  "Rebuild",
					Err: ErrSchemaMismatch,
					Msg: fmt.Sprintf("entity %q: soft-delete column %q not present on %s",
						d.EntityName, d.SoftDeleteColumn, d.DataTable),
				}
			}
			m.log.Warn("soft-delete filtering disabled for entity",
				"entity", d.EntityName,
				"table", d.DataTable,
				"column", d.SoftDeleteColumn,
			)
			d.SoftDeleteColumn = ""
		}
		out = append(out, d)
	}
	return out, nil
}

// maintainIndexes drops and recreates the view's supporting indexes.
// Plain views reject indexes on both backends, so every failure here is
// expected and only logged.
func (m *Manager) maintainIndexes(ctx context.Context) {
	var result *multierror.Error
	for _, stmt := range BuildIndexDDL(m.dialect, m.viewName) {
		if err := m.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		m.log.Debug("index maintenance skipped", "view", m.viewName, "error", err)
	}
}

// Health reports registry size, view existence, and the current
// generation. A missing view degrades the status; an empty registry does
// not, because an empty view is still valid.
func (m *Manager) Health(ctx context.Context) (*HealthStatus, error) {
	count, err := m.entityCount(ctx)
	if err != nil {
		return nil, wrapStorageErr("Health", "counting registered entities", err)
	}

	exists, err := m.viewExists(ctx)
	if err != nil {
		return nil, wrapStorageErr("Health", "checking view existence", err)
	}

	status := HealthOK
	if !exists {
		status = HealthDegraded
	}

	return &HealthStatus{
		Status:             status,
		EntitiesRegistered: count,
		ViewExists:         exists,
		Generation:         m.generation.Load(),
	}, nil
}

func (m *Manager) entityCount(ctx context.Context) (int64, error) {
	return models.Count(m.db.WithContext(ctx))
}

func (m *Manager) viewExists(ctx context.Context) (bool, error) {
	var n int64
	var err error
	if m.dialect == DialectSQLite {
		err = m.db.WithContext(ctx).
			Raw("SELECT count(*) FROM sqlite_master WHERE type = 'view' AND name = ?", m.viewName).
			Scan(&n).Error
	} else {
		schema, rel := splitQualified(m.viewName)
		if schema == "" {
			err = m.db.WithContext(ctx).
				Raw("SELECT count(*) FROM information_schema.views WHERE table_schema = current_schema() AND table_name = ?", rel).
				Scan(&n).Error
		} else {
			err = m.db.WithContext(ctx).
				Raw("SELECT count(*) FROM information_schema.views WHERE table_schema = ? AND table_name = ?", schema, rel).
				Scan(&n).Error
		}
	}
	return n > 0, err
}

// hasColumn probes the live schema for a column on a table or view.
func (m *Manager) hasColumn(ctx context.Context, table, column string) (bool, error) {
	var n int64
	var err error
	if m.dialect == DialectSQLite {
		err = m.db.WithContext(ctx).
			Raw("SELECT count(*) FROM pragma_table_info(?) WHERE name = ?", table, column).
			Scan(&n).Error
	} else {
		schema, rel := splitQualified(table)
		if schema == "" {
			err = m.db.WithContext(ctx).
				Raw("SELECT count(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?", rel, column).
				Scan(&n).Error
		} else {
			err = m.db.WithContext(ctx).
				Raw("SELECT count(*) FROM information_schema.columns WHERE table_schema = ? AND table_name = ? AND column_name = ?", schema, rel, column).
				Scan(&n).Error
		}
	}
	return n > 0, err
}

// splitQualified splits "schema.relation" into its parts. Unqualified
// names return an empty schema.
func splitQualified(name string) (schema, rel string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
