package nodeview

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/waypost/waypost/pkg/models"
	"github.com/waypost/waypost/pkg/nodeid"
)

// NodeResolver answers node lookups. Resolver queries the view directly;
// CachedResolver layers a read-through cache on top.
type NodeResolver interface {
	// Resolve looks up a single node. A missing node returns found=false
	// with a nil error. A zero ID is never found.
	Resolve(ctx context.Context, id nodeid.ID) (*Node, bool, error)

	// ResolveBatch looks up a set of nodes in one query. Zero IDs are
	// skipped when allowZero is set and rejected otherwise. Duplicates
	// collapse to one row, unmatched IDs are omitted, and results are
	// ordered by (type name, id).
	ResolveBatch(ctx context.Context, ids []nodeid.ID, allowZero bool) ([]Node, error)
}

// Resolver resolves nodes against the unified node view.
type Resolver struct {
	db       *gorm.DB
	log      hclog.Logger
	viewName string
}

// NewResolver creates a resolver over the default node view.
func NewResolver(db *gorm.DB, log hclog.Logger) *Resolver {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Resolver{
		db:       db,
		log:      log,
		viewName: DefaultViewName,
	}
}

// nodeRow matches the node view's column set.
type nodeRow struct {
	ID          nodeid.ID
	TypeName    string
	EntityName  string
	SourceTable string
	Data        models.JSON
	CreatedAt   models.Timestamp
	UpdatedAt   models.Timestamp
}

func (r nodeRow) toNode(source string) Node {
	return Node{
		ID:          r.ID,
		TypeName:    r.TypeName,
		EntityName:  r.EntityName,
		SourceTable: r.SourceTable,
		Data:        r.Data,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Source:      source,
	}
}

// Resolve implements NodeResolver with a single parameter-bound point
// lookup. The ID travels as a bind parameter, never as SQL text.
func (r *Resolver) Resolve(ctx context.Context, id nodeid.ID) (*Node, bool, error) {
	if id.IsZero() {
		return nil, false, nil
	}

	var row nodeRow
	query := fmt.Sprintf(
		"SELECT id, type_name, entity_name, source_table, data, created_at, updated_at FROM %s WHERE id = ? LIMIT 1",
		quoteIdent(r.viewName),
	)
	tx := r.db.WithContext(ctx).Raw(query, id.String()).Scan(&row)
	if tx.Error != nil {
		return nil, false, wrapStorageErr("Resolve", fmt.Sprintf("querying %s", r.viewName), tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, false, nil
	}

	node := row.toNode(SourceNodeView)
	return &node, true, nil
}

// ResolveBatch implements NodeResolver with exactly one set-membership
// query regardless of batch size.
func (r *Resolver) ResolveBatch(ctx context.Context, ids []nodeid.ID, allowZero bool) ([]Node, error) {
	seen := make(map[string]struct{}, len(ids))
	bind := make([]string, 0, len(ids))
	for i, id := range ids {
		if id.IsZero() {
			if allowZero {
				continue
			}
			return nil, &Error{
				Op:  "ResolveBatch",
				Err: ErrNilID,
				Msg: fmt.Sprintf("position %d", i),
			}
		}
		s := id.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		bind = append(bind, s)
	}

	if len(bind) == 0 {
		return []Node{}, nil
	}
	sort.Strings(bind)

	var rows []nodeRow
	query := fmt.Sprintf(
		"SELECT id, type_name, entity_name, source_table, data, created_at, updated_at FROM %s WHERE id IN ? ORDER BY type_name ASC, id ASC",
		quoteIdent(r.viewName),
	)
	if err := r.db.WithContext(ctx).Raw(query, bind).Scan(&rows).Error; err != nil {
		return nil, wrapStorageErr("ResolveBatch", fmt.Sprintf("querying %s", r.viewName), err)
	}

	nodes := make([]Node, 0, len(rows))
	for _, row := range rows {
		nodes = append(nodes, row.toNode(SourceNodeViewBatch))
	}

	r.log.Debug("resolved node batch",
		"requested", len(ids),
		"queried", len(bind),
		"matched", len(nodes),
	)
	return nodes, nil
}
