package nodeview

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/waypost/waypost/pkg/models"
)

// EntityLister is the registry surface the view synthesizer depends on.
type EntityLister interface {
	// ListNodeEntities returns descriptors for every entity participating
	// in node resolution, ordered by entity name. An empty registry
	// returns an empty slice, not an error.
	ListNodeEntities(ctx context.Context) ([]EntityDescriptor, error)
}

// RegistryReader loads registered entities from the database and projects
// them into normalized EntityDescriptors.
type RegistryReader struct {
	db  *gorm.DB
	log hclog.Logger
}

// NewRegistryReader creates a reader over the given database handle.
func NewRegistryReader(db *gorm.DB, log hclog.Logger) *RegistryReader {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &RegistryReader{db: db, log: log}
}

// ListNodeEntities implements EntityLister.
//
// Only rows with a read view configured are returned; entities without one
// are registered but not resolvable. Rows that are resolvable but fail
// descriptor validation report ErrSchemaMismatch, registry text being
// caller input as far as this package is concerned.
func (r *RegistryReader) ListNodeEntities(ctx context.Context) ([]EntityDescriptor, error) {
	rows, err := models.ListResolvable(r.db.WithContext(ctx))
	if err != nil {
		return nil, wrapStorageErr("ListNodeEntities", "reading entity registry", err)
	}

	descs := make([]EntityDescriptor, 0, len(rows))
	for _, row := range rows {
		d := EntityDescriptor{
			EntityName:       row.EntityName,
			TypeName:         row.TypeName,
			PKColumn:         row.PKColumn,
			DataTable:        row.DataTable(),
			SourceTable:      row.SourceTable,
			SoftDeleteColumn: DefaultSoftDeleteColumn,
		}
		if row.SoftDeleteColumn != nil && *row.SoftDeleteColumn != "" {
			d.SoftDeleteColumn = *row.SoftDeleteColumn
			d.SoftDeleteExplicit = true
		}

		if err := d.Validate(); err != nil {
			return nil, &Error{
				Op:  "ListNodeEntities",
				Err: ErrSchemaMismatch,
				Msg: fmt.Sprintf("entity %q: %v", row.EntityName, err),
			}
		}
		descs = append(descs, d)
	}

	r.log.Debug("listed node entities", "count", len(descs))
	return descs, nil
}
