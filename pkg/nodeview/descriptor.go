package nodeview

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultSoftDeleteColumn is the sentinel applied to entities whose
// registry row does not configure a soft-delete column. When the data
// table does not have it either, the entity is projected unfiltered.
const DefaultSoftDeleteColumn = "deleted_at"

// EntityDescriptor is one normalized projection input for the view
// synthesizer. Descriptors come from the registry via RegistryReader.
//
// The data table must expose the pk column plus "data", "created_at" and
// "updated_at"; that is the projection contract every per-entity read view
// has to satisfy.
type EntityDescriptor struct {
	// EntityName is the internal entity name. Registry order is by this
	// field, which fixes the view's branch order.
	EntityName string

	// TypeName is the display type exposed on resolved nodes.
	TypeName string

	// PKColumn is the identifier column on the data table.
	PKColumn string

	// DataTable is the relation to project, the typed view when the
	// registry configures one and the plain read view otherwise.
	DataTable string

	// SourceTable is the physical table of record, projected as a literal.
	SourceTable string

	// SoftDeleteColumn is the liveness marker column. Empty disables
	// soft-delete filtering for this entity.
	SoftDeleteColumn string

	// SoftDeleteExplicit is true when SoftDeleteColumn came from the
	// registry rather than the default sentinel. An explicit column that
	// is missing from the data table is a schema mismatch; a defaulted
	// one just disables filtering.
	SoftDeleteExplicit bool
}

// Validate checks that all fields required for projection are present.
func (d EntityDescriptor) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.EntityName, validation.Required),
		validation.Field(&d.TypeName, validation.Required),
		validation.Field(&d.PKColumn, validation.Required),
		validation.Field(&d.DataTable, validation.Required),
		validation.Field(&d.SourceTable, validation.Required),
	)
}
