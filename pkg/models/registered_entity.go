package models

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// typeNameRule rejects ":" in display type names; the global ID codec
// reserves it as the separator.
var typeNameRule = validation.Match(regexp.MustCompile(`^[^:]*$`)).
	Error("must not contain ':'")

// RegisteredEntity represents one entity type participating in node
// resolution. Each row maps a display type name to the database objects
// that store and expose that entity. The node view synthesizer reads these
// rows to decide which tables to project.
type RegisteredEntity struct {
	gorm.Model

	// EntityName is the unique internal name of the entity (e.g., "user").
	EntityName string `gorm:"uniqueIndex;not null"`

	// TypeName is the display type exposed in global IDs and resolved
	// nodes (e.g., "User").
	TypeName string `gorm:"uniqueIndex;not null"`

	// PKColumn is the primary key column of the backing table.
	PKColumn string `gorm:"not null;default:'id'"`

	// ViewTable is the read view projecting this entity's node payload
	// (e.g., "v_user"). Entities without one are registered but not
	// resolvable and are skipped by the synthesizer.
	ViewTable *string

	// TVTable is an optional table-valued/typed view preferred over
	// ViewTable when both exist (e.g., "tv_user").
	TVTable *string

	// MVTable is an optional materialized variant. Recorded for operators
	// and discovery output, not used for resolution.
	MVTable *string

	// SourceTable is the physical table of record (e.g., "tb_user").
	SourceTable string `gorm:"not null"`

	// SoftDeleteColumn overrides the soft-delete marker column. When nil
	// the synthesizer applies its default sentinel.
	SoftDeleteColumn *string
}

// TableName specifies the table name for GORM.
func (RegisteredEntity) TableName() string {
	return "registered_entities"
}

// RegisteredEntities is a slice of registered entities.
type RegisteredEntities []RegisteredEntity

func (e *RegisteredEntity) validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.EntityName, validation.Required),
		validation.Field(&e.TypeName, validation.Required, typeNameRule),
		validation.Field(&e.PKColumn, validation.Required),
		validation.Field(&e.SourceTable, validation.Required),
	)
}

// Create creates a new registered entity in the database.
func (e *RegisteredEntity) Create(db *gorm.DB) error {
	if err := e.validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	return db.
		Omit(clause.Associations).
		Create(&e).
		Error
}

// Get retrieves a registered entity by ID.
func (e *RegisteredEntity) Get(db *gorm.DB, id uint) error {
	if err := validation.Validate(id, validation.Required); err != nil {
		return err
	}

	return db.
		First(&e, id).
		Error
}

// GetByEntityName retrieves a registered entity by its unique entity name.
func (e *RegisteredEntity) GetByEntityName(db *gorm.DB, name string) error {
	if err := validation.Validate(name, validation.Required); err != nil {
		return err
	}

	return db.
		Where("entity_name = ?", name).
		First(&e).
		Error
}

// Update updates a registered entity.
func (e *RegisteredEntity) Update(db *gorm.DB) error {
	if err := validation.ValidateStruct(e,
		validation.Field(&e.ID, validation.Required),
	); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&e).
			Select("*").
			Updates(e).
			Error; err != nil {
			return err
		}

		if err := e.Get(tx, e.ID); err != nil {
			return fmt.Errorf("error getting registered entity after update: %w", err)
		}

		return nil
	})
}

// Upsert creates or updates a registered entity by entity name.
func (e *RegisteredEntity) Upsert(db *gorm.DB) error {
	if err := e.validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	existing := &RegisteredEntity{}
	err := existing.GetByEntityName(db, e.EntityName)
	if err == nil {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
		return e.Update(db)
	} else if err == gorm.ErrRecordNotFound {
		return e.Create(db)
	}

	return fmt.Errorf("error checking for existing registered entity: %w", err)
}

// ListResolvable returns all entities with a read view configured, ordered
// by entity name. This is the set the view synthesizer projects; the order
// fixes the view's UNION branch order so rebuilds are deterministic.
func ListResolvable(db *gorm.DB) (RegisteredEntities, error) {
	var entities RegisteredEntities
	if err := db.
		Where("view_table IS NOT NULL AND view_table <> ''").
		Order("entity_name ASC").
		Find(&entities).
		Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// Count returns the total number of registered entities, resolvable or not.
func Count(db *gorm.DB) (int64, error) {
	var n int64
	if err := db.Model(&RegisteredEntity{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// DataTable returns the table the synthesizer should project for this
// entity: the typed view when configured, otherwise the read view. Empty
// when the entity is not resolvable.
func (e *RegisteredEntity) DataTable() string {
	if e.TVTable != nil && *e.TVTable != "" {
		return *e.TVTable
	}
	if e.ViewTable != nil {
		return *e.ViewTable
	}
	return ""
}
