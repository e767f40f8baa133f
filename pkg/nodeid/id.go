package nodeid

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID is a stable, globally unique node identifier.
// It wraps the UUID primary key of the underlying record and is the value
// half of a GlobalID.
//
// IDs are stored in:
//   - Database: the pk column of each registered entity's backing table
//   - API: the "id" field of resolved nodes and the uuid half of global IDs
type ID struct {
	value uuid.UUID
}

// New generates a new random ID (UUID v4).
func New() ID {
	return ID{value: uuid.New()}
}

// MustParseID parses an ID from string, panicking on error.
// This is useful for test fixtures and constants where the value is known valid.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(fmt.Sprintf("invalid ID: %s: %v", s, err))
	}
	return id
}

// ParseID parses an ID from string (e.g., "550e8400-e29b-41d4-a716-446655440000").
// Accepts standard UUID formats (with or without hyphens).
func ParseID(s string) (ID, error) {
	if s == "" {
		return ID{}, fmt.Errorf("ID cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid ID format: %w", err)
	}
	return ID{value: u}, nil
}

// String returns the canonical UUID string in lowercase with hyphens.
// Format: "550e8400-e29b-41d4-a716-446655440000"
func (id ID) String() string {
	return id.value.String()
}

// IsZero returns true if this is the zero/nil ID.
func (id ID) IsZero() bool {
	return id.value == uuid.Nil
}

// Equal returns true if two IDs are equal.
func (id ID) Equal(other ID) bool {
	return id.value == other.value
}

// Less reports whether id sorts before other by canonical string order.
// Used for the deterministic ordering of batch resolution results.
func (id ID) Less(other ID) bool {
	return id.String() < other.String()
}

// MarshalJSON implements json.Marshaler.
// IDs are serialized as strings: "550e8400-e29b-41d4-a716-446655440000"
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ID must be a string: %w", err)
	}
	if s == "" || s == "null" {
		*id = ID{}
		return nil
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Scan implements sql.Scanner for database reading.
// Supports string and []byte input from database.
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = ID{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" {
			*id = ID{}
			return nil
		}
		parsed, err := ParseID(v)
		if err != nil {
			return fmt.Errorf("cannot scan string into ID: %w", err)
		}
		*id = parsed
		return nil
	case []byte:
		if len(v) == 0 {
			*id = ID{}
			return nil
		}
		parsed, err := ParseID(string(v))
		if err != nil {
			return fmt.Errorf("cannot scan bytes into ID: %w", err)
		}
		*id = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}
}

// Value implements driver.Valuer for database writing.
// Returns nil for zero ID, string for valid ID.
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return id.String(), nil
}
