package nodeid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFormat is returned when an encoded global ID cannot be
	// decoded: bad base64, no type separator, empty type name, or a
	// malformed UUID.
	ErrInvalidFormat = errors.New("invalid global ID format")

	// ErrInvalidTypeName is returned when constructing a GlobalID with a
	// type name that is empty or contains the ":" separator.
	ErrInvalidTypeName = errors.New("invalid type name")
)

// GlobalID is a fully-qualified node reference containing:
//   - TypeName: display type of the entity (e.g., "User", "Order")
//   - ID: stable node identifier
//
// GlobalIDs serialize to an opaque token, standard base64 over
// "TypeName:uuid". Decoding splits on the first colon, so type names may
// not contain ":"; the UUID half always does not.
type GlobalID struct {
	typeName string
	id       ID
}

// NewGlobalID creates a global ID for the given display type and node ID.
// The type name must be non-empty and must not contain ":".
func NewGlobalID(typeName string, id ID) (GlobalID, error) {
	if typeName == "" {
		return GlobalID{}, fmt.Errorf("%w: type name cannot be empty", ErrInvalidTypeName)
	}
	if strings.Contains(typeName, ":") {
		return GlobalID{}, fmt.Errorf("%w: type name %q contains ':'", ErrInvalidTypeName, typeName)
	}
	return GlobalID{typeName: typeName, id: id}, nil
}

// MustGlobalID is like NewGlobalID but panics on error.
// Useful for test fixtures where the type name is known valid.
func MustGlobalID(typeName string, id ID) GlobalID {
	g, err := NewGlobalID(typeName, id)
	if err != nil {
		panic(fmt.Sprintf("invalid global ID: %v", err))
	}
	return g
}

// TypeName returns the display type name.
func (g GlobalID) TypeName() string {
	return g.typeName
}

// ID returns the node identifier.
func (g GlobalID) ID() ID {
	return g.id
}

// IsZero returns true if this is a zero GlobalID (no fields set).
func (g GlobalID) IsZero() bool {
	return g.typeName == "" && g.id.IsZero()
}

// Equal returns true if two GlobalIDs are equal.
func (g GlobalID) Equal(other GlobalID) bool {
	return g.typeName == other.typeName && g.id.Equal(other.id)
}

// Encode returns the opaque token form.
// Format: base64("TypeName:uuid") with standard encoding and no wrapping.
func (g GlobalID) Encode() string {
	raw := g.typeName + ":" + g.id.String()
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// String returns the human-readable "TypeName:uuid" form.
// Use Encode for the opaque wire form.
func (g GlobalID) String() string {
	return g.typeName + ":" + g.id.String()
}

// DecodeGlobalID parses an opaque token produced by Encode.
//
// All failures return an error wrapping ErrInvalidFormat: undecodable
// base64, a payload with no ":" separator, an empty type name, or an
// invalid UUID after the separator. Decoding a token produced by Encode
// always yields the original GlobalID.
func DecodeGlobalID(s string) (GlobalID, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return GlobalID{}, fmt.Errorf("%w: not base64: %v", ErrInvalidFormat, err)
	}

	typeName, idPart, found := strings.Cut(string(raw), ":")
	if !found {
		return GlobalID{}, fmt.Errorf("%w: missing ':' separator", ErrInvalidFormat)
	}
	if typeName == "" {
		return GlobalID{}, fmt.Errorf("%w: empty type name", ErrInvalidFormat)
	}

	id, err := ParseID(idPart)
	if err != nil {
		return GlobalID{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return GlobalID{typeName: typeName, id: id}, nil
}
