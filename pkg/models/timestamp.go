package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// Timestamp is a time.Time that scans from whatever representation the
// database hands back. Columns projected through a view lose their native
// type on SQLite and arrive as TEXT, while PostgreSQL returns time.Time,
// so the node resolver cannot rely on a single driver representation.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps a time.Time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Scan implements sql.Scanner.
// Supports time.Time, string, []byte, and nil input.
func (t *Timestamp) Scan(value interface{}) error {
	if value == nil {
		*t = Timestamp{}
		return nil
	}

	switch v := value.(type) {
	case time.Time:
		*t = Timestamp{Time: v}
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", value)
	}
}

func (t *Timestamp) parse(s string) error {
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := dateparse.ParseAny(s)
	if err != nil {
		return fmt.Errorf("cannot parse %q as timestamp: %w", s, err)
	}
	*t = Timestamp{Time: parsed}
	return nil
}

// Value implements driver.Valuer.
// Returns nil for the zero value so NULL round-trips.
func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Time, nil
}

// MarshalJSON implements json.Marshaler, emitting RFC 3339 or null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("Timestamp must be a string or null: %w", err)
	}
	if s == nil || *s == "" {
		*t = Timestamp{}
		return nil
	}
	return t.parse(*s)
}
