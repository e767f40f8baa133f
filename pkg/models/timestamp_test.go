package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_Scan(t *testing.T) {
	ref := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   interface{}
		want    time.Time
		wantErr bool
	}{
		{
			name:  "scans time.Time",
			input: ref,
			want:  ref,
		},
		{
			name:  "scans RFC 3339 string",
			input: "2024-03-15T10:30:00Z",
			want:  ref,
		},
		{
			name:  "scans SQLite datetime string",
			input: "2024-03-15 10:30:00",
			want:  ref,
		},
		{
			name:  "scans bytes",
			input: []byte("2024-03-15T10:30:00Z"),
			want:  ref,
		},
		{
			name:  "scans nil as zero",
			input: nil,
		},
		{
			name:  "scans empty string as zero",
			input: "",
		},
		{
			name:    "rejects garbage",
			input:   "not a time",
			wantErr: true,
		},
		{
			name:    "rejects unsupported type",
			input:   42,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := ts.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want.IsZero() {
				assert.True(t, ts.IsZero())
				return
			}
			assert.True(t, ts.Time.UTC().Equal(tt.want), "got %s want %s", ts.Time, tt.want)
		})
	}
}

func TestTimestamp_JSON(t *testing.T) {
	t.Run("marshals RFC 3339", func(t *testing.T) {
		ts := NewTimestamp(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC))
		data, err := json.Marshal(ts)
		require.NoError(t, err)
		assert.Equal(t, `"2024-03-15T10:30:00Z"`, string(data))
	})

	t.Run("marshals zero as null", func(t *testing.T) {
		var ts Timestamp
		data, err := json.Marshal(ts)
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	})

	t.Run("unmarshals null as zero", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte("null"), &ts))
		assert.True(t, ts.IsZero())
	})

	t.Run("round trips", func(t *testing.T) {
		ts := NewTimestamp(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC))
		data, err := json.Marshal(ts)
		require.NoError(t, err)

		var back Timestamp
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, back.Time.Equal(ts.Time))
	})
}

func TestTimestamp_Value(t *testing.T) {
	t.Run("zero is NULL", func(t *testing.T) {
		var ts Timestamp
		v, err := ts.Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("non-zero is time.Time", func(t *testing.T) {
		ref := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
		v, err := NewTimestamp(ref).Value()
		require.NoError(t, err)
		assert.Equal(t, ref, v)
	})
}
