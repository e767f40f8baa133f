package nodeview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypost/waypost/pkg/models"
)

type testUser struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

func TestTypeRegistry_Register(t *testing.T) {
	tests := []struct {
		name      string
		typeName  string
		prototype interface{}
		wantErr   bool
	}{
		{
			name:      "struct prototype",
			typeName:  "User",
			prototype: testUser{},
			wantErr:   false,
		},
		{
			name:      "pointer prototype",
			typeName:  "User",
			prototype: &testUser{},
			wantErr:   false,
		},
		{
			name:      "empty type name",
			typeName:  "",
			prototype: testUser{},
			wantErr:   true,
		},
		{
			name:      "nil prototype",
			typeName:  "User",
			prototype: nil,
			wantErr:   true,
		},
		{
			name:      "non-struct prototype",
			typeName:  "User",
			prototype: "not a struct",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewTypeRegistry()
			err := reg.Register(tt.typeName, tt.prototype)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, reg.Registered(tt.typeName))
			} else {
				assert.NoError(t, err)
				assert.True(t, reg.Registered(tt.typeName))
			}
		})
	}
}

func TestTypeRegistry_Hydrate(t *testing.T) {
	t.Run("hydrates a registered type", func(t *testing.T) {
		reg := NewTypeRegistry()
		require.NoError(t, reg.Register("User", testUser{}))

		node := &Node{
			TypeName: "User",
			Data:     models.JSON(`{"name":"ada","email":"ada@example.com","joined_at":"2024-03-15T10:30:00Z"}`),
		}

		out, err := reg.Hydrate(node)
		require.NoError(t, err)

		user, ok := out.(*testUser)
		require.True(t, ok)
		assert.Equal(t, "ada", user.Name)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), user.JoinedAt)
	})

	t.Run("unregistered types hydrate to a map", func(t *testing.T) {
		reg := NewTypeRegistry()

		node := &Node{
			TypeName: "Widget",
			Data:     models.JSON(`{"label":"left"}`),
		}

		out, err := reg.Hydrate(node)
		require.NoError(t, err)

		m, ok := out.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "left", m["label"])
	})

	t.Run("extra payload fields are ignored", func(t *testing.T) {
		reg := NewTypeRegistry()
		require.NoError(t, reg.Register("User", testUser{}))

		node := &Node{
			TypeName: "User",
			Data:     models.JSON(`{"name":"ada","unknown_field":42}`),
		}

		out, err := reg.Hydrate(node)
		require.NoError(t, err)
		assert.Equal(t, "ada", out.(*testUser).Name)
	})

	t.Run("empty payload hydrates to a zero value", func(t *testing.T) {
		reg := NewTypeRegistry()
		require.NoError(t, reg.Register("User", testUser{}))

		out, err := reg.Hydrate(&Node{TypeName: "User"})
		require.NoError(t, err)
		assert.Equal(t, &testUser{}, out)
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		reg := NewTypeRegistry()

		_, err := reg.Hydrate(&Node{
			TypeName: "User",
			Data:     models.JSON(`{not json`),
		})
		assert.Error(t, err)
	})

	t.Run("re-registering replaces the prototype", func(t *testing.T) {
		type renamed struct {
			Name string `json:"name"`
		}

		reg := NewTypeRegistry()
		require.NoError(t, reg.Register("User", testUser{}))
		require.NoError(t, reg.Register("User", renamed{}))

		out, err := reg.Hydrate(&Node{
			TypeName: "User",
			Data:     models.JSON(`{"name":"ada"}`),
		})
		require.NoError(t, err)

		_, ok := out.(*renamed)
		assert.True(t, ok)
	})
}
