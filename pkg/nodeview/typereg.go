package nodeview

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
)

// TypeRegistry maps display type names to Go prototypes so resolved node
// payloads can be hydrated into typed values. Registration is optional;
// nodes of unregistered types hydrate to a plain map.
type TypeRegistry struct {
	mu     sync.RWMutex
	protos map[string]reflect.Type
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		protos: make(map[string]reflect.Type),
	}
}

// Register associates a display type name with a prototype value. The
// prototype must be a struct or a pointer to one; Hydrate allocates a
// fresh instance per call. Re-registering a name replaces the previous
// prototype.
func (r *TypeRegistry) Register(typeName string, prototype interface{}) error {
	if typeName == "" {
		return fmt.Errorf("type name cannot be empty")
	}

	t := reflect.TypeOf(prototype)
	if t == nil {
		return fmt.Errorf("prototype for %q cannot be nil", typeName)
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("prototype for %q must be a struct, got %s", typeName, t.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.protos[typeName] = t
	return nil
}

// Registered reports whether a type name has a prototype.
func (r *TypeRegistry) Registered(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.protos[typeName]
	return ok
}

// Hydrate decodes a node's payload. Registered types come back as a
// pointer to a freshly-allocated instance of the prototype; unregistered
// types come back as map[string]interface{}. Field matching honors json
// tags, and RFC 3339 strings decode into time.Time fields.
func (r *TypeRegistry) Hydrate(node *Node) (interface{}, error) {
	var raw map[string]interface{}
	if len(node.Data) > 0 {
		if err := json.Unmarshal(node.Data, &raw); err != nil {
			return nil, fmt.Errorf("decoding payload for %s: %w", node.TypeName, err)
		}
	}

	r.mu.RLock()
	proto, ok := r.protos[node.TypeName]
	r.mu.RUnlock()
	if !ok {
		return raw, nil
	}

	out := reflect.New(proto).Interface()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("building decoder for %s: %w", node.TypeName, err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("hydrating %s: %w", node.TypeName, err)
	}
	return out, nil
}
