package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Meta carries free-form auxiliary attributes on an inventory record inside a
// JSONB column. The engine never inspects it; it is stored and returned as-is.
type Meta map[string]any

// Value serializes the map to JSON.
func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan decodes JSONB into the map.
func (m *Meta) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported meta column type %T", value)
	}

	var decoded Meta
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// Clone returns a shallow copy so callers can mutate patches without
// aliasing the persisted map.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
