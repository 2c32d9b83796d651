package planner

import (
	"fmt"
	"strings"
)

// Attribute field names shared by every conservation layer. Downstream
// exports key on these, so they are fixed strings rather than caller input.
const (
	FieldID    = "ID"
	FieldClass = "CLASS_TYPE"
	FieldGroup = "GROUP_"
	FieldName  = "NAME"
)

var requiredFields = []string{FieldID, FieldClass, FieldGroup, FieldName}

// AttributeMap holds one feature's attributes keyed by field name.
// Values come straight from the source file (GeoJSON properties or DBF
// records), so they are scalars of mixed dynamic type.
type AttributeMap map[string]any

// Validate reports the required fields the map is missing. Loaders call
// this at ingestion so a bad layer fails up front instead of deep inside
// an overlap computation.
func (m AttributeMap) Validate() error {
	var missing []string
	for _, field := range requiredFields {
		if _, ok := m[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing attribute fields: %s", ErrInvalidParameter, strings.Join(missing, ", "))
	}
	return nil
}

// ID returns the feature identifier as a string regardless of the scalar
// type the source file stored it as.
func (m AttributeMap) ID() string {
	return m.Get(FieldID)
}

// Get returns the value of key rendered as a string, or "" if absent.
func (m AttributeMap) Get(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
