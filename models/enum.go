// Package models contains domain entities for the promotional allocation service
package models

import (
	"database/sql/driver"
	"fmt"
)

// scanString decodes a text column for string-backed enum types.
func scanString(value any, typeName string) (string, error) {
	if value == nil {
		return "", nil
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into %s", value, typeName)
	}
}

func enumValue(s string, valid bool, typeName string) (driver.Value, error) {
	if !valid {
		return nil, fmt.Errorf("invalid %s: %s", typeName, s)
	}
	return s, nil
}
