// Package dbtypes holds scanner/valuer wrappers for Postgres column
// types gorm has no native mapping for.
package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUIDArray maps a Postgres uuid[] column.
type UUIDArray []uuid.UUID

// Value renders the Postgres array literal form, {uuid,uuid}.
func (a UUIDArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	b.WriteByte('}')
	return b.String(), nil
}

func (a *UUIDArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = UUIDArray{}
		return nil
	case string:
		return a.parseLiteral(v)
	case []byte:
		return a.parseLiteral(string(v))
	default:
		return fmt.Errorf("UUIDArray: unsupported Scan type %T", src)
	}
}

func (a *UUIDArray) parseLiteral(literal string) error {
	inner := strings.TrimSpace(literal)
	inner = strings.TrimPrefix(inner, "{")
	inner = strings.TrimSuffix(inner, "}")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		*a = UUIDArray{}
		return nil
	}

	elements := strings.Split(inner, ",")
	parsed := make(UUIDArray, 0, len(elements))
	for _, element := range elements {
		element = strings.TrimSpace(strings.Trim(element, `"`))
		id, err := uuid.Parse(element)
		if err != nil {
			return fmt.Errorf("UUIDArray: parse %q: %w", element, err)
		}
		parsed = append(parsed, id)
	}
	*a = parsed
	return nil
}
