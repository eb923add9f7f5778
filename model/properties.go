package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/siherrmann/graphrag/helper"
)

// Properties represents the string-keyed property bag of a relation, stored as JSONB in PostgreSQL
type Properties map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return p.Marshal()
}

// Scan implements the sql.Scanner interface for database retrieval
func (p *Properties) Scan(value interface{}) error {
	return p.Unmarshal(value)
}

// Marshal converts Properties to JSON bytes
func (p Properties) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal converts JSON bytes, strings or Properties to Properties
func (p *Properties) Unmarshal(value interface{}) error {
	if value == nil {
		*p = Properties{}
		return nil
	}

	switch v := value.(type) {
	case Properties:
		*p = v
		return nil
	case map[string]interface{}:
		*p = Properties(v)
		return nil
	case string:
		return json.Unmarshal([]byte(v), p)
	case []byte:
		return json.Unmarshal(v, p)
	}

	return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
}

// String returns the property as text, or "" if it is absent.
func (p Properties) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Text concatenates all property values in key order. Keyword filters match against it.
func (p Properties) Text() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := p.String(k); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
