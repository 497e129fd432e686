package domain

import (
	"fmt"
	"sort"
	"strings"
)

const (
	FieldTitle         = "title"
	FieldDocumentType  = "document_type"
	FieldJurisdiction  = "jurisdiction"
	FieldVersion       = "version"
	FieldIsLatest      = "is_latest"
	FieldSourceURL     = "source_url"
	FieldDescription   = "description"
	FieldExtractedPath = "extracted_path"
	FieldSupersededBy  = "superseded_by"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindOptionalString
	kindBool
	kindID
)

var updatableFields = map[string]fieldKind{
	FieldTitle:         kindString,
	FieldDocumentType:  kindString,
	FieldJurisdiction:  kindString,
	FieldVersion:       kindOptionalString,
	FieldIsLatest:      kindBool,
	FieldSourceURL:     kindOptionalString,
	FieldDescription:   kindOptionalString,
	FieldExtractedPath: kindOptionalString,
	FieldSupersededBy:  kindID,
}

// Fields is a partial update keyed by column name.
//
// Values are normalized by Validate: strings stay strings, optional strings
// become *string (nil clears the column), is_latest is a bool and
// superseded_by an int64.
type Fields map[string]any

// Validate rejects unknown field names and values of the wrong type.
func (f Fields) Validate() (Fields, error) {
	if len(f) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	var unknown []string
	out := make(Fields, len(f))
	for name, raw := range f {
		kind, ok := updatableFields[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		v, err := coerce(kind, raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown fields: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// Names returns the field names in a stable order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func coerce(kind fieldKind, raw any) (any, error) {
	switch kind {
	case kindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("must not be empty")
		}
		return s, nil
	case kindOptionalString:
		switch v := raw.(type) {
		case nil:
			return (*string)(nil), nil
		case string:
			return &v, nil
		case *string:
			return v, nil
		}
		return nil, fmt.Errorf("expected string, got %T", raw)
	case kindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return b, nil
	case kindID:
		switch v := raw.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case float64:
			// JSON numbers
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("expected integer id, got %v", v)
			}
			return int64(v), nil
		}
		return nil, fmt.Errorf("expected integer id, got %T", raw)
	}
	return nil, fmt.Errorf("unsupported field kind")
}
