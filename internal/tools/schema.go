package tools

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Parameter is the canonical, vendor-neutral description of one JSON-schema
// shaped value: type, nullability, enum, nesting, numeric and length bounds.
// Each vendor translator maps this into its own tool-definition JSON.
type Parameter struct {
	Type        string // object, array, string, number, integer, boolean
	Description string
	Nullable    bool
	Enum        []string
	Properties  map[string]*Parameter // Type == object
	Required    []string              // Type == object; canonical required-ness
	Items       *Parameter            // Type == array
	Minimum     *float64
	Maximum     *float64
	MinLength   *int
	MaxLength   *int
}

// Schema is the canonical description of one callable tool
type Schema struct {
	Name        string
	Description string
	Parameters  *Parameter
}

// Builder reflects Go argument types into canonical schemas.
// Schemas are memoized per builder instance, so generation happens once per
// tool for the lifetime of a session.
type Builder struct {
	mu    sync.Mutex
	cache map[reflect.Type]*Parameter
}

// NewBuilder creates an empty schema builder
func NewBuilder() *Builder {
	return &Builder{cache: make(map[reflect.Type]*Parameter)}
}

// Build reflects over args (a struct value or pointer) and returns the
// canonical parameter schema for it.
//
// Supported struct tags:
//   - json:"name,omitempty" - field name; omitempty makes the field optional
//   - desc:"description"    - field description
//   - enum:"a,b,c"          - enum values
//   - min:"0" / max:"100"   - numeric bounds
//   - minlen:"1" / maxlen:"64" - string length bounds
//
// Pointer fields are nullable and optional.
func (b *Builder) Build(args any) (*Parameter, error) {
	if args == nil {
		return &Parameter{Type: "object", Properties: map[string]*Parameter{}}, nil
	}
	t := reflect.TypeOf(args)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tool arguments must be a struct, got %s", t.Kind())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cached, ok := b.cache[t]; ok {
		return cached, nil
	}

	schema, err := buildObject(t)
	if err != nil {
		return nil, err
	}
	b.cache[t] = schema
	return schema, nil
}

func buildObject(t reflect.Type) (*Parameter, error) {
	schema := &Parameter{
		Type:       "object",
		Properties: make(map[string]*Parameter),
		Required:   []string{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		jsonName := field.Name
		omitempty := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				jsonName = parts[0]
			}
			for _, part := range parts[1:] {
				if part == "omitempty" {
					omitempty = true
					break
				}
			}
		}

		fieldSchema, err := buildType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		if desc := field.Tag.Get("desc"); desc != "" {
			fieldSchema.Description = desc
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			fieldSchema.Enum = parseEnumTag(enum)
		}
		if err := applyBoundTags(field.Tag, fieldSchema); err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		if field.Type.Kind() == reflect.Ptr {
			fieldSchema.Nullable = true
		}

		schema.Properties[jsonName] = fieldSchema

		// Required when neither a pointer nor omitempty
		if field.Type.Kind() != reflect.Ptr && !omitempty {
			schema.Required = append(schema.Required, jsonName)
		}
	}

	return schema, nil
}

func buildType(t reflect.Type) (*Parameter, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return buildObject(t)
	case reflect.Slice, reflect.Array:
		items, err := buildType(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Parameter{Type: "array", Items: items}, nil
	case reflect.String:
		return &Parameter{Type: "string"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Parameter{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &Parameter{Type: "number"}, nil
	case reflect.Bool:
		return &Parameter{Type: "boolean"}, nil
	case reflect.Map:
		return &Parameter{Type: "object", Properties: map[string]*Parameter{}}, nil
	default:
		return nil, fmt.Errorf("unsupported kind %s", t.Kind())
	}
}

func applyBoundTags(tag reflect.StructTag, schema *Parameter) error {
	if v := tag.Get("min"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid min tag %q: %w", v, err)
		}
		schema.Minimum = &f
	}
	if v := tag.Get("max"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid max tag %q: %w", v, err)
		}
		schema.Maximum = &f
	}
	if v := tag.Get("minlen"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid minlen tag %q: %w", v, err)
		}
		schema.MinLength = &n
	}
	if v := tag.Get("maxlen"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid maxlen tag %q: %w", v, err)
		}
		schema.MaxLength = &n
	}
	return nil
}

func parseEnumTag(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
