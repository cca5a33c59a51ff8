package gemini

import (
	"strings"

	"github.com/voicebridge/voicebridge/internal/tools"
)

// Declaration is one entry of a functionDeclarations list
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Schema is the OpenAPI-style parameter schema the live API expects. Types
// are upper-cased and nullability is a dedicated flag, not a type union.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Nullable    bool               `json:"nullable,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	MinLength   *int               `json:"minLength,omitempty"`
	MaxLength   *int               `json:"maxLength,omitempty"`
}

// ToolWrapper holds the declarations list inside the setup tools array
type ToolWrapper struct {
	FunctionDeclarations []Declaration `json:"functionDeclarations"`
}

// TranslateSchema maps a canonical tool schema into a function declaration.
// Only the canonically required properties appear in required; nullable maps
// to the schema's nullable flag.
func TranslateSchema(schema tools.Schema) Declaration {
	return Declaration{
		Name:        schema.Name,
		Description: schema.Description,
		Parameters:  translateParameter(schema.Parameters),
	}
}

// TranslateSchemas wraps all declarations into the setup tools shape
func TranslateSchemas(schemas []tools.Schema) []ToolWrapper {
	if len(schemas) == 0 {
		return nil
	}
	decls := make([]Declaration, len(schemas))
	for i, s := range schemas {
		decls[i] = TranslateSchema(s)
	}
	return []ToolWrapper{{FunctionDeclarations: decls}}
}

// TranslateResult maps one tool execution result into a function response
// entry, echoing the vendor-assigned call id verbatim.
func TranslateResult(resp tools.CallResponse) functionResponse {
	return functionResponse{
		ID:       resp.ID,
		Name:     resp.Name,
		Response: map[string]any{"result": resp.Result},
	}
}

func translateParameter(p *tools.Parameter) *Schema {
	if p == nil {
		return &Schema{Type: "OBJECT"}
	}

	out := &Schema{
		Type:        strings.ToUpper(p.Type),
		Description: p.Description,
		Nullable:    p.Nullable,
		Enum:        p.Enum,
		Minimum:     p.Minimum,
		Maximum:     p.Maximum,
		MinLength:   p.MinLength,
		MaxLength:   p.MaxLength,
	}

	switch p.Type {
	case "object":
		if len(p.Properties) > 0 {
			out.Properties = make(map[string]*Schema, len(p.Properties))
			for name, prop := range p.Properties {
				out.Properties[name] = translateParameter(prop)
			}
		}
		out.Required = p.Required
	case "array":
		if p.Items != nil {
			out.Items = translateParameter(p.Items)
		}
	}

	return out
}
