package grok

import "github.com/voicebridge/voicebridge/internal/tools"

// ToolDef is the plain chat-style tool definition the xAI realtime API
// accepts: a function wrapper without strict-mode constraints.
type ToolDef struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef is the function body of a tool definition
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// TranslateSchema maps a canonical tool schema into the plain function
// shape. Only canonically required properties are listed as required;
// nullable properties carry a two-element type union with "null".
func TranslateSchema(schema tools.Schema) ToolDef {
	return ToolDef{
		Type: "function",
		Function: FunctionDef{
			Name:        schema.Name,
			Description: schema.Description,
			Parameters:  translateParameter(schema.Parameters),
		},
	}
}

// TranslateSchemas maps all schemas, preserving order
func TranslateSchemas(schemas []tools.Schema) []ToolDef {
	defs := make([]ToolDef, len(schemas))
	for i, s := range schemas {
		defs[i] = TranslateSchema(s)
	}
	return defs
}

// TranslateResult maps one tool execution result into the
// function_call_output item answering the matching call id.
func TranslateResult(resp tools.CallResponse) conversationItem {
	return conversationItem{
		Type:   "function_call_output",
		CallID: resp.ID,
		Output: resp.Result,
	}
}

func translateParameter(p *tools.Parameter) map[string]any {
	if p == nil {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}

	out := map[string]any{}

	if p.Nullable {
		out["type"] = []string{p.Type, "null"}
	} else {
		out["type"] = p.Type
	}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Minimum != nil {
		out["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		out["maximum"] = *p.Maximum
	}
	if p.MinLength != nil {
		out["minLength"] = *p.MinLength
	}
	if p.MaxLength != nil {
		out["maxLength"] = *p.MaxLength
	}

	switch p.Type {
	case "object":
		props := map[string]any{}
		for name, prop := range p.Properties {
			props[name] = translateParameter(prop)
		}
		out["properties"] = props
		if len(p.Required) > 0 {
			out["required"] = p.Required
		}
	case "array":
		if p.Items != nil {
			out["items"] = translateParameter(p.Items)
		}
	}

	return out
}
