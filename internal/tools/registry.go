package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/voicebridge/voicebridge/internal/observability"
)

// Handler executes one tool call. args is the raw JSON argument payload
// exactly as the provider sent it. The returned string is delivered back to
// the model as the tool result.
type Handler func(ctx context.Context, args string) (string, error)

// Tool pairs a callable handler with the argument struct its schema is
// reflected from. Args may be nil for tools that take no arguments.
type Tool struct {
	Name        string
	Description string
	Args        any
	Handler     Handler
}

// CallRequest is one tool invocation as requested by the model
type CallRequest struct {
	ID   string
	Name string
	Args string
}

// CallResponse is the result of one tool invocation. Result always carries a
// string the model can read, including "Error: ..." text when the execution
// failed.
type CallResponse struct {
	ID     string
	Name   string
	Result string
}

// ExecutionError reports a failed tool handler. Execute converts it to
// readable result text; it never escapes to the provider socket.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Registry holds the session's tools and their cached canonical schemas.
// Registration happens before the session connects; execution is concurrent
// with the provider read loop.
type Registry struct {
	builder *Builder
	tools   map[string]Tool
	order   []string
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		builder: NewBuilder(),
		tools:   make(map[string]Tool),
	}
}

// Register adds a tool. Re-registering a name replaces the previous tool.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}
	if _, err := r.builder.Build(t.Args); err != nil {
		return fmt.Errorf("tool %s: %w", t.Name, err)
	}
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.tools)
}

// Schemas returns canonical schemas for every registered tool, in
// registration order. Schema generation is cached inside the builder.
func (r *Registry) Schemas() []Schema {
	schemas := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		params, err := r.builder.Build(t.Args)
		if err != nil {
			// Registration already validated the type
			continue
		}
		schemas = append(schemas, Schema{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return schemas
}

// Execute runs a single tool call and always produces a response the model
// can consume. Unknown tools, handler errors, and handler panics all become
// readable result text rather than dropped calls.
func (r *Registry) Execute(ctx context.Context, req CallRequest, metrics *observability.Metrics) CallResponse {
	resp := CallResponse{ID: req.ID, Name: req.Name}

	tool, ok := r.tools[req.Name]
	if !ok {
		log.Warn().Str("tool", req.Name).Msg("tool call for unregistered tool")
		if metrics != nil {
			metrics.RecordToolCallEnd(req.Name, false)
		}
		resp.Result = fmt.Sprintf("Tool not found: %s", req.Name)
		return resp
	}

	if metrics != nil {
		metrics.RecordToolCallStart()
	}

	result, err := runHandler(ctx, tool, req.Args)
	if err != nil {
		execErr := &ExecutionError{Tool: req.Name, Err: err}
		log.Error().Err(execErr).Msg("tool execution failed")
		if metrics != nil {
			metrics.RecordToolCallEnd(req.Name, false)
		}
		resp.Result = fmt.Sprintf("Error: %v", err)
		return resp
	}

	if metrics != nil {
		metrics.RecordToolCallEnd(req.Name, true)
	}
	resp.Result = result
	return resp
}

// ExecuteAll runs a batch of tool calls and returns responses in request
// order, so providers that require ordered results can forward them directly.
func (r *Registry) ExecuteAll(ctx context.Context, reqs []CallRequest, metrics *observability.Metrics) []CallResponse {
	responses := make([]CallResponse, len(reqs))
	for i, req := range reqs {
		responses[i] = r.Execute(ctx, req, metrics)
	}
	return responses
}

// DecodeArgs unmarshals a raw argument payload into the handler's argument
// struct. An empty payload decodes to the zero value.
func DecodeArgs(args string, v any) error {
	if args == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}

func runHandler(ctx context.Context, tool Tool, args string) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panicked: %v", rec)
		}
	}()
	return tool.Handler(ctx, args)
}
