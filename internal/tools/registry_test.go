package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	err := r.Register(Tool{
		Name:        "get_weather",
		Description: "Look up the weather",
		Args:        weatherArgs{},
		Handler: func(ctx context.Context, args string) (string, error) {
			var a weatherArgs
			if err := json.Unmarshal([]byte(args), &a); err != nil {
				return "", err
			}
			return "Sunny in " + a.Location, nil
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return r
}

func TestRegistry_Execute(t *testing.T) {
	r := testRegistry(t)

	resp := r.Execute(context.Background(), CallRequest{
		ID:   "call-1",
		Name: "get_weather",
		Args: `{"location":"Boston","days":3}`,
	}, nil)

	if resp.ID != "call-1" {
		t.Errorf("ID = %q, want call-1", resp.ID)
	}
	if resp.Result != "Sunny in Boston" {
		t.Errorf("Result = %q", resp.Result)
	}
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	r := testRegistry(t)

	resp := r.Execute(context.Background(), CallRequest{
		ID:   "call-2",
		Name: "no_such_tool",
		Args: "{}",
	}, nil)

	if resp.Result != "Tool not found: no_such_tool" {
		t.Errorf("Result = %q", resp.Result)
	}
}

func TestRegistry_ExecuteHandlerError(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Tool{
		Name: "broken",
		Handler: func(ctx context.Context, args string) (string, error) {
			return "", errors.New("backend unavailable")
		},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp := r.Execute(context.Background(), CallRequest{ID: "c", Name: "broken"}, nil)
	if resp.Result != "Error: backend unavailable" {
		t.Errorf("Result = %q", resp.Result)
	}
}

func TestRegistry_ExecuteHandlerPanic(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Tool{
		Name: "panicky",
		Handler: func(ctx context.Context, args string) (string, error) {
			panic("boom")
		},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp := r.Execute(context.Background(), CallRequest{ID: "c", Name: "panicky"}, nil)
	if !strings.HasPrefix(resp.Result, "Error: ") {
		t.Errorf("Result = %q, want Error prefix", resp.Result)
	}
	if !strings.Contains(resp.Result, "boom") {
		t.Errorf("Result = %q, want panic value included", resp.Result)
	}
}

func TestRegistry_ExecuteAllPreservesOrder(t *testing.T) {
	r := testRegistry(t)

	reqs := []CallRequest{
		{ID: "a", Name: "get_weather", Args: `{"location":"Lisbon","days":1}`},
		{ID: "b", Name: "missing", Args: "{}"},
		{ID: "c", Name: "get_weather", Args: `{"location":"Oslo","days":2}`},
	}
	resps := r.ExecuteAll(context.Background(), reqs, nil)

	if len(resps) != 3 {
		t.Fatalf("len(resps) = %d, want 3", len(resps))
	}
	for i, req := range reqs {
		if resps[i].ID != req.ID {
			t.Errorf("resps[%d].ID = %q, want %q", i, resps[i].ID, req.ID)
		}
	}
	if resps[1].Result != "Tool not found: missing" {
		t.Errorf("resps[1].Result = %q", resps[1].Result)
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Tool{Handler: func(ctx context.Context, args string) (string, error) { return "", nil }}); err == nil {
		t.Error("expected error for empty name")
	}
	if err := r.Register(Tool{Name: "x"}); err == nil {
		t.Error("expected error for nil handler")
	}
	if err := r.Register(Tool{
		Name:    "bad_args",
		Args:    42,
		Handler: func(ctx context.Context, args string) (string, error) { return "", nil },
	}); err == nil {
		t.Error("expected error for non-struct args")
	}
}

func TestRegistry_SchemasOrder(t *testing.T) {
	r := NewRegistry()
	noop := func(ctx context.Context, args string) (string, error) { return "", nil }

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(Tool{Name: name, Handler: noop}); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	schemas := r.Schemas()
	if len(schemas) != 3 {
		t.Fatalf("len(schemas) = %d, want 3", len(schemas))
	}
	want := []string{"zeta", "alpha", "mid"}
	for i, s := range schemas {
		if s.Name != want[i] {
			t.Errorf("schemas[%d].Name = %q, want %q", i, s.Name, want[i])
		}
	}
}

func TestDecodeArgs(t *testing.T) {
	var a weatherArgs
	if err := DecodeArgs(`{"location":"Oslo","days":2}`, &a); err != nil {
		t.Fatalf("DecodeArgs() error = %v", err)
	}
	if a.Location != "Oslo" || a.Days != 2 {
		t.Errorf("decoded args = %+v", a)
	}

	var empty weatherArgs
	if err := DecodeArgs("", &empty); err != nil {
		t.Errorf("DecodeArgs(empty) error = %v", err)
	}
	if empty.Location != "" {
		t.Errorf("empty payload should leave zero value, got %+v", empty)
	}

	if err := DecodeArgs("{not json", &a); err == nil {
		t.Error("expected error for malformed payload")
	}
}
