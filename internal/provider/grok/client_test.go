package grok

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/voicebridge/internal/chat"
	"github.com/voicebridge/voicebridge/internal/provider"
	"github.com/voicebridge/voicebridge/internal/tools"
)

// fakeServer acknowledges session.update frames and exposes every received
// frame. It accepts repeated connections so reconnect behavior is testable.
type fakeServer struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	conn     *websocket.Conn
	setups   int
	received chan map[string]any
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t, received: make(chan map[string]any, 64)}
	upgrader := websocket.Upgrader{}

	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conn = conn
		fs.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]any
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			if frame["type"] == "session.update" {
				fs.mu.Lock()
				fs.setups++
				fs.mu.Unlock()
				fs.send(map[string]any{"type": "session.created"})
			}
			fs.received <- frame
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *fakeServer) send(v any) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.conn == nil {
		fs.t.Error("send before connection established")
		return
	}
	if err := fs.conn.WriteJSON(v); err != nil {
		fs.t.Errorf("server write failed: %v", err)
	}
}

func (fs *fakeServer) setupCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.setups
}

func (fs *fakeServer) nextFrame(wantType string) map[string]any {
	fs.t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case frame := <-fs.received:
			if frame["type"] == wantType {
				return frame
			}
		case <-deadline:
			fs.t.Fatalf("timed out waiting for %s frame", wantType)
			return nil
		}
	}
}

type capture struct {
	mu       sync.Mutex
	messages []chat.Message
}

func (c *capture) events() provider.Events {
	return provider.Events{
		OnMessage: func(msg chat.Message) {
			c.mu.Lock()
			c.messages = append(c.messages, msg)
			c.mu.Unlock()
		},
	}
}

func testSettings(fs *fakeServer, schemas []tools.Schema) Settings {
	return Settings{
		APIKey:         "test-key",
		Model:          "grok-3-realtime",
		Voice:          "ara",
		Instructions:   "You are helpful",
		Temperature:    0.8,
		BaseURL:        fs.url(),
		ConnectTimeout: 2 * time.Second,
		Tools:          schemas,
	}
}

func TestClient_ConnectSendsPlainToolDefs(t *testing.T) {
	fs := newFakeServer(t)
	registry := tools.NewRegistry()
	if err := registry.Register(tools.Tool{
		Name:        "get_weather",
		Description: "Look up the weather",
		Handler: func(ctx context.Context, args string) (string, error) {
			return "", nil
		},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	rec := &capture{}
	client := NewClient(rec.events(), registry, nil)
	if err := client.Connect(context.Background(), testSettings(fs, registry.Schemas())); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect() })

	frame := fs.nextFrame("session.update")
	session := frame["session"].(map[string]any)
	if session["voice"] != "ara" {
		t.Errorf("voice = %v", session["voice"])
	}

	defs := session["tools"].([]any)
	def := defs[0].(map[string]any)
	if def["type"] != "function" {
		t.Errorf("tool type = %v", def["type"])
	}
	fn := def["function"].(map[string]any)
	if fn["name"] != "get_weather" {
		t.Errorf("function.name = %v, want the function wrapper shape", fn["name"])
	}
	if _, present := fn["parameters"].(map[string]any)["additionalProperties"]; present {
		t.Error("plain tool shape must not carry additionalProperties")
	}
}

func TestClient_ConnectWrongSettingsType(t *testing.T) {
	client := NewClient(provider.Events{}, tools.NewRegistry(), nil)

	err := client.Connect(context.Background(), badSettings{})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if _, ok := err.(*provider.ConfigurationError); !ok {
		t.Errorf("error type = %T, want *provider.ConfigurationError", err)
	}
}

type badSettings struct{}

func (badSettings) ProviderName() string { return "other" }

func TestClient_ToolCallRoundTripOrder(t *testing.T) {
	fs := newFakeServer(t)
	registry := tools.NewRegistry()
	if err := registry.Register(tools.Tool{
		Name: "get_time",
		Handler: func(ctx context.Context, args string) (string, error) {
			return "12:00", nil
		},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	rec := &capture{}
	client := NewClient(rec.events(), registry, nil)
	if err := client.Connect(context.Background(), testSettings(fs, nil)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect() })

	fs.send(map[string]any{
		"type":      "response.function_call_arguments.done",
		"call_id":   "c1",
		"name":      "unknown_tool",
		"arguments": "{}",
	})
	fs.send(map[string]any{
		"type":      "response.function_call_arguments.done",
		"call_id":   "c2",
		"name":      "get_time",
		"arguments": "{}",
	})
	fs.send(map[string]any{"type": "response.done"})

	first := fs.nextFrame("conversation.item.create")
	item := first["item"].(map[string]any)
	if item["call_id"] != "c1" || item["output"] != "Tool not found: unknown_tool" {
		t.Errorf("first output = %v", item)
	}

	second := fs.nextFrame("conversation.item.create")
	item = second["item"].(map[string]any)
	if item["call_id"] != "c2" || item["output"] != "12:00" {
		t.Errorf("second output = %v", item)
	}

	fs.nextFrame("response.create")
}

func TestClient_UpdateSettingsReconnects(t *testing.T) {
	fs := newFakeServer(t)
	rec := &capture{}
	client := NewClient(rec.events(), tools.NewRegistry(), nil)
	if err := client.Connect(context.Background(), testSettings(fs, nil)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect() })
	fs.nextFrame("session.update")

	updated := testSettings(fs, nil)
	updated.Instructions = "New persona"
	if err := client.UpdateSettings(context.Background(), updated); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	frame := fs.nextFrame("session.update")
	session := frame["session"].(map[string]any)
	if session["instructions"] != "New persona" {
		t.Errorf("instructions = %v", session["instructions"])
	}
	if fs.setupCount() != 2 {
		t.Errorf("setupCount = %d, want 2 after reconnect", fs.setupCount())
	}
	if client.State() != provider.StateReady {
		t.Errorf("State() = %v after reconnect", client.State())
	}
}
