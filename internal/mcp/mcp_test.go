package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/alchemmist/termreel/internal/app"
	"github.com/alchemmist/termreel/internal/asciicast"
	"github.com/alchemmist/termreel/internal/config"
	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/session/sessiontest"
)

type fakeFactory struct {
	mu       sync.Mutex
	backends []*sessiontest.Backend
}

func (f *fakeFactory) new() session.Backend {
	b := sessiontest.New()
	b.Replies["echo hi"] = "hi"
	f.mu.Lock()
	f.backends = append(f.backends, b)
	f.mu.Unlock()
	return b
}

func testHandlers(t *testing.T) (*Handlers, *fakeFactory, *app.App) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Session.SettleDelay = time.Millisecond
	cfg.Visual.FontPath = filepath.Join(t.TempDir(), "missing.ttf")

	f := &fakeFactory{}
	a, err := app.New(cfg,
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		app.WithBackendFactory(f.new),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return NewHandlers(a), f, a
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, r.Content)
	text, ok := r.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decodeResult[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, r.IsError, resultText(t, r))
	var out T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, r)), &out))
	return out
}

func errorCode(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, r.IsError, "expected error result, got %s", resultText(t, r))
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, r)), &payload))
	return payload.Error.Code
}

func startSession(t *testing.T, h *Handlers) string {
	t.Helper()
	r, err := h.HandleStart(context.Background(), makeRequest(map[string]any{
		"width":  40,
		"height": 10,
		"title":  "agent demo",
	}))
	require.NoError(t, err)
	info := decodeResult[SessionInfo](t, r)
	require.NotEmpty(t, info.SessionID)
	require.Equal(t, 40, info.Width)
	require.Equal(t, 10, info.Height)
	return info.SessionID
}

func TestToolNames(t *testing.T) {
	require.Equal(t, []string{
		"terminal_capture",
		"terminal_command",
		"terminal_expect",
		"terminal_export",
		"terminal_list",
		"terminal_send",
		"terminal_start",
		"terminal_stop",
	}, ToolNames())
}

func TestSessionLifecycle(t *testing.T) {
	h, f, a := testHandlers(t)
	ctx := context.Background()
	id := startSession(t, h)

	r, err := h.HandleCommand(ctx, makeRequest(map[string]any{"session_id": id, "command": "echo hi"}))
	require.NoError(t, err)
	require.Equal(t, 1, decodeResult[ScreenResult](t, r).Frames)

	r, err = h.HandleExpect(ctx, makeRequest(map[string]any{"session_id": id, "pattern": "(?m)^hi$", "timeout_ms": 200}))
	require.NoError(t, err)
	screen := decodeResult[ScreenResult](t, r)
	require.Contains(t, screen.Content, "hi\n$ ")
	require.Equal(t, 1, screen.Frames)

	r, err = h.HandleCapture(ctx, makeRequest(map[string]any{"session_id": id, "record": true}))
	require.NoError(t, err)
	require.Equal(t, 2, decodeResult[ScreenResult](t, r).Frames)

	r, err = h.HandleSend(ctx, makeRequest(map[string]any{"session_id": id, "text": "sleep 9", "keys": []any{"ctrl+c"}}))
	require.NoError(t, err)
	require.Equal(t, 3, decodeResult[ScreenResult](t, r).Frames)

	out := t.TempDir()
	r, err = h.HandleExport(ctx, makeRequest(map[string]any{
		"session_id": id,
		"cast":       filepath.Join(out, "agent.cast"),
		"png":        filepath.Join(out, "agent.png"),
		"save_as":    "agent",
	}))
	require.NoError(t, err)
	exp := decodeResult[ExportResult](t, r)
	require.Len(t, exp.Files, 2)
	require.NotEmpty(t, exp.SavedID)
	require.Equal(t, 3, exp.Frames)

	castFile, err := os.Open(filepath.Join(out, "agent.cast"))
	require.NoError(t, err)
	defer castFile.Close()
	hdr, events, err := asciicast.Decode(castFile)
	require.NoError(t, err)
	require.Equal(t, "agent demo", hdr.Title)
	require.Len(t, events, 3)

	tl, rec, err := a.Load("agent")
	require.NoError(t, err)
	require.Equal(t, exp.SavedID, rec.ID)
	require.Equal(t, 3, tl.Len())

	r, err = h.HandleStop(ctx, makeRequest(map[string]any{"session_id": id}))
	require.NoError(t, err)
	require.False(t, r.IsError, resultText(t, r))
	require.True(t, f.backends[0].Destroyed())

	r, err = h.HandleList(ctx, makeRequest(nil))
	require.NoError(t, err)
	list := decodeResult[map[string][]string](t, r)
	require.Empty(t, list["sessions"])
}

func TestSendDoesNotRecordWhenDisabled(t *testing.T) {
	h, _, _ := testHandlers(t)
	id := startSession(t, h)

	r, err := h.HandleSend(context.Background(), makeRequest(map[string]any{
		"session_id": id,
		"keys":       []any{"up", "enter"},
		"record":     false,
	}))
	require.NoError(t, err)
	require.Equal(t, 0, decodeResult[ScreenResult](t, r).Frames)
}

func TestErrorCodes(t *testing.T) {
	h, _, _ := testHandlers(t)
	ctx := context.Background()
	id := startSession(t, h)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]any
		code    string
	}{
		{"unknown session", h.HandleCapture, map[string]any{"session_id": "nope"}, CodeNotFound},
		{"missing session id", h.HandleCapture, map[string]any{}, CodeInvalidRequest},
		{"send without input", h.HandleSend, map[string]any{"session_id": id}, CodeInvalidRequest},
		{"command without text", h.HandleCommand, map[string]any{"session_id": id}, CodeInvalidRequest},
		{"bad pattern", h.HandleExpect, map[string]any{"session_id": id, "pattern": "("}, CodeInvalidRequest},
		{"expect timeout", h.HandleExpect, map[string]any{"session_id": id, "pattern": "never", "timeout_ms": 10}, CodeTimeout},
		{"oversized start", h.HandleStart, map[string]any{"width": 5000}, CodeInvalidRequest},
		{"nothing to export", h.HandleExport, map[string]any{"session_id": id}, CodeInvalidRequest},
		{"gif of empty session", h.HandleExport, map[string]any{"session_id": id, "gif": filepath.Join(t.TempDir(), "x.gif")}, CodeEmpty},
		{"stop unknown", h.HandleStop, map[string]any{"session_id": "nope"}, CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.handler(ctx, makeRequest(tt.args))
			require.NoError(t, err)
			require.Equal(t, tt.code, errorCode(t, r))
		})
	}
}

func TestStopCanSave(t *testing.T) {
	h, _, a := testHandlers(t)
	ctx := context.Background()
	id := startSession(t, h)

	_, err := h.HandleCommand(ctx, makeRequest(map[string]any{"session_id": id, "command": "echo hi"}))
	require.NoError(t, err)

	r, err := h.HandleStop(ctx, makeRequest(map[string]any{"session_id": id, "save_as": "final"}))
	require.NoError(t, err)
	res := decodeResult[ExportResult](t, r)
	require.NotEmpty(t, res.SavedID)

	records, err := a.ListRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "final", records[0].Name)
}

func TestShutdownClosesEverySession(t *testing.T) {
	h, f, _ := testHandlers(t)
	startSession(t, h)
	startSession(t, h)
	require.Len(t, h.reg.ids(), 2)

	require.NoError(t, h.Shutdown())
	require.Empty(t, h.reg.ids())
	for _, b := range f.backends {
		require.True(t, b.Destroyed())
	}
}

func TestConcurrentCallsOnOneSession(t *testing.T) {
	h, _, _ := testHandlers(t)
	id := startSession(t, h)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := h.HandleCapture(context.Background(), makeRequest(map[string]any{"session_id": id, "record": true}))
			if err != nil || r.IsError {
				t.Errorf("capture failed: %v", err)
			}
		}()
	}
	wg.Wait()

	ls, err := h.reg.get(id)
	require.NoError(t, err)
	require.Equal(t, 8, ls.sess.Timeline().Len())
}

func TestNewServerRegistersTools(t *testing.T) {
	h, _, _ := testHandlers(t)
	s := NewServer(h, "test")
	require.NotNil(t, s)
}
