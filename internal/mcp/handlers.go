package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/alchemmist/termreel/internal/app"
	"github.com/alchemmist/termreel/internal/script"
	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/store"
	"github.com/alchemmist/termreel/internal/timeline"
)

// Error codes carried in tool error payloads.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeTimeout        = "TIMEOUT"
	CodeEmpty          = "EMPTY_TIMELINE"
	CodeInternal       = "INTERNAL"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	app    *app.App
	logger *slog.Logger
	reg    *registry
}

func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a, logger: a.Logger(), reg: newRegistry()}
}

type StartRequest struct {
	Width  int               `json:"width,omitempty"`
	Height int               `json:"height,omitempty"`
	Shell  string            `json:"shell,omitempty"`
	Dir    string            `json:"dir,omitempty"`
	Title  string            `json:"title,omitempty"`
	Env    map[string]string `json:"env,omitempty"`
}

type SendRequest struct {
	SessionID string   `json:"session_id"`
	Text      string   `json:"text,omitempty"`
	Keys      []string `json:"keys,omitempty"`
	Record    *bool    `json:"record,omitempty"`
}

type CommandRequest struct {
	SessionID string `json:"session_id"`
	Command   string `json:"command"`
	Record    *bool  `json:"record,omitempty"`
}

type CaptureRequest struct {
	SessionID string `json:"session_id"`
	Record    bool   `json:"record,omitempty"`
}

type ExpectRequest struct {
	SessionID string `json:"session_id"`
	Pattern   string `json:"pattern"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

type ExportRequest struct {
	SessionID string `json:"session_id"`
	Cast      string `json:"cast,omitempty"`
	GIF       string `json:"gif,omitempty"`
	PNG       string `json:"png,omitempty"`
	Frame     *int   `json:"frame,omitempty"`
	FPS       int    `json:"fps,omitempty"`
	SaveAs    string `json:"save_as,omitempty"`
}

type StopRequest struct {
	SessionID string `json:"session_id"`
	SaveAs    string `json:"save_as,omitempty"`
}

// SessionInfo is returned by terminal_start.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// ScreenResult describes the screen after a tool call.
type ScreenResult struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Frames    int    `json:"frames"`
}

type ExportResult struct {
	SessionID string   `json:"session_id"`
	Files     []string `json:"files,omitempty"`
	SavedID   string   `json:"saved_id,omitempty"`
	Frames    int      `json:"frames"`
}

func (h *Handlers) HandleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StartRequest](req)
	if err != nil {
		return invalidResult(err), nil
	}

	cfg := h.app.Config().Session
	if input.Width != 0 {
		cfg.Width = input.Width
	}
	if input.Height != 0 {
		cfg.Height = input.Height
	}
	if input.Shell != "" {
		cfg.Shell = input.Shell
	}
	if input.Dir != "" {
		cfg.Dir = input.Dir
	}
	if len(input.Env) > 0 {
		env := maps.Clone(cfg.Env)
		if env == nil {
			env = make(map[string]string, len(input.Env))
		}
		maps.Copy(env, input.Env)
		cfg.Env = env
	}

	sess, err := session.New(cfg, h.app.NewBackend(), session.WithLogger(h.logger))
	if err != nil {
		return errorResult(err), nil
	}
	sess.Timeline().SetTitle(input.Title)
	if err := sess.Start(); err != nil {
		return errorResult(err), nil
	}
	ls := h.reg.add(sess)
	h.logger.Info("mcp session started", "session", ls.id, "width", cfg.Width, "height", cfg.Height)
	return successResult(SessionInfo{SessionID: ls.id, Width: cfg.Width, Height: cfg.Height})
}

func (h *Handlers) HandleSend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SendRequest](req)
	if err != nil {
		return invalidResult(err), nil
	}
	var seqs []session.KeySequence
	if input.Text != "" {
		seqs = append(seqs, session.Literal(input.Text))
	}
	for _, name := range input.Keys {
		k, err := session.ParseKey(name)
		if err != nil {
			return errorResult(err), nil
		}
		seqs = append(seqs, k)
	}
	if len(seqs) == 0 {
		return invalidResult(errors.New("text or keys is required")), nil
	}
	record := input.Record == nil || *input.Record

	return h.withSession(input.SessionID, func(ls *liveSession) (any, error) {
		for i, k := range seqs {
			if err := ls.sess.SendKeys(ctx, k, record && i == len(seqs)-1); err != nil {
				return nil, err
			}
		}
		return ScreenResult{SessionID: ls.id, Frames: ls.sess.Timeline().Len()}, nil
	})
}

func (h *Handlers) HandleCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CommandRequest](req)
	if err != nil {
		return invalidResult(err), nil
	}
	if input.Command == "" {
		return invalidResult(errors.New("command is required")), nil
	}
	record := input.Record == nil || *input.Record

	return h.withSession(input.SessionID, func(ls *liveSession) (any, error) {
		if err := ls.sess.SendCommand(ctx, input.Command, record); err != nil {
			return nil, err
		}
		return ScreenResult{SessionID: ls.id, Frames: ls.sess.Timeline().Len()}, nil
	})
}

func (h *Handlers) HandleCapture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaptureRequest](req)
	if err != nil {
		return invalidResult(err), nil
	}
	return h.withSession(input.SessionID, func(ls *liveSession) (any, error) {
		var snap timeline.Snapshot
		var err error
		if input.Record {
			snap, err = ls.sess.Record()
		} else {
			snap, err = ls.sess.Capture()
		}
		if err != nil {
			return nil, err
		}
		return screenResult(ls, snap), nil
	})
}

func (h *Handlers) HandleExpect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExpectRequest](req)
	if err != nil {
		return invalidResult(err), nil
	}
	if input.Pattern == "" {
		return invalidResult(errors.New("pattern is required")), nil
	}
	timeout := script.DefaultExpectTimeout
	if input.TimeoutMS > 0 {
		timeout = time.Duration(input.TimeoutMS) * time.Millisecond
	}

	return h.withSession(input.SessionID, func(ls *liveSession) (any, error) {
		if err := ls.sess.ExpectText(ctx, input.Pattern, timeout); err != nil {
			return nil, err
		}
		snap, err := ls.sess.Capture()
		if err != nil {
			return nil, err
		}
		return screenResult(ls, snap), nil
	})
}

func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return invalidResult(err), nil
	}
	opts := app.ExportOptions{Cast: input.Cast, GIF: input.GIF, PNG: input.PNG, Frame: -1, FPS: input.FPS}
	if input.Frame != nil {
		opts.Frame = *input.Frame
	}
	if !opts.Any() && input.SaveAs == "" {
		return invalidResult(errors.New("nothing to export: set cast, gif, png or save_as")), nil
	}

	return h.withSession(input.SessionID, func(ls *liveSession) (any, error) {
		tl := ls.sess.Timeline()
		res := ExportResult{SessionID: ls.id, Frames: tl.Len()}
		if input.SaveAs != "" {
			rec, err := h.app.Save(input.SaveAs, tl)
			if err != nil {
				return nil, err
			}
			res.SavedID = rec.ID
		}
		if opts.Any() {
			files, err := h.app.ExportTimeline(tl, opts)
			res.Files = files
			if err != nil {
				return nil, err
			}
		}
		return res, nil
	})
}

func (h *Handlers) HandleStop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StopRequest](req)
	if err != nil {
		return invalidResult(err), nil
	}
	ls, err := h.reg.remove(input.SessionID)
	if err != nil {
		return errorResult(err), nil
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	tl := ls.sess.Timeline()
	res := ExportResult{SessionID: ls.id, Frames: tl.Len()}
	closeErr := ls.sess.Close()
	if input.SaveAs != "" {
		rec, err := h.app.Save(input.SaveAs, tl)
		if err != nil {
			return errorResult(err), nil
		}
		res.SavedID = rec.ID
	}
	if closeErr != nil {
		return errorResult(closeErr), nil
	}
	h.logger.Info("mcp session stopped", "session", ls.id, "frames", res.Frames)
	return successResult(res)
}

func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"sessions": h.reg.ids()})
}

// Shutdown closes every open session.
func (h *Handlers) Shutdown() error {
	var errs []error
	for _, ls := range h.reg.drain() {
		ls.mu.Lock()
		if err := ls.sess.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", ls.id, err))
		}
		ls.mu.Unlock()
	}
	return errors.Join(errs...)
}

// withSession runs fn while holding the session's lock and turns its
// outcome into a tool result.
func (h *Handlers) withSession(id string, fn func(*liveSession) (any, error)) (*mcp.CallToolResult, error) {
	if strings.TrimSpace(id) == "" {
		return invalidResult(errors.New("session_id is required")), nil
	}
	ls, err := h.reg.get(id)
	if err != nil {
		return errorResult(err), nil
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	out, err := fn(ls)
	if err != nil {
		h.logger.Debug("mcp tool failed", "session", id, "err", err)
		return errorResult(err), nil
	}
	return successResult(out)
}

func screenResult(ls *liveSession, snap timeline.Snapshot) ScreenResult {
	return ScreenResult{
		SessionID: ls.id,
		Content:   snap.Content(),
		Width:     snap.Width(),
		Height:    snap.Height(),
		Frames:    ls.sess.Timeline().Len(),
	}
}

func invalidResult(err error) *mcp.CallToolResult {
	return codeResult(CodeInvalidRequest, err.Error())
}

// errorResult maps err onto a code so clients can branch without parsing
// messages.
func errorResult(err error) *mcp.CallToolResult {
	code := CodeInternal
	switch {
	case errors.Is(err, timeline.ErrValidation), errors.Is(err, timeline.ErrIndexOutOfRange):
		code = CodeInvalidRequest
	case errors.Is(err, errUnknownSession), errors.Is(err, store.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, session.ErrExpectTimeout), errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.Is(err, timeline.ErrEmptyTimeline):
		code = CodeEmpty
	}
	return codeResult(code, err.Error())
}

func codeResult(code, message string) *mcp.CallToolResult {
	payload := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
