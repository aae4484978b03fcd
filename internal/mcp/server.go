// Package mcp exposes recorded terminal sessions as MCP tools so an agent
// can drive a terminal and export what it did.
package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/alchemmist/termreel/internal/app"
)

type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"terminal_start": {
		def:     startToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStart },
	},
	"terminal_send": {
		def:     sendToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSend },
	},
	"terminal_command": {
		def:     commandToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCommand },
	},
	"terminal_capture": {
		def:     captureToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCapture },
	},
	"terminal_expect": {
		def:     expectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExpect },
	},
	"terminal_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"terminal_stop": {
		def:     stopToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStop },
	},
	"terminal_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
}

// ToolNames returns the registered tool names, sorted.
func ToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewServer registers every terminal tool on a new MCP server.
func NewServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"termreel",
		version,
		server.WithToolCapabilities(true),
	)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools over stdio until the client disconnects, then closes
// any sessions the client left open.
func Run(a *app.App, version string) error {
	h := NewHandlers(a)
	defer func() {
		if err := h.Shutdown(); err != nil {
			a.Logger().Warn("closing sessions", "err", err)
		}
	}()
	return server.ServeStdio(NewServer(h, version))
}
