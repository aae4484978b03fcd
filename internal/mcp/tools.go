package mcp

import "github.com/mark3labs/mcp-go/mcp"

var sessionIDParam = mcp.WithString("session_id",
	mcp.Required(),
	mcp.Description("ID returned by terminal_start"),
)

var startToolDef = mcp.NewTool("terminal_start",
	mcp.WithDescription("Start a recorded terminal session in a private tmux server."),
	mcp.WithNumber("width", mcp.Description("Columns, 1-1000. Defaults to the configured width.")),
	mcp.WithNumber("height", mcp.Description("Rows, 1-1000. Defaults to the configured height.")),
	mcp.WithString("shell", mcp.Description("Program to run in the terminal.")),
	mcp.WithString("dir", mcp.Description("Working directory.")),
	mcp.WithString("title", mcp.Description("Title stored with the recording.")),
	mcp.WithObject("env", mcp.Description("Extra environment variables.")),
)

var sendToolDef = mcp.NewTool("terminal_send",
	mcp.WithDescription("Type text and/or press keys. Text is sent first, then keys in order. The screen is recorded after the last one unless record is false."),
	sessionIDParam,
	mcp.WithString("text", mcp.Description("Text typed literally.")),
	mcp.WithArray("keys",
		mcp.Description("Key names such as enter, ctrl+c, up, or tmux notation like C-a."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithBoolean("record", mcp.Description("Append a frame afterwards. Default true.")),
)

var commandToolDef = mcp.NewTool("terminal_command",
	mcp.WithDescription("Type a command line and press Enter."),
	sessionIDParam,
	mcp.WithString("command", mcp.Required(), mcp.Description("Command line to run.")),
	mcp.WithBoolean("record", mcp.Description("Append a frame afterwards. Default true.")),
)

var captureToolDef = mcp.NewTool("terminal_capture",
	mcp.WithDescription("Return the current screen text."),
	sessionIDParam,
	mcp.WithBoolean("record", mcp.Description("Also append the screen as a frame.")),
)

var expectToolDef = mcp.NewTool("terminal_expect",
	mcp.WithDescription("Wait until a regular expression matches the screen."),
	sessionIDParam,
	mcp.WithString("pattern", mcp.Required(), mcp.Description("Regular expression.")),
	mcp.WithNumber("timeout_ms", mcp.Description("How long to wait. Default 5000.")),
)

var exportToolDef = mcp.NewTool("terminal_export",
	mcp.WithDescription("Write the session recorded so far as an asciicast, GIF and/or PNG, and optionally save it to the store."),
	sessionIDParam,
	mcp.WithString("cast", mcp.Description("Path of the asciicast v2 file.")),
	mcp.WithString("gif", mcp.Description("Path of the animated GIF.")),
	mcp.WithString("png", mcp.Description("Path of the PNG still.")),
	mcp.WithNumber("frame", mcp.Description("Frame used for the PNG. Negative counts from the end. Default -1.")),
	mcp.WithNumber("fps", mcp.Description("Animation frame rate override.")),
	mcp.WithString("save_as", mcp.Description("Save the recording to the store under this name.")),
)

var stopToolDef = mcp.NewTool("terminal_stop",
	mcp.WithDescription("Close a session, optionally saving its recording first."),
	sessionIDParam,
	mcp.WithString("save_as", mcp.Description("Save the recording to the store under this name.")),
)

var listToolDef = mcp.NewTool("terminal_list",
	mcp.WithDescription("List open session IDs."),
)
