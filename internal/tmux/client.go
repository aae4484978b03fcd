package tmux

import (
	"bufio"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

const fieldSep = "\x1f"

var (
	ErrSessionNotFound = errors.New("tmux session not found")
	ErrSessionExists   = errors.New("tmux session already exists")
)

type Client struct {
	bin    string
	socket string
}

func NewClient(bin string) *Client {
	if strings.TrimSpace(bin) == "" {
		bin = "tmux"
	}
	return &Client{bin: bin}
}

// WithSocket returns a client talking to the server behind socket path
// instead of the user's default server.
func (c *Client) WithSocket(path string) *Client {
	out := *c
	out.socket = path
	return &out
}

func (c *Client) Bin() string    { return c.bin }
func (c *Client) Socket() string { return c.socket }

func (c *Client) command(args ...string) *exec.Cmd {
	if c.socket != "" {
		args = append([]string{"-S", c.socket}, args...)
	}
	return exec.Command(c.bin, args...)
}

func (c *Client) Output(args ...string) (string, error) {
	out, err := c.command(args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tmux %s: %w (%s)", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// output is Output without merging stderr, for commands whose stdout is data.
func (c *Client) output(args ...string) (string, error) {
	cmd := c.command(args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tmux %s: %w (%s)", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

func (c *Client) SessionExists(name string) bool {
	err := c.command("has-session", "-t", name).Run()
	return err == nil
}

func (c *Client) ListSessions() ([]string, error) {
	out, err := c.Output("list-sessions", "-F", "#{session_name}")
	if err != nil {
		if isNoServer(err) {
			return nil, nil
		}
		return nil, err
	}
	lines := splitLines(out)
	sort.Strings(lines)
	return lines, nil
}

func (c *Client) CurrentSession() (string, error) {
	out, err := c.Output("display-message", "-p", "#S")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) SocketPath() string {
	out, err := c.Output("display-message", "-p", "#{socket_path}")
	if err != nil {
		return "default"
	}
	v := strings.TrimSpace(out)
	if v == "" {
		return "default"
	}
	return v
}

// SessionSpec describes a detached session to create.
type SessionSpec struct {
	Width   int
	Height  int
	Dir     string
	Env     map[string]string
	Command []string
}

// NewSession starts a detached session. Environment variables are injected
// by running the command through /usr/bin/env so they reach the first
// process rather than only later panes.
func (c *Client) NewSession(name string, spec SessionSpec) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("empty session name")
	}
	if c.SessionExists(name) {
		return ErrSessionExists
	}
	args := []string{"new-session", "-d", "-s", name}
	if spec.Width > 0 {
		args = append(args, "-x", strconv.Itoa(spec.Width))
	}
	if spec.Height > 0 {
		args = append(args, "-y", strconv.Itoa(spec.Height))
	}
	if spec.Dir != "" {
		args = append(args, "-c", spec.Dir)
	}
	if cmd := commandLine(spec.Env, spec.Command); len(cmd) > 0 {
		args = append(args, "--")
		args = append(args, cmd...)
	}
	_, err := c.Output(args...)
	return err
}

func commandLine(env map[string]string, command []string) []string {
	if len(env) == 0 {
		return command
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := []string{"/usr/bin/env"}
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return append(out, command...)
}

// SendKeys sends keys to target. With literal set tmux types the text as is
// instead of interpreting key names such as Enter or C-c.
func (c *Client) SendKeys(target, keys string, literal bool) error {
	args := []string{"send-keys", "-t", target}
	if literal {
		args = append(args, "-l")
	}
	args = append(args, keys)
	_, err := c.Output(args...)
	return err
}

// CapturePane returns the visible contents of target. With escapes set the
// text carries the SGR sequences tmux knows about.
func (c *Client) CapturePane(target string, escapes bool) (string, error) {
	args := []string{"capture-pane", "-p", "-t", target}
	if escapes {
		args = append(args, "-e")
	}
	return c.output(args...)
}

func (c *Client) PaneSize(target string) (width, height int, err error) {
	out, err := c.Output("display-message", "-p", "-t", target, "#{pane_width}"+fieldSep+"#{pane_height}")
	if err != nil {
		return 0, 0, err
	}
	parts := strings.Split(strings.TrimSpace(out), fieldSep)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected pane size format: %q", strings.TrimSpace(out))
	}
	width, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("pane width %q: %w", parts[0], err)
	}
	height, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("pane height %q: %w", parts[1], err)
	}
	return width, height, nil
}

func (c *Client) ResizeWindow(target string, width, height int) error {
	_, err := c.Output("resize-window", "-t", target, "-x", strconv.Itoa(width), "-y", strconv.Itoa(height))
	return err
}

func (c *Client) KillSession(name string) error {
	if !c.SessionExists(name) {
		return ErrSessionNotFound
	}
	_, err := c.Output("kill-session", "-t", name)
	return err
}

// KillServer stops the server behind the client's socket. A server that is
// already gone is not an error.
func (c *Client) KillServer() error {
	_, err := c.Output("kill-server")
	if err != nil && isNoServer(err) {
		return nil
	}
	return err
}

func (c *Client) Version() (string, error) {
	out, err := c.Output("-V")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func isNoServer(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no server running") || strings.Contains(msg, "error connecting to")
}

func splitLines(in string) []string {
	s := bufio.NewScanner(strings.NewReader(in))
	out := make([]string, 0)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
