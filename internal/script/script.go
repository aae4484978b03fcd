// Package script loads YAML demo scripts and plays them against a session.
package script

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/timeline"
)

const DefaultExpectTimeout = 5 * time.Second

// Script is a recorded demo: a title, session overrides and the steps to
// play in order.
type Script struct {
	Title  string            `yaml:"title"`
	Env    map[string]string `yaml:"env"`
	Width  int               `yaml:"width"`
	Height int               `yaml:"height"`
	Shell  string            `yaml:"shell"`
	Dir    string            `yaml:"dir"`
	Steps  []Step            `yaml:"steps"`
}

// Step holds exactly one action. Input and capture steps record unless
// record is false; sleep and expect steps record only when it is true.
type Step struct {
	Command string        `yaml:"command,omitempty"`
	Text    string        `yaml:"text,omitempty"`
	Keys    []string      `yaml:"keys,omitempty"`
	Sleep   time.Duration `yaml:"sleep,omitempty"`
	Expect  string        `yaml:"expect,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Capture bool          `yaml:"capture,omitempty"`
	Record  *bool         `yaml:"record,omitempty"`
}

func (s Step) records() bool {
	return s.Record == nil || *s.Record
}

// Kind names the action a step performs.
func (s Step) Kind() string {
	kinds := s.kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

func (s Step) kinds() []string {
	var out []string
	if s.Command != "" {
		out = append(out, "command")
	}
	if s.Text != "" {
		out = append(out, "text")
	}
	if len(s.Keys) > 0 {
		out = append(out, "keys")
	}
	if s.Sleep != 0 {
		out = append(out, "sleep")
	}
	if s.Expect != "" {
		out = append(out, "expect")
	}
	if s.Capture {
		out = append(out, "capture")
	}
	return out
}

func Load(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	s, err := Parse(b)
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func Parse(b []byte) (Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Script{}, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

func (s Script) Validate() error {
	if len(s.Steps) == 0 {
		return timeline.Invalid("steps", "script has no steps")
	}
	for i, st := range s.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		kinds := st.kinds()
		switch len(kinds) {
		case 0:
			return timeline.Invalid(field, "no action")
		case 1:
		default:
			return timeline.Invalid(field, "more than one action: %s", strings.Join(kinds, ", "))
		}
		if st.Sleep < 0 {
			return timeline.Invalid(field, "negative sleep %s", st.Sleep)
		}
		if st.Timeout != 0 && st.Expect == "" {
			return timeline.Invalid(field, "timeout only applies to expect")
		}
		for _, k := range st.Keys {
			if _, err := session.ParseKey(k); err != nil {
				return timeline.Invalid(field, "key %q: %v", k, err)
			}
		}
	}
	return nil
}

// Apply overlays the script's session overrides onto cfg.
func (s Script) Apply(cfg session.Config) session.Config {
	if s.Width > 0 {
		cfg.Width = s.Width
	}
	if s.Height > 0 {
		cfg.Height = s.Height
	}
	if s.Shell != "" {
		cfg.Shell = s.Shell
	}
	if s.Dir != "" {
		cfg.Dir = s.Dir
	}
	if len(s.Env) > 0 {
		env := make(map[string]string, len(cfg.Env)+len(s.Env))
		for k, v := range cfg.Env {
			env[k] = v
		}
		for k, v := range s.Env {
			env[k] = v
		}
		cfg.Env = env
	}
	return cfg
}

// Run plays every step against sess, which must already be started.
func (s Script) Run(ctx context.Context, sess *session.Session) error {
	if s.Title != "" {
		sess.Timeline().SetTitle(s.Title)
	}
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runStep(ctx, sess, st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Kind(), err)
		}
	}
	return nil
}

func runStep(ctx context.Context, sess *session.Session, st Step) error {
	switch {
	case st.Command != "":
		return sess.SendCommand(ctx, st.Command, st.records())
	case st.Text != "":
		return sess.SendText(ctx, st.Text, st.records())
	case len(st.Keys) > 0:
		for i, name := range st.Keys {
			k, err := session.ParseKey(name)
			if err != nil {
				return err
			}
			last := i == len(st.Keys)-1
			if err := sess.SendKeys(ctx, k, last && st.records()); err != nil {
				return err
			}
		}
		return nil
	case st.Sleep > 0:
		t := time.NewTimer(st.Sleep)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if st.Record != nil && *st.Record {
			_, err := sess.Record()
			return err
		}
		return nil
	case st.Expect != "":
		timeout := st.Timeout
		if timeout == 0 {
			timeout = DefaultExpectTimeout
		}
		if err := sess.ExpectText(ctx, st.Expect, timeout); err != nil {
			return err
		}
		if st.Record != nil && *st.Record {
			_, err := sess.Record()
			return err
		}
		return nil
	case st.Capture:
		if !st.records() {
			return nil
		}
		_, err := sess.Record()
		return err
	}
	return nil
}
