// Package asciicast reads and writes asciicast v2 replay logs.
package asciicast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"strconv"
	"strings"

	"github.com/alchemmist/termreel/internal/timeline"
)

const (
	Version      = 2
	DefaultTitle = "Terminal Recording"
)

// Event type codes.
const (
	EventOutput = "o"
	EventInput  = "i"
	EventResize = "r"
	EventMarker = "m"
)

// DefaultEnv returns the environment written when a timeline carries none.
func DefaultEnv() map[string]string {
	return map[string]string{"TERM": "xterm-256color"}
}

// Header is the first line of a cast file.
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp"`
	Title     string            `json:"title"`
	Env       map[string]string `json:"env"`
}

// Event is one timed line after the header.
type Event struct {
	Offset float64
	Type   string
	Data   string
}

// Encoder writes a timeline as asciicast v2. It satisfies
// timeline.ReplayEncoder.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// HeaderFor builds the header line for tl, filling in the default title and
// environment.
func HeaderFor(tl *timeline.Timeline) Header {
	title := tl.Title()
	if title == "" {
		title = DefaultTitle
	}
	env := tl.Environment()
	if len(env) == 0 {
		env = DefaultEnv()
	}
	return Header{
		Version:   Version,
		Width:     tl.Width(),
		Height:    tl.Height(),
		Timestamp: tl.StartedAt().Unix(),
		Title:     title,
		Env:       maps.Clone(env),
	}
}

func (e *Encoder) EncodeReplay(w io.Writer, tl *timeline.Timeline) error {
	h, err := marshalCompact(HeaderFor(tl))
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := io.WriteString(w, h+"\n"); err != nil {
		return err
	}
	for i, s := range tl.Snapshots() {
		line, err := EncodeEvent(Event{
			Offset: tl.Offset(s).Seconds(),
			Type:   EventOutput,
			Data:   s.Content(),
		})
		if err != nil {
			return fmt.Errorf("encode event %d: %w", i, err)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// EncodeEvent renders ev as a single cast line without the trailing newline,
// e.g. [0.5, "o", "world\n"].
func EncodeEvent(ev Event) (string, error) {
	typ, err := marshalCompact(ev.Type)
	if err != nil {
		return "", err
	}
	data, err := marshalCompact(ev.Data)
	if err != nil {
		return "", err
	}
	return "[" + FormatOffset(ev.Offset) + ", " + typ + ", " + data + "]", nil
}

// FormatOffset prints seconds in the shortest form that round-trips, always
// with a decimal point.
func FormatOffset(sec float64) string {
	s := strconv.FormatFloat(sec, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// marshalCompact encodes v without HTML escaping and without the trailing
// newline json.Encoder adds.
func marshalCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
