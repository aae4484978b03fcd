package asciicast

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alchemmist/termreel/internal/timeline"
)

const maxLineSize = 16 * 1024 * 1024

var ErrMalformed = errors.New("malformed asciicast")

// Decode reads a cast stream into its header and events. Blank lines are
// skipped; any other unparseable line fails the whole decode.
func Decode(r io.Reader) (Header, []Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		h      Header
		events []Event
		seen   bool
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !seen {
			if err := json.Unmarshal([]byte(line), &h); err != nil {
				return Header{}, nil, fmt.Errorf("%w: line %d: header: %v", ErrMalformed, lineNo, err)
			}
			if h.Version != Version {
				return Header{}, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, h.Version)
			}
			seen = true
			continue
		}
		ev, err := DecodeEvent(line)
		if err != nil {
			return Header{}, nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return Header{}, nil, err
	}
	if !seen {
		return Header{}, nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	return h, events, nil
}

// DecodeEvent parses one [offset, type, data] line.
func DecodeEvent(line string) (Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Event{}, err
	}
	if len(raw) != 3 {
		return Event{}, fmt.Errorf("event has %d fields, want 3", len(raw))
	}
	var ev Event
	if err := json.Unmarshal(raw[0], &ev.Offset); err != nil {
		return Event{}, fmt.Errorf("offset: %w", err)
	}
	if err := json.Unmarshal(raw[1], &ev.Type); err != nil {
		return Event{}, fmt.Errorf("type: %w", err)
	}
	switch ev.Type {
	case EventOutput, EventInput, EventResize, EventMarker:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if err := json.Unmarshal(raw[2], &ev.Data); err != nil {
		return Event{}, fmt.Errorf("data: %w", err)
	}
	return ev, nil
}

// ToTimeline rebuilds a timeline from decoded output events. Resize events
// ("COLSxROWS") change the size of later snapshots; input and marker events
// are skipped.
func ToTimeline(h Header, events []Event) (*timeline.Timeline, error) {
	start := time.Unix(h.Timestamp, 0)
	tl := timeline.New(
		timeline.WithStartedAt(start),
		timeline.WithSize(h.Width, h.Height),
		timeline.WithTitle(h.Title),
		timeline.WithEnvironment(h.Env),
	)
	width, height := h.Width, h.Height
	for i, ev := range events {
		switch ev.Type {
		case EventResize:
			var w, hh int
			if _, err := fmt.Sscanf(ev.Data, "%dx%d", &w, &hh); err == nil {
				width, height = w, hh
			}
			continue
		case EventOutput:
		default:
			continue
		}
		ts := start.Add(time.Duration(ev.Offset * float64(time.Second)))
		s, err := timeline.NewSnapshot(ev.Data, width, height, ts)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if err := tl.Append(s); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return tl, nil
}
