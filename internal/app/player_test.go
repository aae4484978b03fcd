package app

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alchemmist/termreel/internal/timeline"
)

func playerTimeline(t *testing.T, offsets ...time.Duration) *timeline.Timeline {
	t.Helper()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tl := timeline.New(timeline.WithStartedAt(start), timeline.WithTitle("demo"))
	for i, off := range offsets {
		s, err := timeline.NewSnapshot(strings.Repeat("x", i+1), 20, 5, start.Add(off))
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		tl.Append(s)
	}
	return tl
}

func TestPlaybackDelays(t *testing.T) {
	tl := playerTimeline(t, 0, time.Second, 500*time.Millisecond, 10*time.Second)

	got := playbackDelays(tl, 1, 0)
	want := []time.Duration{0, time.Second, 0, 9500 * time.Millisecond}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delay %d: got %s want %s", i, got[i], want[i])
		}
	}

	capped := playbackDelays(tl, 2, 2*time.Second)
	if capped[1] != 500*time.Millisecond || capped[3] != time.Second {
		t.Fatalf("unexpected scaled delays: %v", capped)
	}
}

func TestPlayerAdvancesAndQuitsAtEnd(t *testing.T) {
	m := newPlayerModel(playerTimeline(t, 0, time.Millisecond), PlayOptions{})

	next, cmd := m.Update(playerFrameMsg{gen: 0, index: 0})
	m = next.(playerModel)
	if m.index != 0 || cmd == nil {
		t.Fatalf("expected first frame shown and next scheduled, index=%d", m.index)
	}
	if !strings.Contains(m.View(), "frame 1/2") {
		t.Fatalf("unexpected view:\n%s", m.View())
	}

	next, cmd = m.Update(playerFrameMsg{gen: 0, index: 1})
	m = next.(playerModel)
	if m.index != 1 {
		t.Fatalf("expected index 1, got %d", m.index)
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected quit after last frame")
	}
}

func TestPlayerPauseDropsStaleTicks(t *testing.T) {
	m := newPlayerModel(playerTimeline(t, 0, time.Millisecond, 2*time.Millisecond), PlayOptions{})
	next, _ := m.Update(playerFrameMsg{gen: 0, index: 0})
	m = next.(playerModel)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}})
	m = next.(playerModel)
	if !m.paused {
		t.Fatal("expected paused")
	}
	if !strings.Contains(m.View(), "[paused]") {
		t.Fatalf("view should show paused:\n%s", m.View())
	}

	next, _ = m.Update(playerFrameMsg{gen: 0, index: 1})
	m = next.(playerModel)
	if m.index != 0 {
		t.Fatalf("stale tick advanced playback to %d", m.index)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(playerModel)
	if m.index != 1 {
		t.Fatalf("step right: got %d", m.index)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(playerModel)
	if m.index != 0 {
		t.Fatalf("step left: got %d", m.index)
	}
}

func TestPlayerPrefersRawControlData(t *testing.T) {
	start := time.Now()
	tl := timeline.New(timeline.WithStartedAt(start))
	s, err := timeline.NewSnapshot("plain", 10, 2, start, timeline.WithRawControlData([]byte("\x1b[1mbold")))
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	tl.Append(s)
	m := newPlayerModel(tl, PlayOptions{})
	if m.frames[0] != "\x1b[1mbold" {
		t.Fatalf("unexpected frame %q", m.frames[0])
	}
}

func TestPlayTimelineRejectsEmpty(t *testing.T) {
	if err := PlayTimeline(timeline.New(), PlayOptions{}); err != timeline.ErrEmptyTimeline {
		t.Fatalf("expected empty timeline error, got %v", err)
	}
}
