package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alchemmist/termreel/internal/asciicast"
	"github.com/alchemmist/termreel/internal/timeline"
)

var (
	playerTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	playerStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	playerPausedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	playerFrameStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

type PlayOptions struct {
	// Speed scales playback; values <= 0 mean real time.
	Speed float64
	// MaxIdle caps the pause between two frames when positive.
	MaxIdle time.Duration
	Loop    bool
}

// Play replays the recording ref resolves to in the terminal.
func (a *App) Play(ref string, opts PlayOptions) error {
	tl, _, err := a.store.LoadTimeline(ref)
	if err != nil {
		return err
	}
	return PlayTimeline(tl, opts)
}

// PlayCast replays an asciicast file.
func (a *App) PlayCast(path string, opts PlayOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	h, events, err := asciicast.Decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	tl, err := asciicast.ToTimeline(h, events)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return PlayTimeline(tl, opts)
}

func PlayTimeline(tl *timeline.Timeline, opts PlayOptions) error {
	if tl.Len() == 0 {
		return timeline.ErrEmptyTimeline
	}
	p := tea.NewProgram(newPlayerModel(tl, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// playbackDelays returns, for each frame, how long to wait before showing
// it. Backwards clock steps play as zero delay.
func playbackDelays(tl *timeline.Timeline, speed float64, maxIdle time.Duration) []time.Duration {
	if speed <= 0 {
		speed = 1
	}
	snaps := tl.Snapshots()
	out := make([]time.Duration, len(snaps))
	prev := tl.StartedAt()
	for i, s := range snaps {
		d := s.Timestamp().Sub(prev)
		if d < 0 {
			d = 0
		}
		if maxIdle > 0 && d > maxIdle {
			d = maxIdle
		}
		out[i] = time.Duration(float64(d) / speed)
		prev = s.Timestamp()
	}
	return out
}

type playerFrameMsg struct {
	gen   int
	index int
}

type playerModel struct {
	title   string
	frames  []string
	delays  []time.Duration
	index   int
	gen     int
	paused  bool
	loop    bool
	speed   float64
	started bool
}

func newPlayerModel(tl *timeline.Timeline, opts PlayOptions) playerModel {
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}
	m := playerModel{
		title:  tl.Title(),
		delays: playbackDelays(tl, speed, opts.MaxIdle),
		loop:   opts.Loop,
		speed:  speed,
		index:  -1,
	}
	for _, s := range tl.Snapshots() {
		if raw := s.RawControlData(); raw != nil {
			m.frames = append(m.frames, string(raw))
			continue
		}
		m.frames = append(m.frames, s.Content())
	}
	return m
}

func (m playerModel) schedule(index int) tea.Cmd {
	if index >= len(m.frames) {
		if !m.loop {
			return tea.Quit
		}
		index = 0
	}
	gen := m.gen
	return tea.Tick(m.delays[index], func(time.Time) tea.Msg {
		return playerFrameMsg{gen: gen, index: index}
	})
}

func (m playerModel) Init() tea.Cmd {
	return m.schedule(0)
}

func (m playerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case playerFrameMsg:
		if msg.gen != m.gen || m.paused {
			return m, nil
		}
		m.index = msg.index
		m.started = true
		return m, m.schedule(m.index + 1)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			m.gen++
			if m.paused {
				return m, nil
			}
			return m, m.schedule(m.index + 1)
		case "right", "l":
			if m.paused && m.index < len(m.frames)-1 {
				m.index++
				m.started = true
			}
			return m, nil
		case "left", "h":
			if m.paused && m.index > 0 {
				m.index--
			}
			return m, nil
		}
	}
	return m, nil
}

func (m playerModel) View() string {
	var b strings.Builder
	title := m.title
	if title == "" {
		title = asciicast.DefaultTitle
	}
	b.WriteString(playerTitleStyle.Render(title))
	b.WriteString("\n")
	frame := ""
	if m.started && m.index >= 0 && m.index < len(m.frames) {
		frame = strings.TrimRight(m.frames[m.index], "\n")
	}
	b.WriteString(playerFrameStyle.Render(frame))
	b.WriteString("\n")
	status := fmt.Sprintf("frame %d/%d  %.1fx  space: pause  left/right: step  q: quit", m.index+1, len(m.frames), m.speed)
	b.WriteString(playerStatusStyle.Render(status))
	if m.paused {
		b.WriteString("  ")
		b.WriteString(playerPausedStyle.Render("[paused]"))
	}
	return b.String()
}
