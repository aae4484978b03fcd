package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alchemmist/termreel/internal/recording"
)

const savedLayout = "2006-01-02 15:04:05"

var (
	pickerTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	pickerHelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	pickerPreviewStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

type pickerKeys struct {
	choose key.Binding
	quit   key.Binding
}

var defaultPickerKeys = pickerKeys{
	choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
	quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

// previewFunc returns the last screen of the recording with the given ID.
type previewFunc func(id string) (string, error)

type recordPicker struct {
	records  []recording.Record
	matches  []recording.Record
	search   textinput.Model
	list     table.Model
	keys     pickerKeys
	preview  previewFunc
	previews map[string]string
	choice   string
	aborted  bool
	width    int
	height   int
}

func newRecordPicker(records []recording.Record, preview previewFunc) recordPicker {
	search := textinput.New()
	search.Prompt = "search> "
	search.Placeholder = "name, title or id"
	search.Focus()

	list := table.New(
		table.WithColumns([]table.Column{
			{Title: "NAME", Width: 24},
			{Title: "FRAMES", Width: 6},
			{Title: "LENGTH", Width: 8},
			{Title: "SAVED", Width: 16},
		}),
		table.WithFocused(true),
		table.WithHeight(14),
	)

	p := recordPicker{
		records:  records,
		search:   search,
		list:     list,
		keys:     defaultPickerKeys,
		preview:  preview,
		previews: make(map[string]string),
	}
	p.refilter()
	return p
}

func (p recordPicker) Init() tea.Cmd {
	return textinput.Blink
}

func (p recordPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width, p.height = msg.Width, msg.Height
		p.layout()
		return p, nil
	case tea.KeyMsg:
		if key.Matches(msg, p.keys.quit) {
			p.aborted = true
			return p, tea.Quit
		}
		if key.Matches(msg, p.keys.choose) {
			rec, ok := p.current()
			if !ok {
				return p, nil
			}
			p.choice = rec.ID
			return p, tea.Quit
		}
	}

	var cmds []tea.Cmd
	before := p.search.Value()
	var cmd tea.Cmd
	p.search, cmd = p.search.Update(msg)
	cmds = append(cmds, cmd)
	if p.search.Value() != before {
		p.refilter()
	}
	p.list, cmd = p.list.Update(msg)
	cmds = append(cmds, cmd)
	return p, tea.Batch(cmds...)
}

func (p recordPicker) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render(fmt.Sprintf("termreel recordings (%d/%d)", len(p.matches), len(p.records))))
	b.WriteString("\n")
	b.WriteString(p.search.View())
	b.WriteString("\n\n")
	if len(p.matches) == 0 {
		b.WriteString("No recordings match query\n")
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, p.list.View(), " ", p.previewPane()))
		b.WriteString("\n")
	}
	b.WriteString(pickerHelpStyle.Render(p.helpLine()))
	return b.String()
}

func (p recordPicker) helpLine() string {
	parts := []string{"up/down: move"}
	for _, k := range []key.Binding{p.keys.choose, p.keys.quit} {
		h := k.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// previewPane renders the highlighted recording's last frame, loading it
// once per recording.
func (p recordPicker) previewPane() string {
	rec, ok := p.current()
	if !ok || p.preview == nil {
		return ""
	}
	text, seen := p.previews[rec.ID]
	if !seen {
		var err error
		text, err = p.preview(rec.ID)
		if err != nil {
			text = "preview unavailable: " + err.Error()
		}
		p.previews[rec.ID] = text
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if limit := p.list.Height(); limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return pickerPreviewStyle.Render(strings.Join(lines, "\n"))
}

func (p recordPicker) current() (recording.Record, bool) {
	i := p.list.Cursor()
	if i < 0 || i >= len(p.matches) {
		return recording.Record{}, false
	}
	return p.matches[i], true
}

func (p *recordPicker) layout() {
	if p.width <= 0 {
		return
	}
	cols := p.list.Columns()
	nameW := p.width/2 - 36
	if nameW < 12 {
		nameW = 12
	}
	cols[0].Width = nameW
	p.list.SetColumns(cols)
	p.list.SetHeight(max(p.height-6, 4))
}

func (p *recordPicker) refilter() {
	p.matches = rankRecords(p.records, p.search.Value())
	rows := make([]table.Row, len(p.matches))
	for i, r := range p.matches {
		rows[i] = table.Row{
			trim(r.Name, 64),
			fmt.Sprint(r.Frames),
			formatLength(r.Duration),
			r.SavedAt.Local().Format("01-02 15:04"),
		}
	}
	p.list.SetRows(rows)
	switch {
	case len(rows) == 0:
		p.list.SetCursor(0)
	case p.list.Cursor() >= len(rows):
		p.list.SetCursor(len(rows) - 1)
	}
}

// rankRecords keeps the records matching query, best match first and newest
// first among equals.
func rankRecords(records []recording.Record, query string) []recording.Record {
	query = strings.ToLower(strings.TrimSpace(query))
	type hit struct {
		rec   recording.Record
		score int
	}
	hits := make([]hit, 0, len(records))
	for _, r := range records {
		text := strings.ToLower(r.Name + " " + r.Title + " " + r.ID)
		if score, ok := matchScore(query, text); ok {
			hits = append(hits, hit{rec: r, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].rec.SavedAt.After(hits[j].rec.SavedAt)
	})
	out := make([]recording.Record, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out
}

// matchScore reports whether query is a subsequence of text. Adjacent
// matches and matches at a word start score higher.
func matchScore(query, text string) (int, bool) {
	if query == "" {
		return 0, true
	}
	q := []rune(query)
	t := []rune(text)
	score, qi := 0, 0
	prevMatched := false
	for i := 0; i < len(t) && qi < len(q); i++ {
		if t[i] != q[qi] {
			prevMatched = false
			continue
		}
		score += 8
		if prevMatched {
			score += 6
		}
		if i == 0 || !unicode.IsLetter(t[i-1]) && !unicode.IsDigit(t[i-1]) {
			score += 4
		}
		prevMatched = true
		qi++
	}
	return score, qi == len(q)
}

func formatLength(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(100 * time.Millisecond).String()
}

func trim(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func chooseRecording(records []recording.Record, preview previewFunc) (string, error) {
	final, err := tea.NewProgram(newRecordPicker(records, preview), tea.WithAltScreen()).Run()
	if err != nil {
		return "", err
	}
	p, ok := final.(recordPicker)
	switch {
	case !ok:
		return "", fmt.Errorf("unexpected picker model %T", final)
	case p.aborted:
		return "", fmt.Errorf("selection canceled")
	case p.choice == "":
		return "", fmt.Errorf("no recording selected")
	}
	return p.choice, nil
}
