package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/stringtune/internal/tuner"
	"github.com/0xlemi/stringtune/internal/tuning"
)

// Constants for UI behavior
const (
	// How often the view checks for stale results
	tickInterval = 100 * time.Millisecond

	// How long to keep showing the last pitch after the input goes quiet
	holdDuration = 1500 * time.Millisecond
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333333")).
			Padding(0, 1)

	// Note colors
	noteColors = map[byte]string{
		'C': "#E8D6B0", // Beige
		'D': "#A020F0", // Purple
		'E': "#FFFF00", // Yellow
		'F': "#FFA500", // Orange
		'G': "#00FF00", // Green
		'A': "#FF0000", // Red
		'B': "#0000FF", // Blue
	}

	inTuneColor = lipgloss.Color("#00D75F")
)

// selectedStyle highlights the matched string, colored after its note letter
func selectedStyle(p tuning.Pitch, good bool) lipgloss.Style {
	border := lipgloss.Color("#FAFAFA")
	if good {
		border = inTuneColor
	}

	bg := "#7D56F4"
	if p.Name != "" {
		if c, ok := noteColors[strings.ToUpper(p.Name)[0]]; ok {
			bg = c
		}
	}

	return stringStyle.
		Bold(true).
		Foreground(lipgloss.Color("#1A1A1A")).
		Background(lipgloss.Color(bg)).
		BorderForeground(border)
}

// TickMsg represents a timer tick
type TickMsg time.Time

// ResultMsg delivers one detection result to the model.
type ResultMsg tuner.Delivery

// ErrorMsg reports that the capture session ended.
type ErrorMsg struct{ Err error }

// Model represents the UI state
type Model struct {
	tuning   *tuning.Tuning
	presets  []string
	onTuning func(*tuning.Tuning)

	last      *tuner.Result
	lastHeard time.Time
	now       time.Time
	err       error
}

// NewModel creates a UI showing results for t. Switching presets in the UI
// calls onTuning with the new tuning.
func NewModel(t *tuning.Tuning, onTuning func(*tuning.Tuning)) Model {
	return Model{
		tuning:   t,
		presets:  tuning.Presets(),
		onTuning: onTuning,
		now:      time.Now(),
	}
}

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "right", "l", "tab":
			m = m.cycleTuning(1)
		case "left", "h", "shift+tab":
			m = m.cycleTuning(-1)
		}

	case TickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case ResultMsg:
		r := msg.Result
		// Results matched against a tuning we already left are stale
		if r.Tuning != m.tuning {
			return m, nil
		}
		if r.Detected() {
			m.last = &r
			m.lastHeard = time.Now()
		}

	case ErrorMsg:
		m.err = msg.Err
	}

	return m, nil
}

// cycleTuning switches to the next or previous preset
func (m Model) cycleTuning(step int) Model {
	if len(m.presets) == 0 {
		return m
	}

	current := -1
	for i, k := range m.presets {
		if k == m.tuning.Name() {
			current = i
			break
		}
	}
	next := (current + step + len(m.presets)) % len(m.presets)
	if current < 0 && step < 0 {
		next = len(m.presets) - 1
	}

	t, _ := tuning.Lookup(m.presets[next])
	m.tuning = t
	m.last = nil
	if m.onTuning != nil {
		m.onTuning(t)
	}
	return m
}

// current returns the result to display, nil when idle
func (m Model) current() *tuner.Result {
	if m.last == nil || m.now.Sub(m.lastHeard) > holdDuration {
		return nil
	}
	return m.last
}

// View renders the UI
func (m Model) View() string {
	s := titleStyle.Render("StringTune - Instrument Tuner")
	s += "\n"
	s += infoStyle.Render(fmt.Sprintf("Tuning: %s  (←/→ to change)", m.tuning.Name()))
	s += "\n"

	r := m.current()

	strs := make([]string, m.tuning.Len())
	for i, p := range m.tuning.Pitches() {
		if r != nil && r.Index == i {
			strs[i] = selectedStyle(p, r.Good).Render(p.Name)
		} else {
			strs[i] = stringStyle.Render(p.Name)
		}
	}
	s += lipgloss.JoinHorizontal(lipgloss.Top, strs...)
	s += "\n\n"

	switch {
	case m.err != nil:
		s += errorStyle.Render(fmt.Sprintf("Audio input stopped: %v", m.err))
	case r == nil:
		s += infoStyle.Render("Listening for audio...")
	default:
		note, _ := tuning.NearestNote(r.Frequency)
		verdict := "tune " + direction(r.Cents)
		if r.Good {
			verdict = lipgloss.NewStyle().Bold(true).Foreground(inTuneColor).Render("in tune")
		}
		info := fmt.Sprintf("Frequency: %.2f Hz (%s) | %s: %+.1f cents | %s",
			r.Frequency, note, r.Pitch().Name, r.Cents, verdict)
		s += infoStyle.Render(info)
	}

	s += "\n\n"
	s += infoStyle.Render("Press q to quit")

	return s
}

func direction(cents float64) string {
	if cents > 0 {
		return "down"
	}
	return "up"
}
