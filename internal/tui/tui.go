// Package tui provides a Bubble Tea terminal view of the player.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	playerv1 "github.com/osa030/ringdeck/internal/api/playerv1"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	trackStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8B500"))

	artistStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))
)

// Screen rows of the clickable parts. View renders one line per row.
const (
	rowTitle = iota
	rowBlank1
	rowCover
	rowTrack
	rowArtist
	rowBlank2
	rowProgress
	rowBlank3
	rowButtons
	rowBlank4
	rowStatus
	rowHelp
)

const (
	labelPrevious = "[⏮]"
	labelPlay     = "[▶]"
	labelPause    = "[⏸]"
	labelNext     = "[⏭]"
	buttonGap     = "  "

	commandTimeout = 5 * time.Second
	minBarWidth    = 20
	maxBarWidth    = 80
)

// Controls is the command surface the view drives.
type Controls interface {
	Toggle(ctx context.Context) (*playerv1.PlayerState, error)
	Previous(ctx context.Context) (*playerv1.PlayerState, error)
	Next(ctx context.Context) (*playerv1.PlayerState, error)
	SeekAt(ctx context.Context, pointerX, left, width float64) (*playerv1.PlayerState, error)
}

// Message types
type (
	// StateMsg carries a new player state pushed by the server.
	StateMsg struct {
		State *playerv1.PlayerState
	}

	// DisconnectedMsg is sent when the state stream ends.
	DisconnectedMsg struct {
		Err error
	}

	// commandDoneMsg is sent when a command RPC returns.
	commandDoneMsg struct {
		State *playerv1.PlayerState
		Err   error
	}
)

// Model is the Bubble Tea model for the player view.
type Model struct {
	controls Controls
	progress progress.Model

	state  *playerv1.PlayerState
	err    error
	status string

	width int
}

// NewModel creates a new player view.
func NewModel(controls Controls) Model {
	prog := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	prog.Width = 50

	return Model{
		controls: controls,
		progress: prog,
		status:   "connecting...",
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 10
		if m.progress.Width > maxBarWidth {
			m.progress.Width = maxBarWidth
		}
		if m.progress.Width < minBarWidth {
			m.progress.Width = minBarWidth
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		return m, m.click(msg.X, msg.Y)

	case StateMsg:
		m.state = msg.State
		m.err = nil
		m.status = ""

	case commandDoneMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		if msg.State != nil {
			m.state = msg.State
		}

	case DisconnectedMsg:
		m.err = msg.Err
		m.status = "disconnected"
	}

	return m, nil
}

// click maps a pointer press to a command.
func (m Model) click(x, y int) tea.Cmd {
	if m.state == nil {
		return nil
	}

	switch y {
	case rowProgress:
		if x < 0 || x >= m.progress.Width {
			return nil
		}
		width := float64(m.progress.Width)
		return m.command(func(ctx context.Context) (*playerv1.PlayerState, error) {
			return m.controls.SeekAt(ctx, float64(x), 0, width)
		})

	case rowButtons:
		switch m.buttonAt(x) {
		case labelPrevious:
			return m.command(m.controls.Previous)
		case labelPlay, labelPause:
			return m.command(m.controls.Toggle)
		case labelNext:
			return m.command(m.controls.Next)
		}
	}
	return nil
}

// buttonAt returns the label of the button under column x.
func (m Model) buttonAt(x int) string {
	left := 0
	for _, label := range m.buttons() {
		w := lipgloss.Width(label)
		if x >= left && x < left+w {
			return label
		}
		left += w + lipgloss.Width(buttonGap)
	}
	return ""
}

func (m Model) buttons() []string {
	toggle := labelPlay
	if m.state != nil && m.state.IsPlaying {
		toggle = labelPause
	}
	return []string{labelPrevious, toggle, labelNext}
}

func (m Model) command(fn func(ctx context.Context) (*playerv1.PlayerState, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		state, err := fn(ctx)
		return commandDoneMsg{State: state, Err: err}
	}
}

// View renders the UI.
func (m Model) View() string {
	lines := make([]string, rowHelp+1)
	lines[rowTitle] = titleStyle.Render("♪ ringdeck")

	if m.state == nil || m.state.Track == nil {
		lines[rowTrack] = dimStyle.Render("no track")
	} else {
		t := m.state.Track
		if t.CoverImageUrl != "" {
			lines[rowCover] = dimStyle.Render("cover: " + t.CoverImageUrl)
		}
		lines[rowTrack] = trackStyle.Render(t.Name)
		lines[rowArtist] = artistStyle.Render(t.Artist)
	}

	var fraction float64
	if m.state != nil {
		fraction = m.state.ProgressFraction
	}
	bar := m.progress.ViewAs(fraction)
	if m.state != nil && m.state.HasRemaining {
		bar += " " + m.state.RemainingText
	}
	lines[rowProgress] = bar

	buttons := m.buttons()
	rendered := make([]string, len(buttons))
	for i, label := range buttons {
		rendered[i] = buttonStyle.Render(label)
	}
	lines[rowButtons] = strings.Join(rendered, buttonGap)

	switch {
	case m.err != nil:
		lines[rowStatus] = errorStyle.Render("error: " + m.err.Error())
	case m.status != "":
		lines[rowStatus] = dimStyle.Render(m.status)
	}
	lines[rowHelp] = dimStyle.Render("click a button or the bar · q quit")

	for i, l := range lines {
		lines[i] = m.truncate(l)
	}
	return strings.Join(lines, "\n")
}

// truncate keeps a line on one terminal row so click rows stay fixed.
func (m Model) truncate(line string) string {
	if m.width <= 0 || lipgloss.Width(line) <= m.width {
		return line
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}
