package ui

import (
	"fmt"
	"strings"

	"github.com/bnema/waycore/internal/ipc"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RecordSource yields trace records; *ipc.Client implements it.
type RecordSource interface {
	Next() (*ipc.Record, error)
}

// RecordMsg carries one trace record into the model.
type RecordMsg struct {
	Record *ipc.Record
}

// DisconnectedMsg ends the trace.
type DisconnectedMsg struct {
	Err error
}

// filters cycles with the f key; 0 shows everything.
var filters = []ipc.Kind{0, ipc.KindInput, ipc.KindPointerFocus, ipc.KindKeyboardFocus, ipc.KindDevice}

const chromeHeight = 5

// MonitorModel shows a live trace from the compositor.
type MonitorModel struct {
	source     RecordSource
	socketPath string

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool

	records  []*ipc.Record
	maxLines int
	counts   map[ipc.Kind]int
	filter   int
	paused   bool

	pointerFocus  string
	keyboardFocus string

	connected bool
	err       error
	width     int
	height    int
}

// NewMonitorModel creates a monitor reading from source.
func NewMonitorModel(source RecordSource, socketPath string) *MonitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &MonitorModel{
		source:        source,
		socketPath:    socketPath,
		spinner:       s,
		maxLines:      1000,
		counts:        make(map[ipc.Kind]int),
		pointerFocus:  "none",
		keyboardFocus: "none",
		connected:     true,
	}
}

func (m *MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForRecord())
}

func (m *MonitorModel) waitForRecord() tea.Cmd {
	return func() tea.Msg {
		r, err := m.source.Next()
		if err != nil {
			return DisconnectedMsg{Err: err}
		}
		return RecordMsg{Record: r}
	}
}

func (m *MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
			if !m.paused {
				m.refresh()
			}
		case "c":
			m.records = nil
			m.refresh()
		case "f":
			m.filter = (m.filter + 1) % len(filters)
			m.refresh()
		case "g":
			m.viewport.GotoTop()
		case "G":
			m.viewport.GotoBottom()
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := msg.Height - chromeHeight
		if h < 1 {
			h = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width, m.viewport.Height = msg.Width, h
		}
		m.refresh()

	case RecordMsg:
		m.add(msg.Record)
		cmds = append(cmds, m.waitForRecord())

	case DisconnectedMsg:
		m.connected = false
		m.err = msg.Err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *MonitorModel) add(r *ipc.Record) {
	m.counts[r.Kind]++
	switch r.Kind {
	case ipc.KindPointerFocus:
		m.pointerFocus = focusName(r)
	case ipc.KindKeyboardFocus:
		m.keyboardFocus = focusName(r)
	}

	m.records = append(m.records, r)
	if len(m.records) > m.maxLines {
		m.records = m.records[len(m.records)-m.maxLines:]
	}
	if !m.paused {
		m.refresh()
	}
}

func focusName(r *ipc.Record) string {
	if r.Surface == "" {
		return "none"
	}
	return r.Surface
}

// refresh re-renders the visible lines and follows the tail.
func (m *MonitorModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.visibleLines(), "\n"))
	m.viewport.GotoBottom()
}

func (m *MonitorModel) visibleLines() []string {
	want := filters[m.filter]
	lines := make([]string, 0, len(m.records))
	for _, r := range m.records {
		if want != 0 && r.Kind != want {
			continue
		}
		lines = append(lines, styleRecord(r))
	}
	return lines
}

func styleRecord(r *ipc.Record) string {
	switch r.Kind {
	case ipc.KindPointerFocus, ipc.KindKeyboardFocus:
		return InfoStyle.Render(r.String())
	case ipc.KindDevice:
		return WarningStyle.Render(r.String())
	default:
		return TextStyle.Render(r.String())
	}
}

func (m *MonitorModel) View() string {
	if !m.ready {
		return m.spinner.View() + " Connecting to " + m.socketPath
	}

	title := TitleStyle.Render("waycore trace")
	var status string
	switch {
	case !m.connected && m.err != nil:
		status = FormatStatus(false, ErrorStyle.Render("disconnected: "+m.err.Error()))
	case m.paused:
		status = FormatStatus(true, WarningStyle.Render("paused"))
	default:
		status = FormatStatus(true, m.spinner.View()+" "+m.socketPath)
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", status)

	filter := "all"
	if k := filters[m.filter]; k != 0 {
		filter = k.String()
	}
	summary := SubtleStyle.Render(fmt.Sprintf(
		"pointer focus %s  keyboard focus %s  input %d  focus %d  filter %s",
		m.pointerFocus, m.keyboardFocus,
		m.counts[ipc.KindInput],
		m.counts[ipc.KindPointerFocus]+m.counts[ipc.KindKeyboardFocus],
		filter,
	))

	controls := strings.Join([]string{
		FormatControl("p", "pause"),
		FormatControl("f", "filter"),
		FormatControl("c", "clear"),
		FormatControl("q", "quit"),
	}, "  ")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		summary,
		CreateSeparator(m.width, "─"),
		m.viewport.View(),
		controls,
	)
}
