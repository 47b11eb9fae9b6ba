// Package tui shows a running simulation in the terminal.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/ncx"
	"github.com/pyncx/ncx/internal/protocol"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	historyLen   = 120
	stepsPerTick = 250
	barWidth     = 40
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Watch is a bubbletea model that advances a stepper in chunks and draws
// the occupancies and a rolling current trace.
type Watch struct {
	stepper  *dynamo.Stepper
	schedule protocol.Schedule
	total    int

	speed   float64
	paused  bool
	done    bool
	history []float64
	last    dynamo.Sample
	badStep int

	width int
}

func NewWatch(st *dynamo.Stepper, schedule protocol.Schedule, totalSteps int) Watch {
	return Watch{
		stepper:  st,
		schedule: schedule,
		total:    totalSteps,
		speed:    1,
		history:  make([]float64, 0, historyLen),
		width:    80,
	}
}

func (m Watch) Init() tea.Cmd { return tick() }

func (m Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "+", "=":
			m.speed = math.Min(m.speed*2, 64)
		case "-", "_":
			m.speed = math.Max(m.speed/2, 0.125)
		case "r":
			m.stepper.Reset()
			m.history = m.history[:0]
			m.done = false
			m.badStep = 0
			m.last = dynamo.Sample{}
			return m, tick()
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		if !m.paused {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance runs one chunk of steps and samples the current once.
func (m *Watch) advance() {
	n := int(stepsPerTick * m.speed)
	if n < 1 {
		n = 1
	}
	for i := 0; i < n && m.stepper.Steps() < m.total; i++ {
		m.last = m.stepper.Step()
		if m.badStep == 0 && !ncx.OccupancyOf(m.last.State).InBounds() {
			m.badStep = m.last.Step
		}
	}
	m.history = append(m.history, m.last.Output)
	if len(m.history) > historyLen {
		m.history = m.history[len(m.history)-historyLen:]
	}
	if m.stepper.Steps() >= m.total {
		m.done = true
	}
}

func bar(frac float64) string {
	n := int(math.Round(math.Max(0, math.Min(1, frac)) * barWidth))
	return strings.Repeat("█", n) + strings.Repeat("·", barWidth-n)
}

func (m Watch) View() string {
	var b strings.Builder

	status := green.Render("running")
	switch {
	case m.done:
		status = white.Render("done")
	case m.paused:
		status = yellow.Render("paused")
	}
	b.WriteString(cyan.Render("ncx watch") + "  " + status + "\n\n")

	t := m.stepper.Time()
	stim := protocol.FromControl(m.stepper.Input())
	window := "gap"
	if i := m.schedule.Active(t); i >= 0 {
		w := m.schedule.Windows[i]
		window = fmt.Sprintf("(%g, %g)", w.Lo, w.Hi)
	}
	b.WriteString(fmt.Sprintf("  t=%8.3f  step %d/%d  speed x%g\n", t, m.stepper.Steps(), m.total, m.speed))
	b.WriteString(fmt.Sprintf("  ni=%-6g ci=%-6g window %s\n\n", stim.Na, stim.Ca, dim.Render(window)))

	occ := ncx.OccupancyOf(m.stepper.State())
	for k, f := range occ.All() {
		b.WriteString(fmt.Sprintf("  F%d %s %8.5f\n", k+1, bar(f), f))
	}
	if m.badStep > 0 {
		b.WriteString(red.Render(fmt.Sprintf("  occupancy left [0, 1] at step %d", m.badStep)) + "\n")
	}
	b.WriteString("\n")

	if len(m.history) > 1 {
		w := m.width - 12
		if w > historyLen {
			w = historyLen
		}
		if w < 20 {
			w = 20
		}
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(w),
			asciigraph.Caption("current"),
		))
		b.WriteString("\n")
	}

	b.WriteString("\n" + dim.Render("  space pause  +/- speed  r restart  q quit") + "\n")
	return b.String()
}

func Run(w Watch) error {
	p := tea.NewProgram(w, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
