// Package dashboard is a terminal view of service status and entity poses.
// It also drives the virtual keyboard, so the trainer can be flown without
// a window.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trainer/sim/device"
	"trainer/sim/registry"
	"trainer/sim/service"
	"trainer/sim/services/input"
)

const refresh = 100 * time.Millisecond

// Backend is the application surface the dashboard needs.
type Backend interface {
	Reports() []service.Report
	Entities() []registry.Snapshot
	Notices() []registry.Notice
	InputType() input.Type
	Sensitivity() float64
	SetInputType(input.Type) error
	SetSensitivity(float64) (float64, error)
	CycleControlled() (string, error)
	ToggleTracked() (string, error)
	RemoveControlled() (string, error)
	Tap(device.Key)
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	controlStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))

	statusStyles = map[service.Status]lipgloss.Style{
		service.Stopped: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		service.Running: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		service.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		service.Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model.
type Model struct {
	b     Backend
	title string
	err   string
	width int
}

// New returns a model for b.
func New(b Backend, title string) Model {
	return Model{b: b, title: title}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return tick() }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch s := msg.String(); s {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		_, err = m.b.CycleControlled()
	case "t":
		_, err = m.b.ToggleTracked()
	case "delete":
		_, err = m.b.RemoveControlled()
	case "1", "2", "3":
		err = m.b.SetInputType(input.Types[s[0]-'1'])
	case "+", "=":
		_, err = m.b.SetSensitivity(m.b.Sensitivity() + 0.1)
	case "-":
		_, err = m.b.SetSensitivity(m.b.Sensitivity() - 0.1)
	default:
		if k, ok := device.ParseKey(s); ok {
			m.b.Tap(k)
		}
	}
	m.err = ""
	if err != nil {
		m.err = err.Error()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Input: %s   Sensitivity: %.1f\n\n", m.b.InputType(), m.b.Sensitivity())

	b.WriteString(headerStyle.Render("Services"))
	b.WriteString("\n")
	for _, r := range m.b.Reports() {
		st := statusStyles[r.Status].Render(fmt.Sprintf("%-8s", r.Status))
		fmt.Fprintf(&b, "  %-8s %s %s\n", r.Service, st, r.Label)
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Entities"))
	b.WriteString("\n")
	for _, e := range m.b.Entities() {
		line := fmt.Sprintf("  %-8s %s", e.Name, e.Pose)
		switch {
		case e.Controlled:
			line = controlStyle.Render(line + "  *")
		case e.Tracked:
			line += dimStyle.Render("  tracked")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if ns := m.b.Notices(); len(ns) > 0 {
		b.WriteString("\n")
		for _, n := range ns {
			b.WriteString(dimStyle.Render("> " + n.Message))
			b.WriteString("\n")
		}
	}
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("wasd/qe/rf or arrows/pgup/pgdown/home/end: move  tab: next entity  t: toggle tracked  del: remove  1/2/3: input  +/-: sensitivity  esc: quit"))
	return b.String()
}

// Run shows the dashboard until the user quits or ctx is done.
func Run(ctx context.Context, b Backend, title string) error {
	p := tea.NewProgram(New(b, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
