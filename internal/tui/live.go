// Package tui shows a live view of a running fit: the current
// candidate parameters and a residual-norm history graph.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// ProgressMsg is one objective evaluation.
type ProgressMsg struct {
	Evaluation   int
	Params       []float64
	ResidualNorm float64
}

// DoneMsg ends the session with the fit verdict.
type DoneMsg struct {
	Params       []float64
	Success      bool
	Message      string
	ResidualNorm float64
}

type Model struct {
	msgs    <-chan tea.Msg
	last    ProgressMsg
	done    *DoneMsg
	history []float64
	width   int
}

func NewModel(msgs <-chan tea.Msg) Model {
	return Model{msgs: msgs, width: 80}
}

func waitForMsg(msgs <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		m, ok := <-msgs
		if !ok {
			return nil
		}
		return m
	}
}

func (m Model) Init() tea.Cmd { return waitForMsg(m.msgs) }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case ProgressMsg:
		m.last = msg
		m.history = append(m.history, msg.ResidualNorm)
		if len(m.history) > 500 {
			m.history = m.history[1:]
		}
		return m, waitForMsg(m.msgs)
	case DoneMsg:
		d := msg
		m.done = &d
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("glucosim fit"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("evaluations  "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.last.Evaluation)))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("candidate    "))
	b.WriteString(valueStyle.Render(formatParams(m.last.Params)))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("residual     "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%.6g", m.last.ResidualNorm)))
	b.WriteString("\n\n")

	if len(m.history) > 1 {
		w := m.width - 12
		if w > 70 {
			w = 70
		}
		if w < 20 {
			w = 20
		}
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(w),
			asciigraph.Caption("residual norm")))
		b.WriteString("\n\n")
	}

	if m.done != nil {
		verdict := okStyle.Render("converged")
		if !m.done.Success {
			verdict = failStyle.Render("not converged")
		}
		b.WriteString(fmt.Sprintf("%s  %s\n", verdict, labelStyle.Render(m.done.Message)))
		b.WriteString(labelStyle.Render("best         "))
		b.WriteString(valueStyle.Render(formatParams(m.done.Params)))
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render("press q to quit"))
	} else {
		b.WriteString(labelStyle.Render("fitting... press q to abort the view"))
	}
	b.WriteString("\n")

	return b.String()
}

func formatParams(p []float64) string {
	if len(p) == 0 {
		return "-"
	}
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("k%d=%.6g", i+1, v)
	}
	return strings.Join(parts, "  ")
}

// Run blocks until the fit finishes and the user quits, or the view is
// aborted.
func Run(msgs <-chan tea.Msg) error {
	_, err := tea.NewProgram(NewModel(msgs)).Run()
	return err
}
