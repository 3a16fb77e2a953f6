package cli

import (
	"context"
	"fmt"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxFollowedLines = 5000

var (
	followTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("14")).
				MarginBottom(1)

	followHelpStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("8")).
				MarginTop(1)

	followKindStyle = map[execpkg.EventKind]lipgloss.Style{
		execpkg.EventStderr:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		execpkg.EventExited:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		execpkg.EventSignalled: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		execpkg.EventDropped:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
	}
)

// followLineMsg carries one formatted event line into the Bubbletea loop.
type followLineMsg string

type followModel struct {
	service string
	lines   []string
	height  int
}

func newFollowModel(service string) followModel {
	return followModel{service: service, height: 20}
}

func (m followModel) Init() tea.Cmd {
	return nil
}

func (m followModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case followLineMsg:
		m.lines = append(m.lines, string(msg))
		if len(m.lines) > maxFollowedLines {
			m.lines = m.lines[len(m.lines)-maxFollowedLines:]
		}

		return m, nil
	}

	return m, nil
}

func (m followModel) View() string {
	out := followTitleStyle.Render(fmt.Sprintf("harness logs — %s", m.service)) + "\n"

	visible := m.lines
	if budget := m.height - 4; budget > 0 && len(visible) > budget {
		visible = visible[len(visible)-budget:]
	}

	for _, line := range visible {
		out += line + "\n"
	}

	out += followHelpStyle.Render("q to quit")

	return out
}

// runFollowViewer renders a service's live event stream in a full-screen
// Bubbletea view until the stream closes or the user quits.
func runFollowViewer(ctx context.Context, service string, events <-chan execpkg.Event) error {
	program := tea.NewProgram(newFollowModel(service), tea.WithAltScreen())

	go func() {
		for {
			select {
			case <-ctx.Done():
				program.Quit()

				return
			case ev, ok := <-events:
				if !ok {
					program.Quit()

					return
				}

				program.Send(followLineMsg(styledFollowLine(service, ev)))
			}
		}
	}()

	_, err := program.Run()
	if err != nil {
		return fmt.Errorf("log viewer: %w", err)
	}

	return nil
}

func styledFollowLine(service string, ev execpkg.Event) string {
	envelope := execpkg.NewEnvelope(service, ev)
	line := fmt.Sprintf("%s %s: %s", envelope.Timestamp, envelope.Kind, envelope.Data)

	if style, ok := followKindStyle[ev.Kind]; ok {
		return style.Render(line)
	}

	return line
}
