package status

import (
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

// model is a one-shot view over a pool snapshot. The clock reading is
// captured at construction so cooldown countdowns are stable for the
// lifetime of the render.
type model struct {
	personas []domain.Persona
	now      time.Time
	styles   styles
	output   string
}

func newModel(personas []domain.Persona, now time.Time) model {
	return model{
		personas: personas,
		now:      now,
		styles:   newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.render()
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func (m model) render() string {
	lines := []string{
		m.styles.title.Render("Persona Pool"),
		m.styles.header.Render(fmt.Sprintf("personas: %d", len(m.personas))),
	}

	if len(m.personas) == 0 {
		lines = append(lines, m.styles.empty.Render("No personas in the pool."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, persona := range m.personas {
		lines = append(lines, m.styles.section.Render(renderPersona(persona, m.now, m.styles)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Render draws the pool summary for the given clock reading; a zero now
// suppresses cooldown countdowns.
func Render(personas []domain.Persona, now time.Time) (string, error) {
	p := tea.NewProgram(
		newModel(personas, now),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
