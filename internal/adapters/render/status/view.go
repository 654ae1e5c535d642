package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

const trustBarWidth = 24

func renderPersona(persona domain.Persona, now time.Time, s styles) string {
	parts := []string{
		s.persona.Render(personaTitle(persona)),
		trustLine(persona, s),
		statusLine(persona, now, s),
	}

	if persona.Status == domain.StatusBanned && persona.LastFailureReason != "" {
		parts = append(parts, s.warning.Render("reason: "+persona.LastFailureReason))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func personaTitle(persona domain.Persona) string {
	name := strings.TrimSpace(persona.Name)
	if len(persona.Tags) > 0 {
		return fmt.Sprintf("%s [%s]", name, strings.Join(persona.Tags, ", "))
	}
	return name
}

func trustLine(persona domain.Persona, s styles) string {
	label := s.trustKey.Render("trust:")
	bar := renderTrustBar(persona.TrustScore, trustBarWidth, s)
	meta := s.detail.Render(fmt.Sprintf("%3d/100  sessions: %d ok / %d failed",
		persona.TrustScore, persona.SuccessfulSessions, persona.FailedSessions))

	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", bar, " ", meta)
}

func statusLine(persona domain.Persona, now time.Time, s styles) string {
	label := s.trustKey.Render("state:")
	state := statusStyle(persona.Status, s).Render(string(persona.Status))

	extra := ""
	if persona.Status == domain.StatusCoolingDown && !now.IsZero() {
		extra = " " + s.detail.Render(fmt.Sprintf("(%s)", formatCooldown(persona.CooldownUntil, now)))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", state) + extra
}

func statusStyle(status domain.PersonaStatus, s styles) lipgloss.Style {
	switch status {
	case domain.StatusIdle:
		return s.statusIdle
	case domain.StatusActive:
		return s.statusActive
	case domain.StatusCoolingDown:
		return s.statusCooling
	case domain.StatusBanned:
		return s.statusBanned
	case domain.StatusRetired:
		return s.statusRetired
	default:
		return s.statusFallback
	}
}

func renderTrustBar(score, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	clamped := score
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 100 {
		clamped = 100
	}

	filled := int(math.Round(float64(width) * float64(clamped) / 100.0))
	empty := width - filled

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

func formatCooldown(until, now time.Time) string {
	if until.IsZero() || !until.After(now) {
		return "ready"
	}

	remaining := until.Sub(now)
	if remaining < time.Minute {
		return "ready in <1 min"
	}
	if remaining < time.Hour {
		return fmt.Sprintf("ready in %d min", int(math.Ceil(remaining.Minutes())))
	}

	hours := int(remaining.Hours())
	minutes := int(math.Ceil(remaining.Minutes())) - hours*60
	return fmt.Sprintf("ready in %dh%02dm", hours, minutes)
}
