package reasoning

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	traceTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	traceStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	traceActionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("214"))

	traceMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	traceAnswerStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1)
)

// RenderTrace formats an episode as a styled terminal trace. It is meant for
// interactive debugging of reasoning sessions, not for machine consumption.
func RenderTrace(episode *Episode) string {
	if episode == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(traceTitleStyle.Render("Reasoning Trace"))
	sb.WriteString("\n")

	for i, tr := range episode.Transitions {
		sb.WriteString(traceStepStyle.Render(fmt.Sprintf("step %d", i+1)))
		sb.WriteString(" ")
		sb.WriteString(traceActionStyle.Render(string(tr.Action.Type)))
		sb.WriteString(traceMetaStyle.Render(fmt.Sprintf(
			"  fragments=%d visited=%d confidence=%.2f",
			len(tr.Next.Fragments), len(tr.Next.Visited), tr.Next.Confidence)))
		sb.WriteString("\n")

		if n := len(tr.Next.Thoughts); n > len(tr.State.Thoughts) {
			sb.WriteString(traceMetaStyle.Render("  " + truncateLine(tr.Next.Thoughts[n-1], 100)))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(traceMetaStyle.Render(fmt.Sprintf(
		"terminated: %s  steps=%d  reward=%.2f  confidence=%.2f",
		episode.Terminated, episode.Steps, episode.Reward, episode.Confidence)))
	sb.WriteString("\n")
	sb.WriteString(traceAnswerStyle.Render(episode.Answer))
	sb.WriteString("\n")
	return sb.String()
}

func truncateLine(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
