package digest

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobdigest/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Width(90)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	scoreStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	fallbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)
)

// previewLines caps how much of each tailored résumé the preview shows.
const previewLines = 6

// Terminal renders a styled preview of d for the check command.
func Terminal(d model.Digest) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  (%d jobs, run %s)", Subject(d), len(d.Jobs), d.RunID)))
	b.WriteString("\n")

	for i, j := range d.Jobs {
		var card strings.Builder
		card.WriteString(titleStyle.Render(fmt.Sprintf("#%d %s", i+1, j.Title)))
		card.WriteString("  ")
		card.WriteString(scoreStyle.Render(fmt.Sprintf("%d/100", j.Score())))
		card.WriteString("\n")

		sub := j.Company
		if j.Location != "" {
			sub += " · " + j.Location
		}
		if j.PostedAt != nil {
			sub += " · " + j.PostedAt.Format("Jan 2 15:04")
		}
		card.WriteString(subtitleStyle.Render(sub))
		card.WriteString("\n")

		if j.Match != nil && j.Match.Reason != "" {
			card.WriteString(j.Match.Reason + "\n")
		}
		if j.URL != "" {
			card.WriteString(labelStyle.Render("Apply: ") + j.URL + "\n")
		}

		if e := j.Enrichment; e != nil {
			if e.Fallback {
				card.WriteString(fallbackStyle.Render("partial content: " + errString(e.Err)))
				card.WriteString("\n")
			}
			for _, c := range e.Contacts {
				card.WriteString(labelStyle.Render("Contact: ") + c.Role + " (" + c.SearchTip + ")\n")
			}
			card.WriteString(labelStyle.Render("CV preview:") + "\n")
			card.WriteString(firstLines(e.TailoredResume, previewLines))
		}

		b.WriteString(cardStyle.Render(strings.TrimRight(card.String(), "\n")))
		b.WriteString("\n")
	}
	return b.String()
}

func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = append(lines[:n], "…")
	}
	return strings.Join(lines, "\n")
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
