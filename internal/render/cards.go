package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inboxdigest/internal/model"
	"github.com/nhle/inboxdigest/internal/theme"
)

// Messages writes one bordered card per message to w, in order. width caps
// the card width; zero leaves it unconstrained.
func Messages(w io.Writer, msgs []model.Message, localeCode string, width int) error {
	header := theme.HeaderStyle.Render(fmt.Sprintf("inboxdigest · %d messages", len(msgs)))
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	if len(msgs) == 0 {
		_, err := fmt.Fprintln(w, theme.HelpStyle.Render("No messages."))
		return err
	}

	for i, msg := range msgs {
		if _, err := fmt.Fprintln(w, Card(i+1, msg, localeCode, width)); err != nil {
			return err
		}
	}
	return nil
}

// Card renders a single message with its priority badge and formatted
// analysis.
func Card(index int, msg model.Message, localeCode string, width int) string {
	analysis := msg.AnalysisText()
	priority := ExtractPriority(analysis)

	subject := msg.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	title := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.SubjectStyle.Render(fmt.Sprintf("%d. %s", index, subject)),
		" ",
		theme.PriorityStyle(priority).Render("["+priority+"]"),
	)

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(theme.MetaStyle.Render("From: " + msg.From))
	b.WriteString("\n")
	b.WriteString(theme.MetaStyle.Render("To:   " + msg.To))
	b.WriteString("\n\n")
	b.WriteString(FormatAnalysis(analysis, localeCode))

	style := theme.CardStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(b.String())
}

// Runs writes a compact table of fetch runs to w.
func Runs(w io.Writer, runs []model.FetchRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, theme.HelpStyle.Render("No fetch runs recorded."))
		return err
	}

	for _, r := range runs {
		line := fmt.Sprintf("%s  %-8s %s  listed=%d returned=%d anomalies=%d failures=%d  %s",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Folder,
			theme.OutcomeStyle(string(r.Outcome)).Render(fmt.Sprintf("%-16s", r.Outcome)),
			r.Listed, r.Returned, r.DecodeAnomalies, r.AnnotationFailures,
			r.Duration().Round(time.Millisecond),
		)
		if r.Error != "" {
			line += "  " + theme.HelpStyle.Render(r.Error)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
