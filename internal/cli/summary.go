package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"yt-playlist-recovery/internal/model"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	summaryMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	summaryErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	summaryOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	summaryPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func printSummary(w io.Writer, report model.RunReport, logPath string) {
	fmt.Fprintln(w, renderSummary(report, logPath))
}

func renderSummary(report model.RunReport, logPath string) string {
	lines := []string{
		summaryTitleStyle.Render("Recovery summary"),
		fmt.Sprintf("Total playlists: %d", report.Total),
		summaryOKStyle.Render(fmt.Sprintf("Succeeded: %d", report.Succeeded)),
	}
	failed := fmt.Sprintf("Failed: %d", report.FailedForSummary())
	if report.TimedOut > 0 {
		failed += fmt.Sprintf(" (%d timed out)", report.TimedOut)
	}
	if report.FailedForSummary() > 0 {
		failed = summaryErrorStyle.Render(failed)
	}
	lines = append(lines, failed)
	if report.State == model.BatchInterrupted {
		lines = append(lines, summaryErrorStyle.Render("Stopped early: interrupted by operator"))
	}

	if entries := report.FailedEntries(); len(entries) > 0 {
		lines = append(lines, "", "Failed playlists:")
		for _, e := range entries {
			detail := e.Outcome.Reason
			if d := strings.TrimSpace(e.Outcome.Diagnostic); d != "" {
				detail += ": " + d
			}
			lines = append(lines, fmt.Sprintf("  - %s (%s)", e.Outcome.DisplayName(e.Job), e.Job.URL))
			lines = append(lines, summaryMutedStyle.Render("    "+detail))
		}
	}
	if strings.TrimSpace(logPath) != "" {
		lines = append(lines, "", summaryMutedStyle.Render("Log: "+logPath))
	}
	return summaryPanelStyle.Render(strings.Join(lines, "\n"))
}
