package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/fetchd-app/fetchd/internal/download"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	completeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(1, 1, 0, 1)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Padding(0, 1)
)

func barWidth(termWidth int) int {
	w := termWidth/3 - 4
	if w < 10 {
		w = 10
	}
	return w
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("fetchd downloads"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("  cannot reach daemon: " + m.err.Error()))
		b.WriteString("\n")
	} else if len(m.rows) == 0 {
		b.WriteString(pausedStyle.Render("  no downloads yet, press 'a' to add one from the clipboard"))
		b.WriteString("\n")
	}

	for i, row := range m.rows {
		line := m.renderRow(row)
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString(helpStyle.Render(
		"a add · s start · r resume · p pause · d delete · R resume all · P pause all · q quit"))
	return b.String()
}

func (m Model) renderRow(row Row) string {
	name := filepath.Base(row.Metadata.FilePath)
	total := row.Metadata.ContentLength

	var status, detail string
	var pct float64
	switch row.State.Status {
	case download.StatusRunning:
		pct = ratio(row.State.BytesDownloaded, total)
		status = runningStyle.Render("downloading")
		detail = fmt.Sprintf("%s / %s · %s/s",
			humanize.IBytes(uint64(row.State.BytesDownloaded)),
			humanize.IBytes(uint64(total)),
			humanize.IBytes(uint64(row.State.BytesPerSecond)))
	case download.StatusComplete:
		pct = 1
		status = completeStyle.Render("complete")
		detail = humanize.IBytes(uint64(total))
	case download.StatusError:
		status = errorStyle.Render("error")
		detail = row.State.Error
	default:
		pct = ratio(row.State.BytesDownloaded, total)
		status = pausedStyle.Render("paused")
		detail = fmt.Sprintf("%s / %s",
			humanize.IBytes(uint64(row.State.BytesDownloaded)),
			humanize.IBytes(uint64(total)))
	}

	return fmt.Sprintf("%-30s %s %-12s %s", truncate(name, 30), m.bar.ViewAs(pct), status, detail)
}

func ratio(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
