package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/coremint/coremint/internal/upload"
	"github.com/dustin/go-humanize"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	bold   = lipgloss.NewStyle().Bold(true)
)

func printSummary(w io.Writer, report *upload.Report, took time.Duration, reportPath string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, bold.Render("Upload summary"), gray.Render(report.RunID))
	fmt.Fprintf(w, "  %-10s %s\n", "uploaded", green.Render(humanize.Comma(int64(len(report.Uploaded)))))
	if len(report.Failed) > 0 {
		fmt.Fprintf(w, "  %-10s %s\n", "failed", red.Render(humanize.Comma(int64(len(report.Failed)))))
	}
	if report.Skipped > 0 {
		fmt.Fprintf(w, "  %-10s %s\n", "skipped", yellow.Render(humanize.Comma(int64(report.Skipped))))
	}
	fmt.Fprintf(w, "  %-10s %s\n", "took", took.Round(time.Millisecond))
	if reportPath != "" {
		fmt.Fprintf(w, "  %-10s %s\n", "report", cyan.Render(reportPath))
	}

	for _, f := range report.Failed {
		fmt.Fprintf(w, "  %s %s: %s\n", red.Render("✗"), f.FailedURI, gray.Render(f.Error))
	}
}
