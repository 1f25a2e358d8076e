package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/apicize/engine/pkg/engine"
)

// Palette mirrors the terminal app this CLI replaces: accent blue for
// headings, green/red for pass/fail, dim gray for secondary detail.
var (
	successColor = lipgloss.Color("#73daca")
	errorColor   = lipgloss.Color("#f7768e")
	accentColor  = lipgloss.Color("#7aa2f7")
	dimColor     = lipgloss.Color("#6c6c6c")

	passStyle   = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	nameStyle   = lipgloss.NewStyle().Foreground(accentColor)
	detailStyle = lipgloss.NewStyle().Foreground(dimColor)
)

func printExecution(exec *engine.Execution) {
	for _, item := range exec.Items {
		printItem(item, 0)
	}
	summary := fmt.Sprintf("%d passed, %d failed, %d errored (%dms)",
		exec.Counters.RequestsWithPassedTestsCount,
		exec.Counters.RequestsWithFailedTestsCount,
		exec.Counters.RequestsWithErrors,
		exec.DurationMs,
	)
	if exec.Success {
		fmt.Println(passStyle.Render("PASS") + " " + summary)
	} else {
		fmt.Println(failStyle.Render("FAIL") + " " + summary)
	}
}

func printItem(item engine.Item, depth int) {
	indent := strings.Repeat("  ", depth)
	switch {
	case item.Request != nil:
		r := item.Request
		fmt.Println(indent + statusBadge(r.Success) + " " + nameStyle.Render(r.Name))
		for _, run := range r.Runs {
			printRun(run, depth+1)
		}
	case item.Group != nil:
		g := item.Group
		fmt.Println(indent + statusBadge(g.Success) + " " + nameStyle.Render(g.Name))
		for _, run := range g.Runs {
			for _, sub := range run.Items {
				printItem(sub, depth+1)
			}
		}
	}
}

func printRun(run engine.RequestRun, depth int) {
	indent := strings.Repeat("  ", depth)
	if run.Error != nil {
		fmt.Println(indent + failStyle.Render("ERROR") + " " + detailStyle.Render(run.Error.Error()))
		return
	}
	for _, test := range run.Tests {
		badge := statusBadge(test.Success)
		label := strings.Join(test.TestName, " > ")
		line := indent + badge + " " + label
		if !test.Success && test.Error != "" {
			line += " " + detailStyle.Render("- "+test.Error)
		}
		fmt.Println(line)
	}
}

func statusBadge(ok bool) string {
	if ok {
		return passStyle.Render("✓")
	}
	return failStyle.Render("✗")
}
