package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// newDiffCmd compares two saved execution result files (as written by
// `apicize run --out`), for spotting regressions between runs of the same
// workbook. Unless --ignore-timing=false is given, the timing fields
// (durationMs, executedAtOffsetMs) are stripped before diffing so the
// comparison isn't drowned in noise from fields that always change; bodies
// and every other field are compared as they are.
func newDiffCmd() *cobra.Command {
	var ignoreTiming bool

	cmd := &cobra.Command{
		Use:   "diff <baseline.json> <current.json>",
		Short: "Diff two execution result files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := normalizedExecutionJSON(args[0], ignoreTiming)
			if err != nil {
				return err
			}
			after, err := normalizedExecutionJSON(args[1], ignoreTiming)
			if err != nil {
				return err
			}
			if before == after {
				fmt.Println("no differences")
				return nil
			}

			edits := udiff.Strings(before, after)
			unified, err := udiff.ToUnified(args[0], args[1], before, edits)
			if err != nil {
				return fmt.Errorf("computing diff: %w", err)
			}
			printUnifiedDiff(unified)
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&ignoreTiming, "ignore-timing", true, "strip durationMs/executedAtOffsetMs before comparing")
	return cmd
}

// normalizedExecutionJSON loads an execution result file and re-emits it as
// indented JSON, optionally stripping fields that vary run to run even when
// nothing meaningful changed.
func normalizedExecutionJSON(path string, ignoreTiming bool) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}
	if ignoreTiming {
		v = stripTimingFields(v)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("re-encoding %s: %w", path, err)
	}
	return string(out), nil
}

func stripTimingFields(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if k == "durationMs" || k == "executedAtOffsetMs" {
				continue
			}
			result[k] = stripTimingFields(inner)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, inner := range val {
			result[i] = stripTimingFields(inner)
		}
		return result
	default:
		return val
	}
}

var (
	diffAddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#73daca"))
	diffRemoveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	diffHunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	diffHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")).Bold(true)
)

func printUnifiedDiff(unified string) {
	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			fmt.Println(diffHeaderStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Println(diffHunkStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			fmt.Println(diffAddStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Println(diffRemoveStyle.Render(line))
		default:
			fmt.Println(line)
		}
	}
}
