package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/metalagman/screenpilot/internal/automation"
	"github.com/metalagman/screenpilot/internal/orchestrator"
	"gopkg.in/yaml.v3"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeFormatted(w io.Writer, v any, format string) error {
	switch format {
	case formatJSON, "":
		return writeJSON(w, v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, formatJSON, formatYAML)
	}
}

func printResult(w io.Writer, res orchestrator.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}
	if res.Success {
		fmt.Fprintln(w, okStyle.Render("✓ "+res.Message))
	} else {
		fmt.Fprintln(w, failStyle.Render("✗ "+res.Message))
	}
	if res.Source != "" {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  source: %s  confidence: %.2f", res.Source, res.Confidence)))
	}
	if res.Explanation != "" {
		fmt.Fprintln(w, dimStyle.Render("  explanation: "+res.Explanation))
	}
	for i, r := range res.Actions {
		mark := okStyle.Render("ok")
		if !r.Success {
			mark = failStyle.Render("failed")
		}
		fmt.Fprintf(w, "  %d. %-11s %s  %s\n", i+1, r.Kind, mark, r.Message)
	}
	for _, s := range res.Screenshots {
		fmt.Fprintln(w, dimStyle.Render("  screenshot: "+s.Path))
	}
	return nil
}

// printDryRunCalls lists what a dry-run driver would have done.
func printDryRunCalls(w io.Writer, d driver) {
	dr, ok := d.(*automation.DryRun)
	if !ok || len(dr.Calls) == 0 {
		return
	}
	fmt.Fprintln(w, dimStyle.Render("  dry-run:"))
	for _, c := range dr.Calls {
		fmt.Fprintln(w, dimStyle.Render("    "+c))
	}
	dr.Calls = dr.Calls[:0]
}
