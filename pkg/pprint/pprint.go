// Package pprint provides terminal output formatting for the buildctl CLI:
// the info/error status lines, tables and labelled values.
package pprint

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ─────────────────────────────────────────────────────────────────────────────
// Colour palette
// ─────────────────────────────────────────────────────────────────────────────

var (
	ColorPrimary = lipgloss.Color("#7B8CDE") // blue-purple
	ColorAccent  = lipgloss.Color("#56E0C8") // Teal
	ColorSuccess = lipgloss.Color("#48BB78") // Green
	ColorWarning = lipgloss.Color("#F6AD55") // Amber
	ColorError   = lipgloss.Color("#FC8181") // Red
	ColorMuted   = lipgloss.Color("#4A5568") // Grey
	ColorText    = lipgloss.Color("#E2E8F0") // Off-white
)

// ─────────────────────────────────────────────────────────────────────────────
// Styles
// ─────────────────────────────────────────────────────────────────────────────

var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleAccent  = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleText    = lipgloss.NewStyle().Foreground(ColorText)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Width(14)
)

// Stdout and Stderr are the sinks for every helper; tests swap them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// ─────────────────────────────────────────────────────────────────────────────
// Status lines
// ─────────────────────────────────────────────────────────────────────────────

// Info prints an "info : ..." progress line.
func Info(format string, args ...any) {
	fmt.Fprintln(Stdout, StyleAccent.Render("info : ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Error prints an "error: ..." line to stderr.
func Error(format string, args ...any) {
	fmt.Fprintln(Stderr, StyleError.Render("error: ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Warn prints an amber warning line to stderr.
func Warn(format string, args ...any) {
	fmt.Fprintln(Stderr, StyleWarning.Render("warn : ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// Success prints a green ✓ success line.
func Success(format string, args ...any) {
	fmt.Fprintln(Stdout, StyleSuccess.Render("✓ ")+StyleText.Render(fmt.Sprintf(format, args...)))
}

// KV prints a labelled key-value pair.
func KV(key, value string) {
	fmt.Fprintln(Stdout, StyleLabel.Render(key)+StyleText.Render(value))
}

// ─────────────────────────────────────────────────────────────────────────────
// Table
// ─────────────────────────────────────────────────────────────────────────────

// Table renders a simple terminal table with coloured headers.
type Table struct {
	headers []string
	rows    [][]string
	out     io.Writer
}

// NewTable creates a new Table writing to Stdout.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, out: Stdout}
}

// AddRow appends a data row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render prints the table.
func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, StylePrimary.Render(pad(t.headers, widths)))

	sep := ""
	for _, w := range widths {
		sep += strings.Repeat("─", w+2)
	}
	fmt.Fprintln(t.out, StyleMuted.Render(sep))

	for _, row := range t.rows {
		fmt.Fprintln(t.out, StyleText.Render(pad(row, widths)))
	}
	fmt.Fprintln(t.out)
}

func pad(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		w := 0
		if i < len(widths) {
			w = widths[i]
		}
		fmt.Fprintf(&b, "%-*s", w+2, cell)
	}
	return strings.TrimRight(b.String(), " ")
}
