package logger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Icons and symbols for different log types
const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconRocket  = "🚀"
	IconConfig  = "⚙️"
	IconFolder  = "📁"
	IconFile    = "📄"
	IconRefresh = "🔄"
	IconTarget  = "🎯"
	IconShield  = "🛡️"
	IconCheck   = "✓"
	IconCross   = "✗"
	IconDot     = "•"
	IconArrow   = "→"
)

var (
	sectionColor    = color.New(color.FgCyan, color.Bold)
	subSectionColor = color.New(color.FgHiBlack)
	keyColor        = color.New(color.FgCyan)
)

// Success logs a success message with a green checkmark
func Success(args ...interface{}) {
	defaultLogger.Info(IconSuccess + " " + fmt.Sprint(args...))
}

// Successf logs a formatted success message
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Progress logs a progress message with a refresh icon
func Progress(args ...interface{}) {
	defaultLogger.Info(IconRefresh + " " + fmt.Sprint(args...))
}

// Progressf logs a formatted progress message
func Progressf(format string, args ...interface{}) {
	Progress(fmt.Sprintf(format, args...))
}

// Override logs an enforcement override
func Override(args ...interface{}) {
	defaultLogger.Warn(IconShield + " " + fmt.Sprint(args...))
}

// Overridef logs a formatted enforcement override
func Overridef(format string, args ...interface{}) {
	Override(fmt.Sprintf(format, args...))
}

func printBlock(c *color.Color, width int, fill, title string) {
	w, colored := Output()
	line := strings.Repeat(fill, width)
	if !colored {
		fmt.Fprintf(w, "%s\n%s\n%s\n", line, title, line)
		return
	}
	fmt.Fprintf(w, "%s\n%s\n%s\n", c.Sprint(line), c.Sprint(title), c.Sprint(line))
}

// LogSection creates a visual section separator
func LogSection(title string) {
	printBlock(sectionColor, 50, "=", title)
}

// LogSubSection creates a visual subsection separator
func LogSubSection(title string) {
	printBlock(subSectionColor, 40, "-", title)
}

// LogList logs a list of items with bullets
func LogList(title string, items []string) {
	Info(title)
	w, _ := Output()
	for _, item := range items {
		fmt.Fprintf(w, "  %s %s\n", IconDot, item)
	}
}

// LogKeyValue logs a key-value pair with nice formatting
func LogKeyValue(key string, value interface{}) {
	w, colored := Output()
	if colored {
		fmt.Fprintf(w, "%s %v\n", keyColor.Sprint(key+":"), value)
		return
	}
	fmt.Fprintf(w, "%s: %v\n", key, value)
}

// LogKeyValues logs multiple key-value pairs in key order
func LogKeyValues(pairs map[string]interface{}) {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		LogKeyValue(k, pairs[k])
	}
}

// LogBlock writes pre-rendered multi-line text, such as the mission screen
func LogBlock(text string) {
	w, _ := Output()
	fmt.Fprint(w, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(w)
	}
}

// Table represents a simple table for logging
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a new table
func NewTable(headers ...string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// Print prints the table to the default logger output
func (t *Table) Print() {
	w, _ := Output()
	fmt.Fprint(w, t.String())
}

// String renders the table with padded columns
func (t *Table) String() string {
	if len(t.headers) == 0 {
		return ""
	}

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

	var sb strings.Builder
	for i, h := range t.headers {
		fmt.Fprintf(&sb, "%-*s  ", widths[i], h)
	}
	sb.WriteString("\n")

	for i := range t.headers {
		sb.WriteString(strings.Repeat("-", widths[i]) + "  ")
	}
	sb.WriteString("\n")

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&sb, "%-*s  ", widths[i], cell)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
