package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var barColor = color.New(color.FgGreen)

// ProgressBar draws a single-line progress bar on the default logger output
type ProgressBar struct {
	total   int
	current int
	width   int
	message string
}

// NewProgressBar creates a new progress bar
func NewProgressBar(total int, message string) *ProgressBar {
	if total < 1 {
		total = 1
	}
	return &ProgressBar{
		total:   total,
		width:   40,
		message: message,
	}
}

// Update updates the progress bar
func (p *ProgressBar) Update(current int) {
	p.current = current
	p.draw()
}

// Increment increments the progress bar by 1
func (p *ProgressBar) Increment() {
	p.current++
	p.draw()
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() {
	p.current = p.total
	p.draw()
	w, _ := Output()
	fmt.Fprintln(w)
}

func (p *ProgressBar) draw() {
	current := p.current
	if current > p.total {
		current = p.total
	}
	percent := float64(current) / float64(p.total)
	filled := int(percent * float64(p.width))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	w, colored := Output()
	if colored {
		fmt.Fprintf(w, "\r%s: %s %3.0f%% (%d/%d)", p.message, barColor.Sprint(bar), percent*100, current, p.total)
		return
	}
	fmt.Fprintf(w, "\r%s: [%s] %3.0f%% (%d/%d)", p.message, bar, percent*100, current, p.total)
}
