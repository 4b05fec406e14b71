// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, event rendering) for eventstream CLI commands.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jpopesculian/eventstream-parser/pkg/sse"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	typeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	retryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// spinnerFrames matches bubbletea's spinner.Dot pattern used in the watch TUI.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	// Run spinner animation in background
	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	// Clear the spinner line and print final result
	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderEvent formats a stream event as a header line followed by its data
// lines indented beneath it. The timestamp marks local arrival, not anything
// carried on the wire.
func RenderEvent(at time.Time, event *sse.Event) string {
	if event == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(timeStyle.Render(at.Format("15:04:05")))
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(event.Type))
	if event.ID != "" {
		b.WriteString(" ")
		b.WriteString(idStyle.Render("#" + event.ID))
	}
	if event.Retry != nil {
		b.WriteString(" ")
		b.WriteString(retryStyle.Render("retry=" + event.Retry.String()))
	}
	b.WriteString("\n")

	if event.Data != "" {
		for _, line := range strings.Split(event.Data, "\n") {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}
