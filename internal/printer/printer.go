// Package printer renders CLI output: status messages and the final triage
// report for a processed ticket.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/dyluth/triage/pkg/pipeline"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Color definitions
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	// Print title in red to stderr
	red.Fprintf(os.Stderr, "%s\n\n", title)

	// Print explanation
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	// Print suggestions
	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}

// RenderTicket writes a human-readable triage report for a converged ticket.
// Failed fields are reported with their error kind rather than hidden.
func RenderTicket(w io.Writer, t pipeline.TriagedTicket) {
	bold.Fprintf(w, "Ticket %s", t.Ticket.ID)
	if t.Ticket.CustomerID != "" {
		fmt.Fprintf(w, " (customer %s)", t.Ticket.CustomerID)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n\n", t.Ticket.Content)

	renderField(w, "Language", languageString(t.Language))
	renderField(w, "Sentiment", sentimentString(t.Sentiment))
	renderField(w, "Category", categoryString(t.Category))
	renderPriority(w, t.Priority)
}

func renderField(w io.Writer, name, value string) {
	fmt.Fprintf(w, "  %-10s %s\n", name+":", value)
}

func renderPriority(w io.Writer, r pipeline.FieldResult[pipeline.Priority]) {
	if !r.IsSuccess() {
		renderField(w, "Priority", resultError(r.Err))
		return
	}
	fmt.Fprintf(w, "  %-10s %s\n", "Priority:", priorityColor(r.Value).Sprint(string(r.Value)))
}

func priorityColor(p pipeline.Priority) *color.Color {
	switch p {
	case pipeline.PriorityCritical:
		return red
	case pipeline.PriorityHigh:
		return yellow
	default:
		return green
	}
}

func languageString(r pipeline.FieldResult[pipeline.Language]) string {
	if !r.IsSuccess() {
		return resultError(r.Err)
	}
	return string(r.Value)
}

func sentimentString(r pipeline.FieldResult[pipeline.SentimentScore]) string {
	if !r.IsSuccess() {
		return resultError(r.Err)
	}
	return fmt.Sprintf("%s (%.0f%% confidence)", r.Value.Label, r.Value.Confidence*100)
}

func categoryString(r pipeline.FieldResult[pipeline.Category]) string {
	if !r.IsSuccess() {
		return resultError(r.Err)
	}
	return string(r.Value)
}

func resultError(err *pipeline.FieldError) string {
	if err == nil {
		return red.Sprint("pending")
	}
	return red.Sprintf("failed (%s: %s)", err.Kind, err.Message)
}
