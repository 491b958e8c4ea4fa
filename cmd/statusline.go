package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// StatusLinePrinter renders a single, repeatedly overwritten line of
// progress output — used by blobtree-client's clone command to show which
// file it's currently materializing without scrolling the terminal.
type StatusLinePrinter struct {
	// UseStandardError routes output to standard error instead of standard
	// output.
	UseStandardError bool
	// nonEmpty tracks whether the line currently holds printed content, so
	// Clear and BreakIfNonEmpty know whether there's anything to wipe.
	nonEmpty bool
}

func (p *StatusLinePrinter) stream() io.Writer {
	if p.UseStandardError {
		return color.Error
	}
	return color.Output
}

// Print overwrites the status line with message, padding or truncating it
// to a platform-appropriate fixed width (see statusLineFormat) so that
// shorter follow-up messages fully erase longer preceding ones.
func (p *StatusLinePrinter) Print(message string) {
	fmt.Fprintf(p.stream(), statusLineFormat, message)
	p.nonEmpty = true
}

// Clear wipes the status line and returns the cursor to its start.
func (p *StatusLinePrinter) Clear() {
	p.Print("")
	output := os.Stdout
	if p.UseStandardError {
		output = os.Stderr
	}
	fmt.Fprint(output, "\r")
	p.nonEmpty = false
}

// BreakIfNonEmpty starts a new line if the status line currently holds
// content, so that a subsequent, unrelated print doesn't overwrite it.
func (p *StatusLinePrinter) BreakIfNonEmpty() {
	if !p.nonEmpty {
		return
	}
	output := os.Stdout
	if p.UseStandardError {
		output = os.Stderr
	}
	fmt.Fprintln(output)
	p.nonEmpty = false
}
