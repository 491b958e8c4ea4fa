// Package cmd holds the small set of CLI plumbing shared by
// blobtree-server and blobtree-client: Cobra entry-point adaptation,
// status reporting, termination-signal handling, and the mintty/winpty
// relaunch shim on Windows.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
)

func init() {
	// Both binaries report errors through Warning/Error/Fatal below; the
	// stdlib logger is only ever reached by a dependency writing to it
	// directly, and such output would otherwise bypass our formatting.
	log.SetOutput(io.Discard)
}

// Warning prints a yellow-tagged warning line to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// Error prints a tagged error line to standard error without terminating.
func Error(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// Fatal prints err via Error and exits the process with a non-zero status.
func Fatal(err error) {
	Error(err)
	os.Exit(1)
}
