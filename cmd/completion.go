package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// PerformingShellCompletion reports whether the process was invoked as one
// of Cobra's hidden shell-completion commands, so a root command's default
// Run (which would otherwise print help) can step aside and let completion
// output through undisturbed.
var PerformingShellCompletion bool

func init() {
	PerformingShellCompletion = len(os.Args) > 1 &&
		(os.Args[1] == cobra.ShellCompRequestCmd ||
			os.Args[1] == cobra.ShellCompNoDescRequestCmd)
}
