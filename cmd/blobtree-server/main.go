// Command blobtree-server scans a directory into a content-addressed object
// store and serves it over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/blobtree/cmd"
)

func rootMain(command *cobra.Command, arguments []string) error {
	if !cmd.PerformingShellCompletion {
		command.Help()
	}
	return nil
}

func main() {
	cmd.HandleTerminalCompatibility()

	rootCommand := &cobra.Command{
		Use:   "blobtree-server",
		Short: "Serves a directory tree as a content-addressed object store",
		Run:   cmd.Mainify(rootMain),
	}

	var rootConfiguration struct {
		help bool
	}
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")

	cobra.EnableCommandSorting = false
	cobra.MousetrapHelpText = ""

	rootCommand.AddCommand(
		serveCommand,
		watchflatCommand,
		watchCommand,
	)

	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
