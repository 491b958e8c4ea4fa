// Command blobtree-client retrieves content from a blobtree-server instance
// over its storage HTTP API.
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
		Use:   "blobtree-client",
		Short: "Retrieves content from a blobtree-server instance",
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
		getCommand,
		cloneCommand,
		mountCommand,
	)

	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
