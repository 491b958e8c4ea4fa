package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// Mainify adapts a fallible command entry point (one that returns an error)
// into the void-returning signature Cobra's Run field expects. Routing the
// error through Fatal here, rather than having every entry point call
// os.Exit itself, means an entry point can still rely on defer-based cleanup
// running before the process exits.
func Mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			Fatal(err)
		}
	}
}

// DisallowArguments rejects any positional arguments. Subcommands that take
// all of their input through flags (get, clone, mount) use this instead of
// cobra.NoArgs, whose default message talks about unknown subcommands rather
// than unexpected arguments.
func DisallowArguments(_ *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New("this command does not accept positional arguments")
	}
	return nil
}
