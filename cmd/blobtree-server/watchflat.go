package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/blobtree/cmd"
	"github.com/mutagen-io/blobtree/pkg/watch/notify"
)

// watchflatMain exercises pkg/watch/notify directly, without the recursive
// coordinator: it watches exactly one directory and prints whatever the
// platform backend reports for it.
func watchflatMain(command *cobra.Command, arguments []string) error {
	root := arguments[0]

	w, err := notify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer w.Close()

	if _, err := w.Watch(root); err != nil {
		return fmt.Errorf("unable to watch %s: %w", root, err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, cmd.TerminationSignals...)

	for {
		select {
		case e := <-w.Events():
			fmt.Printf("%s\t%s\tdirectory=%v\n", e.Kind, e.Name, e.IsDirectory)
		case err := <-w.Errors():
			return fmt.Errorf("watch failed: %w", err)
		case <-signals:
			return nil
		}
	}
}

var watchflatCommand = &cobra.Command{
	Use:   "watchflat <path>",
	Short: "Streams single-directory notifications to standard output",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(watchflatMain),
}

var watchflatConfiguration struct {
	help bool
}

func init() {
	flags := watchflatCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&watchflatConfiguration.help, "help", "h", false, "Show help information")
}
