package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/blobtree/cmd"
	"github.com/mutagen-io/blobtree/pkg/logging"
	"github.com/mutagen-io/blobtree/pkg/watch"
)

func watchMain(command *cobra.Command, arguments []string) error {
	root := arguments[0]

	level, ok := logging.NameToLevel(watchConfiguration.logLevel)
	if !ok {
		return fmt.Errorf("invalid log level %q", watchConfiguration.logLevel)
	}
	logger := logging.New(level, os.Stderr)

	w, err := watch.Start(root, logger.Sublogger("watch"))
	if err != nil {
		return fmt.Errorf("unable to start watcher: %w", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, cmd.TerminationSignals...)
	go func() {
		<-signals
		cancel()
	}()

	for {
		events, err := w.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch failed: %w", err)
		}
		for _, e := range events {
			fmt.Printf("%s\t%s\tdirectory=%v\n", e.Kind, e.Path, e.IsDirectory)
		}
	}
}

var watchCommand = &cobra.Command{
	Use:   "watch <path>",
	Short: "Streams recursive directory notifications to standard output",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(watchMain),
}

var watchConfiguration struct {
	help     bool
	logLevel string
}

func init() {
	flags := watchCommand.Flags()
	flags.SortFlags = false

	flags.BoolVarP(&watchConfiguration.help, "help", "h", false, "Show help information")
	flags.StringVar(&watchConfiguration.logLevel, "log-level", "info", "Log level (disabled, error, warn, info, debug, trace)")
}
