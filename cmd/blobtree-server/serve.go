package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/blobtree/cmd"
	"github.com/mutagen-io/blobtree/pkg/logging"
	"github.com/mutagen-io/blobtree/pkg/objects"
	"github.com/mutagen-io/blobtree/pkg/scanner"
	"github.com/mutagen-io/blobtree/pkg/store"
	"github.com/mutagen-io/blobtree/pkg/transfer/server"
	"github.com/mutagen-io/blobtree/pkg/watch"
)

// rescanQuietPeriod is how long the filesystem must stay quiet after a
// change before the tree is rescanned, so that a burst of writes coalesces
// into a single rescan instead of one per event batch.
const rescanQuietPeriod = time.Second

func serveMain(command *cobra.Command, arguments []string) error {
	root := arguments[0]

	level, ok := logging.NameToLevel(serveConfiguration.logLevel)
	if !ok {
		return fmt.Errorf("invalid log level %q", serveConfiguration.logLevel)
	}
	logger := logging.New(level, os.Stderr)

	ignore, err := scanner.LoadIgnoreFile(filepath.Join(root, ".blobtreeignore"))
	if err != nil {
		return fmt.Errorf("unable to load .blobtreeignore: %w", err)
	}

	logger.Info("scanning", root)
	result, err := scanner.Scan(root, logger.Sublogger("scan"), ignore)
	if err != nil {
		return fmt.Errorf("unable to scan %s: %w", root, err)
	}
	logger.Info("scan complete, root digest", result.Root.Content)

	st := store.New()
	st.Publish(result.Repository)

	var rootRef atomic.Pointer[objects.TypedReference]
	rootRef.Store(&result.Root)
	resolver := func() (objects.TypedReference, bool) { return *rootRef.Load(), true }

	// Keep the published store consistent with the filesystem: rescan after
	// the watcher reports changes. If watching isn't available on this
	// platform, the server still works, it just serves the startup snapshot.
	if w, err := watch.Start(root, logger.Sublogger("watch")); err != nil {
		logger.Warn("filesystem watching unavailable, content will not be rescanned:", err)
	} else {
		defer w.Close()
		go rescanOnChange(w, root, ignore, st, &rootRef, logger)
	}

	listener, err := net.Listen("tcp", serveConfiguration.addr)
	if err != nil {
		return fmt.Errorf("unable to bind %s: %w", serveConfiguration.addr, err)
	}

	logger.Info("serving on", listener.Addr())
	srv := server.New(st, resolver, logger.Sublogger("server"))
	return srv.Serve(listener)
}

// rescanOnChange rescans root and republishes the store each time the
// watcher reports a batch of changes, after waiting for the filesystem to go
// quiet so that bursts coalesce.
func rescanOnChange(w *watch.Watcher, root string, ignore scanner.IgnoreMatcher, st *store.Store, rootRef *atomic.Pointer[objects.TypedReference], logger *logging.Logger) {
	for {
		if _, err := w.Next(context.Background()); err != nil {
			return
		}
		for {
			quiet, cancel := context.WithTimeout(context.Background(), rescanQuietPeriod)
			_, err := w.Next(quiet)
			cancel()
			if err == nil {
				continue
			}
			if errors.Is(err, watch.ErrWatchTerminated) {
				return
			}
			break
		}

		rescanned, err := scanner.Scan(root, logger.Sublogger("rescan"), ignore)
		if err != nil {
			logger.Warn("rescan failed:", err)
			continue
		}
		st.Publish(rescanned.Repository)
		rootRef.Store(&rescanned.Root)
		logger.Info("rescan complete, root digest", rescanned.Root.Content)
	}
}

var serveCommand = &cobra.Command{
	Use:   "serve <path>",
	Short: "Scans a directory and serves it over HTTP",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(serveMain),
}

var serveConfiguration struct {
	help     bool
	addr     string
	logLevel string
}

func init() {
	flags := serveCommand.Flags()
	flags.SortFlags = false

	flags.BoolVarP(&serveConfiguration.help, "help", "h", false, "Show help information")
	flags.StringVar(&serveConfiguration.addr, "addr", ":8080", "Address to listen on")
	flags.StringVar(&serveConfiguration.logLevel, "log-level", "info", "Log level (disabled, error, warn, info, debug, trace)")
}
