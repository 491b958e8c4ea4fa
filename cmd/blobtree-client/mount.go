package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/blobtree/cmd"
	"github.com/mutagen-io/blobtree/pkg/mount"
	"github.com/mutagen-io/blobtree/pkg/objects"
	"github.com/mutagen-io/blobtree/pkg/transfer/client"
)

func mountMain(command *cobra.Command, arguments []string) error {
	d, err := parseClientDigestFlag(mountConfiguration.digest)
	if err != nil {
		return err
	}

	reader := client.NewHTTPStorageReader(mountConfiguration.host)
	root := objects.TypedReference{Type: objects.ContentTypeJSONv1, Content: d}
	tree, err := mount.NewTree(root, reader)
	if err != nil {
		return fmt.Errorf("unable to prepare tree: %w", err)
	}

	return mount.Mount(context.Background(), mountConfiguration.mountpoint, tree)
}

var mountCommand = &cobra.Command{
	Use:   "mount",
	Short: "Exposes a directory tree as a read-only FUSE mount",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(mountMain),
}

var mountConfiguration struct {
	help       bool
	host       string
	digest     string
	mountpoint string
}

func init() {
	flags := mountCommand.Flags()
	flags.SortFlags = false

	flags.BoolVarP(&mountConfiguration.help, "help", "h", false, "Show help information")
	flags.StringVar(&mountConfiguration.host, "host", "127.0.0.1:8080", "Server address")
	flags.StringVar(&mountConfiguration.digest, "digest", "", "Root listing digest to mount")
	flags.StringVar(&mountConfiguration.mountpoint, "mountpoint", "", "Mount point")
}
