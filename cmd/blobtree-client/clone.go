package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mutagen-io/blobtree/cmd"
	"github.com/mutagen-io/blobtree/pkg/clone"
	"github.com/mutagen-io/blobtree/pkg/digest"
	"github.com/mutagen-io/blobtree/pkg/objects"
	"github.com/mutagen-io/blobtree/pkg/transfer/client"
)

func cloneMain(command *cobra.Command, arguments []string) error {
	d, err := parseClientDigestFlag(cloneConfiguration.digest)
	if err != nil {
		return err
	}

	reader := client.NewHTTPStorageReader(cloneConfiguration.host)
	destination, err := clone.NewFileSystemManipulator(cloneConfiguration.mountpoint)
	if err != nil {
		return fmt.Errorf("unable to prepare destination %s: %w", cloneConfiguration.mountpoint, err)
	}

	printer := &cmd.StatusLinePrinter{}
	progress := clone.WithProgress(func(path string, size int64) {
		printer.Print(fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(size))))
	})

	root := objects.TypedReference{Type: objects.ContentTypeJSONv1, Content: d}
	if err := clone.Clone(root, destination, reader, progress); err != nil {
		printer.BreakIfNonEmpty()
		return fmt.Errorf("clone failed: %w", err)
	}
	printer.Clear()
	return nil
}

var cloneCommand = &cobra.Command{
	Use:   "clone",
	Short: "Materializes a directory tree onto the local filesystem",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(cloneMain),
}

var cloneConfiguration struct {
	help       bool
	host       string
	digest     string
	mountpoint string
}

func init() {
	flags := cloneCommand.Flags()
	flags.SortFlags = false

	flags.BoolVarP(&cloneConfiguration.help, "help", "h", false, "Show help information")
	flags.StringVar(&cloneConfiguration.host, "host", "127.0.0.1:8080", "Server address")
	flags.StringVar(&cloneConfiguration.digest, "digest", "", "Root listing digest to clone")
	flags.StringVar(&cloneConfiguration.mountpoint, "mountpoint", "", "Destination directory")

	// Set up flag normalization. This is only required to handle aliases.
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "destination" {
			name = "mountpoint"
		}
		return pflag.NormalizedName(name)
	})
}

// parseClientDigestFlag accepts either go-digest canonical form
// ("sha256:<hex>") or bare lowercase hex.
func parseClientDigestFlag(value string) (digest.Digest, error) {
	if d, err := digest.ParseCanonical(value); err == nil {
		return d, nil
	}
	d, err := digest.FromHexSHA256(value)
	if err != nil {
		return digest.Digest{}, fmt.Errorf("invalid digest %q: %w", value, err)
	}
	return d, nil
}
