package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/blobtree/cmd"
	"github.com/mutagen-io/blobtree/pkg/transfer/client"
)

func getMain(command *cobra.Command, arguments []string) error {
	d, err := parseClientDigestFlag(getConfiguration.digest)
	if err != nil {
		return err
	}

	reader := client.NewHTTPStorageReader(getConfiguration.host)
	file, err := reader.Open(d)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", d, err)
	}
	defer file.Close()

	if _, err := io.Copy(os.Stdout, file); err != nil {
		return fmt.Errorf("unable to stream content: %w", err)
	}
	return nil
}

var getCommand = &cobra.Command{
	Use:   "get",
	Short: "Streams an object's content to standard output",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(getMain),
}

var getConfiguration struct {
	help   bool
	host   string
	digest string
}

func init() {
	flags := getCommand.Flags()
	flags.SortFlags = false

	flags.BoolVarP(&getConfiguration.help, "help", "h", false, "Show help information")
	flags.StringVar(&getConfiguration.host, "host", "127.0.0.1:8080", "Server address")
	flags.StringVar(&getConfiguration.digest, "digest", "", "Object digest to retrieve")
}
