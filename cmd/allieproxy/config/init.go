package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allie-chat/allieproxy/pkg/config"
)

const initLongDesc string = `Write a config file holding the defaults.

The file is written to allieproxy.toml in the working directory unless a path
is given. An existing file is kept unless --force is set.`

const initShortDesc string = "Write a default config file"

const defaultConfigPath = "allieproxy.toml"

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}

			if err := config.SaveConfig(path, config.NewDefaultConfig(), force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}
