package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allie-chat/allieproxy/pkg/config"
)

const getLongDesc string = `Get one effective configuration value.

Credentials are printed only with --reveal.

Examples:
  allieproxy config get upstream.model
  allieproxy config get upstream.api_key --reveal`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !config.IsValidConfigKey(key) {
				return fmt.Errorf("unknown config key: %q", key)
			}

			cfg, err := config.LoadForCommand(cmd, config.ServeFlags, nil)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if !reveal {
				cfg = cfg.Redacted()
			}

			value, err := config.GetValue(cfg, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print credentials in the clear")

	return cmd
}
