package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/allie-chat/allieproxy/pkg/config"
)

const showLongDesc string = `Show the effective configuration.

Every key is listed with its resolved value. Credentials are replaced with
<redacted>. Use --toml to print a config file instead.`

const showShortDesc string = "Show the effective configuration"

func newShowCmd() *cobra.Command {
	var asTOML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadForCommand(cmd, config.ServeFlags, nil)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if asTOML {
				return writeTOML(cmd.OutOrStdout(), cfg.Redacted())
			}
			return writeList(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().BoolVar(&asTOML, "toml", false, "Print the configuration as TOML")

	return cmd
}

func writeTOML(w io.Writer, cfg *config.Config) error {
	data, err := config.EncodeTOML(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writeList(w io.Writer, cfg *config.Config) error {
	keys := config.ValidConfigKeys()

	// Find the longest key name for alignment.
	maxLen := 0
	for _, k := range keys {
		if len(k) > maxLen {
			maxLen = len(k)
		}
	}

	redacted := cfg.Redacted()
	for _, key := range keys {
		value, err := config.GetValue(redacted, key)
		if err != nil {
			return err
		}

		if value == "" {
			fmt.Fprintf(w, "%-*s = <not set>\n", maxLen, key)
		} else {
			fmt.Fprintf(w, "%-*s = %q\n", maxLen, key, value)
		}
	}

	return nil
}
