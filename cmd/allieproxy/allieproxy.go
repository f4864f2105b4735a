// Package allieproxycmder is the root allieproxy command.
package allieproxycmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/allie-chat/allieproxy/cmd/allieproxy/config"
	servecmder "github.com/allie-chat/allieproxy/cmd/allieproxy/serve"
	versioncmder "github.com/allie-chat/allieproxy/cmd/version"
	"github.com/allie-chat/allieproxy/pkg/config"
)

const allieLongDesc string = `allieproxy relays the Allie chat widget to the completion provider.

Running allieproxy with no subcommand serves the relay, same as:
  allieproxy serve

Configuration is read from flags, ALLIE_ environment variables (plus the
conventional PORT, OPENAI_API_KEY, EMAIL_FROM, EMAIL_TO, RESEND_API_KEY and
WEBHOOK_URL), an allieproxy.toml file and a .env file, in that order.
.env values only fill configuration keys; they are not exported.`

const allieShortDesc string = "Allie chat relay"

func NewAllieProxyCmd() *cobra.Command {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "allieproxy"
	cmd.Short = allieShortDesc
	cmd.Long = allieLongDesc

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String(config.FlagConfigFile, "", "Path to an allieproxy.toml config file")
	cmd.PersistentFlags().String(config.FlagEnvFile, "", "Path to a dotenv file (default: ./.env when present)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
