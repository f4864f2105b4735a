// Package configcmder provides the config command for inspecting and
// bootstrapping the allieproxy configuration.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Inspect and bootstrap the allieproxy configuration.

Keys use dotted notation matching the TOML section structure:
  server.port, server.cors_origins,
  upstream.base_url, upstream.api_key, upstream.model, upstream.timeout,
  email.from, email.to, email.api_key,
  notify.webhook_url, notify.timeout, notify.workers, notify.queue_size,
  notify.kafka.brokers, notify.kafka.topic,
  relay.max_messages, relay.max_content_bytes, relay.strict_roles,
  secrets.ssm_prefix, log.format, log.file

Values shown are the effective ones after flags, environment, the config file
and .env are merged. Credentials are redacted.

Examples:
  allieproxy config show
  allieproxy config show --toml
  allieproxy config get upstream.model
  allieproxy config init allieproxy.toml`

const configShortDesc string = "Inspect and bootstrap allieproxy configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newInitCmd())

	return cmd
}
