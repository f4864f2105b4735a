package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline.
type Flag struct {
	// Name is the long flag name (e.g. "upstream-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "p"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "upstream.base_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddDurationFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagPort            = "port"
	FlagCORSOrigins     = "cors-origins"
	FlagUpstreamURL     = "upstream-url"
	FlagModel           = "model"
	FlagUpstreamTimeout = "upstream-timeout"
	FlagEmailFrom       = "email-from"
	FlagEmailTo         = "email-to"
	FlagWebhookURL      = "webhook-url"
	FlagNotifyTimeout   = "notify-timeout"
	FlagSSMPrefix       = "ssm-prefix"
	FlagLogFormat       = "log-format"
	FlagLogFile         = "log-file"
)

// ServeFlags are the flags accepted by the serve command.
var ServeFlags = FlagSet{
	FlagPort: {
		Name:        "port",
		Shorthand:   "p",
		ViperKey:    "server.port",
		Description: "Port for the relay to listen on",
	},
	FlagCORSOrigins: {
		Name:        "cors-origins",
		ViperKey:    "server.cors_origins",
		Description: "Comma separated origins allowed to call the relay",
	},
	FlagUpstreamURL: {
		Name:        "upstream-url",
		Shorthand:   "u",
		ViperKey:    "upstream.base_url",
		Description: "Base URL of the chat completion provider",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "upstream.model",
		Description: "Model identifier sent with every completion",
	},
	FlagUpstreamTimeout: {
		Name:        "upstream-timeout",
		ViperKey:    "upstream.timeout",
		Description: "Bound on each upstream completion call",
	},
	FlagEmailFrom: {
		Name:        "email-from",
		ViperKey:    "email.from",
		Description: "Sender address for error emails",
	},
	FlagEmailTo: {
		Name:        "email-to",
		ViperKey:    "email.to",
		Description: "Recipient address for error emails",
	},
	FlagWebhookURL: {
		Name:        "webhook-url",
		ViperKey:    "notify.webhook_url",
		Description: "Optional webhook receiving error reports",
	},
	FlagNotifyTimeout: {
		Name:        "notify-timeout",
		ViperKey:    "notify.timeout",
		Description: "Bound on each notification attempt",
	},
	FlagSSMPrefix: {
		Name:        "ssm-prefix",
		ViperKey:    "secrets.ssm_prefix",
		Description: "AWS SSM parameter prefix to read missing API keys from",
	},
	FlagLogFormat: {
		Name:        "log-format",
		ViperKey:    "log.format",
		Description: "Log format (pretty, json, text)",
	},
	FlagLogFile: {
		Name:        "log-file",
		ViperKey:    "log.file",
		Description: "Additionally write JSON logs to this file",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a duration flag on cmd from the given FlagSet.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *time.Duration) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// Persistent flag names shared by every command.
const (
	FlagConfigFile = "config"
	FlagEnvFile    = "env-file"
)

// LoadForCommand resolves the effective configuration for cmd. From lowest to
// highest: defaults, the --env-file dotenv, the --config TOML file, ALLIE_ env
// vars and finally the registered flags in registryKeys.
func LoadForCommand(cmd *cobra.Command, fs FlagSet, registryKeys []string) (*Config, error) {
	envFile, _ := cmd.Flags().GetString(FlagEnvFile)
	dotenv, err := ReadEnvFile(envFile)
	if err != nil {
		return nil, err
	}

	configFile, _ := cmd.Flags().GetString(FlagConfigFile)
	v, err := InitViper(configFile)
	if err != nil {
		return nil, err
	}

	ApplyEnvFile(v, dotenv)
	BindRegisteredFlags(v, cmd, fs, registryKeys)
	return Load(v)
}
