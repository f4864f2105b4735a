package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by allieproxy.
const EnvPrefix = "ALLIE"

const (
	configName      = "allieproxy"
	defaultEnvFile  = ".env"
	systemConfigDir = "/etc/allieproxy"
)

// envAliases maps config keys to the conventional variable names a deployment
// may already export. The ALLIE_ prefixed name always wins.
var envAliases = map[string][]string{
	"server.port":        {"PORT"},
	"upstream.api_key":   {"OPENAI_API_KEY"},
	"email.from":         {"EMAIL_FROM"},
	"email.to":           {"EMAIL_TO"},
	"email.api_key":      {"RESEND_API_KEY"},
	"notify.webhook_url": {"WEBHOOK_URL"},
}

// ReadEnvFile parses a dotenv file without touching the process environment.
// An empty path reads ./.env when it exists and otherwise returns nothing.
func ReadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		path = defaultEnvFile
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return values, nil
}

// ApplyEnvFile registers dotenv values as viper defaults, so they rank below
// the config file and the real environment. Names follow the environment:
// ALLIE_ prefixed first, then the aliases in envAliases. Names that map to no
// config key are ignored.
func ApplyEnvFile(v *viper.Viper, values map[string]string) {
	if len(values) == 0 {
		return
	}

	for _, key := range ValidConfigKeys() {
		names := append([]string{envName(key)}, envAliases[key]...)
		for _, name := range names {
			if value, ok := values[name]; ok {
				v.SetDefault(key, value)
				break
			}
		}
	}
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the TOML config file, and
// binds environment variables with the ALLIE_ prefix plus the aliases in
// envAliases.
//
// An explicit configFile must exist. Without one, allieproxy.toml is looked up
// in the working directory and then /etc/allieproxy, and its absence is fine.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ALLIE_SERVER_PORT, PORT, etc.)
//  3. config file values
//  4. .env values (once applied via ApplyEnvFile)
//  5. Defaults from NewDefaultConfig()
func InitViper(configFile string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file.
	v.SetConfigType("toml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath(systemConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine when searching, defaults will apply.
		if configFile != "" || !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: ALLIE_UPSTREAM_API_KEY, ALLIE_NOTIFY_WEBHOOK_URL, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{key, envName(key)}, aliases...)
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	return v, nil
}

// Load decodes the merged viper state into a Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. Every key gets a default, even an empty one, so
// that AutomaticEnv and Unmarshal see it.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Server
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	// Upstream
	v.SetDefault("upstream.base_url", d.Upstream.BaseURL)
	v.SetDefault("upstream.api_key", d.Upstream.APIKey)
	v.SetDefault("upstream.model", d.Upstream.Model)
	v.SetDefault("upstream.timeout", d.Upstream.Timeout)

	// Email
	v.SetDefault("email.from", d.Email.From)
	v.SetDefault("email.to", d.Email.To)
	v.SetDefault("email.api_key", d.Email.APIKey)

	// Notify
	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)
	v.SetDefault("notify.timeout", d.Notify.Timeout)
	v.SetDefault("notify.workers", d.Notify.Workers)
	v.SetDefault("notify.queue_size", d.Notify.QueueSize)
	v.SetDefault("notify.kafka.brokers", []string{})
	v.SetDefault("notify.kafka.topic", d.Notify.Kafka.Topic)

	// Relay
	v.SetDefault("relay.max_messages", d.Relay.MaxMessages)
	v.SetDefault("relay.max_content_bytes", d.Relay.MaxContentBytes)
	v.SetDefault("relay.strict_roles", d.Relay.StrictRoles)

	// Secrets
	v.SetDefault("secrets.ssm_prefix", d.Secrets.SSMPrefix)

	// Log
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}
