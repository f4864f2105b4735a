package config

import "time"

// Config is the complete allieproxy configuration. It is loaded once at
// startup and passed down by value; nothing mutates it afterwards.
//
// The toml tags define the on-disk layout, the mapstructure tags let viper
// decode the same layout from env and flags.
type Config struct {
	Version  int            `toml:"version" mapstructure:"version"`
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	Upstream UpstreamConfig `toml:"upstream" mapstructure:"upstream"`
	Email    EmailConfig    `toml:"email" mapstructure:"email"`
	Notify   NotifyConfig   `toml:"notify" mapstructure:"notify"`
	Relay    RelayConfig    `toml:"relay" mapstructure:"relay"`
	Secrets  SecretsConfig  `toml:"secrets" mapstructure:"secrets"`
	Log      LogConfig      `toml:"log" mapstructure:"log"`
}

// ServerConfig holds the inbound HTTP settings.
type ServerConfig struct {
	Port        uint   `toml:"port" mapstructure:"port"`
	CORSOrigins string `toml:"cors_origins,omitempty" mapstructure:"cors_origins"`
}

// UpstreamConfig holds the chat completion provider settings.
type UpstreamConfig struct {
	BaseURL string        `toml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey  string        `toml:"api_key,omitempty" mapstructure:"api_key"`
	Model   string        `toml:"model,omitempty" mapstructure:"model"`
	Timeout time.Duration `toml:"timeout,omitempty" mapstructure:"timeout"`
}

// EmailConfig holds the error email settings.
type EmailConfig struct {
	From   string `toml:"from,omitempty" mapstructure:"from"`
	To     string `toml:"to,omitempty" mapstructure:"to"`
	APIKey string `toml:"api_key,omitempty" mapstructure:"api_key"`
}

// NotifyConfig holds the failure notification settings shared by all sinks.
type NotifyConfig struct {
	WebhookURL string        `toml:"webhook_url,omitempty" mapstructure:"webhook_url"`
	Timeout    time.Duration `toml:"timeout,omitempty" mapstructure:"timeout"`
	Workers    uint          `toml:"workers,omitempty" mapstructure:"workers"`
	QueueSize  uint          `toml:"queue_size,omitempty" mapstructure:"queue_size"`
	Kafka      KafkaConfig   `toml:"kafka" mapstructure:"kafka"`
}

// KafkaConfig holds the optional Kafka sink settings.
type KafkaConfig struct {
	Brokers []string `toml:"brokers,omitempty" mapstructure:"brokers"`
	Topic   string   `toml:"topic,omitempty" mapstructure:"topic"`
}

// RelayConfig bounds inbound requests. Zero values disable each check.
type RelayConfig struct {
	MaxMessages     int  `toml:"max_messages,omitempty" mapstructure:"max_messages"`
	MaxContentBytes int  `toml:"max_content_bytes,omitempty" mapstructure:"max_content_bytes"`
	StrictRoles     bool `toml:"strict_roles,omitempty" mapstructure:"strict_roles"`
}

// SecretsConfig configures where missing credentials are fetched from.
type SecretsConfig struct {
	SSMPrefix string `toml:"ssm_prefix,omitempty" mapstructure:"ssm_prefix"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Format is one of "pretty", "json" or "text".
	Format string `toml:"format,omitempty" mapstructure:"format"`

	// File, when set, additionally receives JSON records.
	File string `toml:"file,omitempty" mapstructure:"file"`
}
