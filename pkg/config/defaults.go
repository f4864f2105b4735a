package config

import "time"

const (
	defaultPort        = 3001
	defaultCORSOrigins = "*"

	defaultUpstreamBaseURL = "https://api.openai.com"
	defaultUpstreamModel   = "gpt-4o-mini"
	defaultUpstreamTimeout = 60 * time.Second

	defaultNotifyTimeout   = 10 * time.Second
	defaultNotifyWorkers   = 3
	defaultNotifyQueueSize = 256
	defaultKafkaTopic      = "allie.proxy.errors"

	defaultLogFormat = "pretty"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Port:        defaultPort,
			CORSOrigins: defaultCORSOrigins,
		},
		Upstream: UpstreamConfig{
			BaseURL: defaultUpstreamBaseURL,
			Model:   defaultUpstreamModel,
			Timeout: defaultUpstreamTimeout,
		},
		Notify: NotifyConfig{
			Timeout:   defaultNotifyTimeout,
			Workers:   defaultNotifyWorkers,
			QueueSize: defaultNotifyQueueSize,
			Kafka: KafkaConfig{
				Topic: defaultKafkaTopic,
			},
		},
		Log: LogConfig{
			Format: defaultLogFormat,
		},
	}
}
