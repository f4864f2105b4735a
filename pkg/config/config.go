// Package config loads, validates and renders the allieproxy configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0

	redacted = "<redacted>"
)

// configKeyInfo maps a user-facing dotted key name to a getter on *Config.
type configKeyInfo struct {
	get    func(c *Config) string
	secret bool
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.port":         {get: func(c *Config) string { return strconv.FormatUint(uint64(c.Server.Port), 10) }},
	"server.cors_origins": {get: func(c *Config) string { return c.Server.CORSOrigins }},
	"upstream.base_url":   {get: func(c *Config) string { return c.Upstream.BaseURL }},
	"upstream.api_key":    {get: func(c *Config) string { return c.Upstream.APIKey }, secret: true},
	"upstream.model":      {get: func(c *Config) string { return c.Upstream.Model }},
	"upstream.timeout":    {get: func(c *Config) string { return c.Upstream.Timeout.String() }},
	"email.from":          {get: func(c *Config) string { return c.Email.From }},
	"email.to":            {get: func(c *Config) string { return c.Email.To }},
	"email.api_key":       {get: func(c *Config) string { return c.Email.APIKey }, secret: true},
	"notify.webhook_url":  {get: func(c *Config) string { return c.Notify.WebhookURL }, secret: true},
	"notify.timeout":      {get: func(c *Config) string { return c.Notify.Timeout.String() }},
	"notify.workers":      {get: func(c *Config) string { return strconv.FormatUint(uint64(c.Notify.Workers), 10) }},
	"notify.queue_size":   {get: func(c *Config) string { return strconv.FormatUint(uint64(c.Notify.QueueSize), 10) }},
	"notify.kafka.brokers": {get: func(c *Config) string {
		return strings.Join(c.Notify.Kafka.Brokers, ",")
	}},
	"notify.kafka.topic":      {get: func(c *Config) string { return c.Notify.Kafka.Topic }},
	"relay.max_messages":      {get: func(c *Config) string { return strconv.Itoa(c.Relay.MaxMessages) }},
	"relay.max_content_bytes": {get: func(c *Config) string { return strconv.Itoa(c.Relay.MaxContentBytes) }},
	"relay.strict_roles":      {get: func(c *Config) string { return strconv.FormatBool(c.Relay.StrictRoles) }},
	"secrets.ssm_prefix":      {get: func(c *Config) string { return c.Secrets.SSMPrefix }},
	"log.format":              {get: func(c *Config) string { return c.Log.Format }},
	"log.file":                {get: func(c *Config) string { return c.Log.File }},
}

// ValidConfigKeys returns all supported configuration key names in the order
// of the TOML section layout.
func ValidConfigKeys() []string {
	return []string{
		"server.port",
		"server.cors_origins",
		"upstream.base_url",
		"upstream.api_key",
		"upstream.model",
		"upstream.timeout",
		"email.from",
		"email.to",
		"email.api_key",
		"notify.webhook_url",
		"notify.timeout",
		"notify.workers",
		"notify.queue_size",
		"notify.kafka.brokers",
		"notify.kafka.topic",
		"relay.max_messages",
		"relay.max_content_bytes",
		"relay.strict_roles",
		"secrets.ssm_prefix",
		"log.format",
		"log.file",
	}
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return configKeys[key].secret
}

// GetValue returns the string representation of key in cfg.
// Secret values are returned in the clear; callers decide whether to redact.
func GetValue(cfg *Config, key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}
	return info.get(cfg), nil
}

// Redacted returns a copy of c with every set credential replaced by a
// placeholder, safe to print or log.
func (c *Config) Redacted() *Config {
	out := *c
	out.Notify.Kafka.Brokers = append([]string(nil), c.Notify.Kafka.Brokers...)
	if out.Upstream.APIKey != "" {
		out.Upstream.APIKey = redacted
	}
	if out.Email.APIKey != "" {
		out.Email.APIKey = redacted
	}
	if out.Notify.WebhookURL != "" {
		out.Notify.WebhookURL = redacted
	}
	return &out
}

// Validate reports settings the relay cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.Upstream.APIKey) == "" {
		errs = append(errs, errors.New("upstream.api_key is required"))
	}
	if strings.TrimSpace(c.Upstream.Model) == "" {
		errs = append(errs, errors.New("upstream.model is required"))
	}
	if c.Upstream.Timeout < 0 || c.Notify.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Relay.MaxMessages < 0 || c.Relay.MaxContentBytes < 0 {
		errs = append(errs, errors.New("relay limits must not be negative"))
	}
	switch c.Log.Format {
	case "", "pretty", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// EmailEnabled reports whether every email setting is present.
func (c *Config) EmailEnabled() bool {
	return c.Email.APIKey != "" && c.Email.From != "" && c.Email.To != ""
}

// ListenAddr is the address the relay binds.
func (c *Config) ListenAddr() string {
	return ":" + strconv.FormatUint(uint64(c.Server.Port), 10)
}

// EncodeTOML renders cfg in the config file layout.
func EncodeTOML(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("cannot encode nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path, refusing to overwrite an existing file
// unless force is set.
func SaveConfig(path string, cfg *Config, force bool) error {
	if path == "" {
		return errors.New("cannot save empty target path")
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := EncodeTOML(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
