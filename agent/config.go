package agent

import (
	"time"

	"go.rmagent.dev/core/cli"
	"go.rmagent.dev/core/errors"
)

// Config holds the settings the core reads to wire its messaging stack,
// sourced from the `messaging.*` keys of a cli.Config instance.
type Config struct {
	URL            string        `mapstructure:"url"`
	CACert         string        `mapstructure:"cacert"`
	ClientCert     string        `mapstructure:"clientcert"`
	ClientKey      string        `mapstructure:"clientkey"`
	HostValidation bool          `mapstructure:"host_validation"`
	Heartbeat      time.Duration `mapstructure:"heartbeat"`
	Threads        int           `mapstructure:"threads"`
}

// defaults matches the engine's documented heartbeat default (§4.2: "set
// heartbeat (seconds, default 10)").
func (c *Config) defaults() {
	if c.Heartbeat == 0 {
		c.Heartbeat = 10 * time.Second
	}
	if c.Threads == 0 {
		c.Threads = 1
	}
}

// LoadConfig reads the `messaging` section out of src into a Config.
func LoadConfig(src *cli.Config) (*Config, error) {
	cfg := new(Config)
	if err := src.Unmarshal(cfg, "messaging"); err != nil {
		return nil, errors.Wrap(err, "failed to load messaging configuration")
	}
	cfg.defaults()
	if cfg.URL == "" {
		return nil, errors.New("messaging.url is required")
	}
	return cfg, nil
}
