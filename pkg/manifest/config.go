package manifest

// Config is the top-level manifest.
type Config struct {
	Server  Server   `toml:"server"`
	Log     Log      `toml:"log"`
	Metrics Metrics  `toml:"metrics"`
	Origin  Origin   `toml:"origin"`
	Relay   Relay    `toml:"relay"`
	Plugins []Plugin `toml:"plugin"`
}

// Validate fills defaults and rejects inconsistent sections.
func (c *Config) Validate() error {
	c.defaults()
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateOrigin(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	return c.validatePlugins()
}

func (c *Config) defaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.ExchangeTimeoutMS == 0 {
		c.Server.ExchangeTimeoutMS = 30000
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "log"
	}
	if c.Log.File == "" {
		c.Log.File = "system.log"
	}
	if c.Log.AccessFile == "" {
		c.Log.AccessFile = "http-access.log"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Origin.TimeoutMS == 0 {
		c.Origin.TimeoutMS = 10000
	}
}
