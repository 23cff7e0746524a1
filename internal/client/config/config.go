package config

import "time"

// Config holds runtime settings for the dualcal CLI.
//
// IdentityToken is the identity-provider token used to sign in when no
// session is cached. CachePath is the SQLite file of the offline cache.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	CachePath           string
	IdentityToken       string
	Timezone            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.CachePath = "dualcal.db"
	c.Timezone = "UTC"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
