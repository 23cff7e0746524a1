package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dualcal/internal/flagx"
	"github.com/dmitrijs2005/dualcal/internal/timex"
)

// JsonConfig is the on-disk form of Config.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	CachePath           string         `json:"cache_path"`
	IdentityToken       string         `json:"identity_token"`
	Timezone            string         `json:"timezone"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config. Empty JSON fields keep the current value. Read or decode
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig
	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.CachePath != "" {
		cfg.CachePath = jc.CachePath
	}
	if jc.IdentityToken != "" {
		cfg.IdentityToken = jc.IdentityToken
	}
	if jc.Timezone != "" {
		cfg.Timezone = jc.Timezone
	}
}
